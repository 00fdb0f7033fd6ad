package designspace

import (
	"fmt"
	"strings"

	"github.com/katalvlaran/dspace/oracle"
)

// SearchMode selects how ValidIntersectingCases builds candidates.
type SearchMode int

const (
	// Heuristic grows level k from pairwise unions of valid (k-1)-sets.
	Heuristic SearchMode = iota + 1
	// Complete tests every k-subset of the valid singletons.
	Complete
)

func (m SearchMode) String() string {
	switch m {
	case Heuristic:
		return "heuristic"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("SearchMode(%d)", int(m))
	}
}

// ParseSearchMode accepts "heuristic" or "complete" in any case.
func ParseSearchMode(s string) (SearchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "heuristic":
		return Heuristic, nil
	case "complete":
		return Complete, nil
	}

	return 0, fmt.Errorf("ParseSearchMode(%q): %w", s, oracle.ErrArgument)
}

// VolumeMethod selects how Case.Volume measures a region.
type VolumeMethod int

const (
	// Tolerances multiplies the per-axis tolerance ratios around an interior point.
	Tolerances VolumeMethod = iota
	// BoundingBox multiplies the per-axis extents of the region.
	BoundingBox
	// GeometricMean is the geometric mean of Tolerances and BoundingBox.
	GeometricMean
	// Vertices measures the 1-D or 2-D slice polytope in log10 units.
	Vertices
)

var volumeMethodNames = [...]string{
	Tolerances:    "Tolerances",
	BoundingBox:   "Bounding Box",
	GeometricMean: "Geometric Mean T. & BB.",
	Vertices:      "Vertices",
}

func (m VolumeMethod) String() string {
	if m < 0 || int(m) >= len(volumeMethodNames) {
		return fmt.Sprintf("VolumeMethod(%d)", int(m))
	}

	return volumeMethodNames[m]
}

// ParseVolumeMethod accepts the String form of a method, case-insensitively.
func ParseVolumeMethod(s string) (VolumeMethod, error) {
	for i, name := range volumeMethodNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return VolumeMethod(i), nil
		}
	}

	return 0, fmt.Errorf("ParseVolumeMethod(%q): %w", s, oracle.ErrArgument)
}

// Option configures a single query.
type Option func(*Options)

// Options holds the per-query parameters. Each query reads only the
// fields it needs.
type Options struct {
	// Bounds narrows the default parameter box. Nil keeps the default box.
	Bounds oracle.Box

	// Strict requires a full-dimensional region. Default true.
	Strict bool

	// ExpandCycles reports valid leaf subcases instead of cyclical parents.
	// Default true.
	ExpandCycles bool

	// Objective, if non-nil, is optimized by parameter-set queries.
	Objective *oracle.Objective

	// Project splits a co-localization point into one point per member.
	// Default true.
	Project bool

	// Distance is the fold distance used by ValidInteriorParameterSet.
	// Default 50.
	Distance float64

	// LogScale reports tolerances as log10 differences instead of fold ratios.
	LogScale bool

	// Method selects the volume approximation. Default Tolerances.
	Method VolumeMethod

	// IgnoreUnbounded drops unbounded axes from volume products. Default true.
	IgnoreUnbounded bool

	// SharedBoundaries counts an axis whose tolerance stops at Bounds as
	// bounded. When false such an axis is treated as unbounded.
	SharedBoundaries bool

	// Mode overrides Config.Mode for one search. Zero keeps the config value.
	Mode SearchMode

	// Point fixes the operating point for tolerance based volumes.
	Point oracle.Point
}

// DefaultOptions returns Options with:
//   - no extra bounds
//   - Strict, ExpandCycles, Project and IgnoreUnbounded set
//   - Distance 50
//   - Method Tolerances
func DefaultOptions() Options {
	return Options{
		Strict:          true,
		ExpandCycles:    true,
		Project:         true,
		Distance:        50,
		Method:          Tolerances,
		IgnoreUnbounded: true,
	}
}

func newOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithBounds narrows the parameter box. Ranges are linear and inclusive.
func WithBounds(b oracle.Box) Option {
	return func(o *Options) { o.Bounds = b.Clone() }
}

// WithStrict toggles the full-dimensional requirement.
func WithStrict(strict bool) Option {
	return func(o *Options) { o.Strict = strict }
}

// WithExpandCycles toggles reporting of leaf subcases.
func WithExpandCycles(expand bool) Option {
	return func(o *Options) { o.ExpandCycles = expand }
}

// WithObjective minimizes the power-law monomial expr. Combine with
// Maximize to maximize it instead.
func WithObjective(expr string) Option {
	return func(o *Options) {
		minimize := true
		if o.Objective != nil {
			minimize = o.Objective.Minimize
		}
		o.Objective = &oracle.Objective{Expr: expr, Minimize: minimize}
	}
}

// Maximize flips the objective set by WithObjective to maximization.
func Maximize() Option {
	return func(o *Options) {
		if o.Objective == nil {
			o.Objective = &oracle.Objective{}
		}
		o.Objective.Minimize = false
	}
}

// WithProject toggles per-member projection of co-localization points.
func WithProject(project bool) Option {
	return func(o *Options) { o.Project = project }
}

// WithDistance sets the fold distance for interior parameter sets.
// Non-positive values are ignored.
func WithDistance(d float64) Option {
	return func(o *Options) {
		if d > 0 {
			o.Distance = d
		}
	}
}

// WithLogScale reports tolerances in log10 units.
func WithLogScale(log bool) Option {
	return func(o *Options) { o.LogScale = log }
}

// WithMethod selects the volume approximation.
func WithMethod(m VolumeMethod) Option {
	return func(o *Options) { o.Method = m }
}

// WithIgnoreUnbounded toggles dropping unbounded axes from volumes.
func WithIgnoreUnbounded(ignore bool) Option {
	return func(o *Options) { o.IgnoreUnbounded = ignore }
}

// WithSharedBoundaries counts axes that stop at the query bounds as bounded.
func WithSharedBoundaries(shared bool) Option {
	return func(o *Options) { o.SharedBoundaries = shared }
}

// WithSearchMode overrides Config.Mode for one search.
func WithSearchMode(m SearchMode) Option {
	return func(o *Options) { o.Mode = m }
}

// WithPoint fixes the operating point used by tolerance based volumes.
func WithPoint(p oracle.Point) Option {
	return func(o *Options) { o.Point = p.Clone() }
}
