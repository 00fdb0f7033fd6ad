package designspace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/katalvlaran/dspace/oracle"
)

// Tolerance is how far one variable may move from an operating point
// before the case stops being valid. Lower ≤ 1 ≤ Upper as fold ratios, or
// Lower ≤ 0 ≤ Upper as log10 differences.
type Tolerance struct {
	Lower float64
	Upper float64
}

// Ratio returns Upper/Lower for fold ratios.
func (t Tolerance) Ratio() float64 { return t.Upper / t.Lower }

// Volume is the result of Case.Volume.
type Volume struct {
	// Value is rounded to three significant digits.
	Value  float64
	Method VolumeMethod
	// Unbounded lists the axes that reach the cutoff or, without
	// SharedBoundaries, the query bounds.
	Unbounded []string
	// Warnings is non-empty when a fallback was used.
	Warnings []string
}

// logRange is a log10 extent along one variable.
type logRange struct{ lo, hi float64 }

// MeasureTolerance returns, for every free variable, the range it may take
// with all other variables pinned at p. Engine errors are returned as is;
// a coordinate of p lying outside its own range is oracle.ErrInfeasible.
func (c *Case) MeasureTolerance(ctx context.Context, p oracle.Point, opts ...Option) (map[string]Tolerance, error) {
	o := newOptions(opts)
	box, err := c.box(o)
	if err != nil {
		return nil, err
	}
	ranges, err := c.measure(ctx, p, box)
	if err != nil {
		return nil, err
	}

	out := make(map[string]Tolerance, len(ranges))
	for v, r := range ranges {
		lp := math.Log10(p[v])
		if o.LogScale {
			out[v] = Tolerance{Lower: r.lo - lp, Upper: r.hi - lp}
			continue
		}
		out[v] = Tolerance{Lower: math.Pow(10, r.lo-lp), Upper: math.Pow(10, r.hi-lp)}
	}

	return out, nil
}

func (c *Case) measure(ctx context.Context, p oracle.Point, box oracle.Box) (map[string]logRange, error) {
	const slack = 1e-9

	out := make(map[string]logRange)
	for _, v := range c.h.Independent() {
		val, ok := p[v]
		if !ok || !(val > 0) {
			return nil, fmt.Errorf("MeasureTolerance(%s): point needs a positive %q: %w", c.id, v, oracle.ErrArgument)
		}
		if box[v].Pinned() {
			continue
		}
		lo, hi, err := c.h.BoundingRange(ctx, v, box.Pin(p, v))
		if err != nil {
			return nil, fmt.Errorf("MeasureTolerance(%s): %s: %w", c.id, v, err)
		}
		if lv := math.Log10(val); lv < lo-slack || lv > hi+slack {
			return nil, fmt.Errorf("MeasureTolerance(%s): %s=%g outside [%g, %g]: %w",
				c.id, v, val, math.Pow(10, lo), math.Pow(10, hi), oracle.ErrInfeasible)
		}
		out[v] = logRange{lo: lo, hi: hi}
	}

	return out, nil
}

// BoundingBox returns the extent of the region along every variable.
// Pinned variables report their pinned value.
func (c *Case) BoundingBox(ctx context.Context, opts ...Option) (map[string]oracle.Range, error) {
	o := newOptions(opts)
	box, err := c.box(o)
	if err != nil {
		return nil, err
	}
	ranges, err := c.extent(ctx, box)
	if err != nil {
		return nil, err
	}

	out := make(map[string]oracle.Range, len(box))
	for v, r := range box {
		out[v] = r
	}
	for v, r := range ranges {
		out[v] = oracle.Range{Lower: math.Pow(10, r.lo), Upper: math.Pow(10, r.hi)}
	}

	return out, nil
}

func (c *Case) extent(ctx context.Context, box oracle.Box) (map[string]logRange, error) {
	out := make(map[string]logRange)
	for _, v := range c.h.Independent() {
		if box[v].Pinned() {
			continue
		}
		lo, hi, err := c.h.BoundingRange(ctx, v, box)
		if err != nil {
			return nil, fmt.Errorf("BoundingBox(%s): %s: %w", c.id, v, err)
		}
		out[v] = logRange{lo: lo, hi: hi}
	}

	return out, nil
}

// Volume approximates the size of the region with Options.Method.
//
// Tolerances, BoundingBox and GeometricMean multiply per-axis ratios
// hi/lo after clipping both ends to Config.Cutoff; an axis whose clipped
// range is inverted makes the volume 0. Vertices returns the length (one
// free variable) or area (two) of the slice in log10 units.
//
// When tolerances cannot be measured the computation is repeated over the
// default box; if that fails too Value is 1 and Warnings says why.
func (c *Case) Volume(ctx context.Context, opts ...Option) (Volume, error) {
	o := newOptions(opts)
	box, err := c.box(o)
	if err != nil {
		return Volume{}, err
	}

	v := Volume{Method: o.Method}
	switch o.Method {
	case Tolerances:
		err = c.toleranceVolume(ctx, box, o, &v)
	case BoundingBox:
		var ranges map[string]logRange
		if ranges, err = c.extent(ctx, box); err == nil {
			v.Value, v.Unbounded = c.product(ranges, box, o)
		}
	case GeometricMean:
		var ranges map[string]logRange
		if ranges, err = c.extent(ctx, box); err != nil {
			break
		}
		bb, open := c.product(ranges, box, o)
		if err = c.toleranceVolume(ctx, box, o, &v); err != nil {
			break
		}
		v.Value = math.Sqrt(v.Value * bb)
		v.Unbounded = union(v.Unbounded, open)
	case Vertices:
		v.Value, err = c.vertexVolume(ctx, box)
	default:
		err = fmt.Errorf("Volume(%s): method %v: %w", c.id, o.Method, oracle.ErrArgument)
	}
	if err != nil {
		return Volume{}, err
	}
	v.Value = round3(v.Value)

	return v, nil
}

func (c *Case) toleranceVolume(ctx context.Context, box oracle.Box, o Options, v *Volume) error {
	ranges, err := c.tolerances(ctx, box, o)
	if err == nil {
		v.Value, v.Unbounded = c.product(ranges, box, o)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	c.log().Warn("tolerances failed, retrying over the default box", "case", c.id.String(), "err", err)
	wide := c.env.cfg.defaultBox(c.h.Independent())
	retry := o
	retry.Point = nil
	ranges, err = c.tolerances(ctx, wide, retry)
	if err == nil {
		v.Value, v.Unbounded = c.product(ranges, wide, retry)
		v.Warnings = append(v.Warnings, "tolerances measured over the default box")
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	c.log().Warn("tolerances unavailable, volume defaults to 1", "case", c.id.String(), "err", err)
	v.Value = 1
	v.Warnings = append(v.Warnings, fmt.Sprintf("tolerances unavailable, volume defaults to 1: %v", err))

	return nil
}

func (c *Case) tolerances(ctx context.Context, box oracle.Box, o Options) (map[string]logRange, error) {
	p := o.Point
	if p == nil {
		var err error
		if p, err = c.interior(ctx, box, o); err != nil {
			return nil, err
		}
	}

	return c.measure(ctx, p, box)
}

// product multiplies the clipped per-axis ratios and reports open axes.
func (c *Case) product(ranges map[string]logRange, box oracle.Box, o Options) (float64, []string) {
	const slack = 1e-9

	cl, cu := c.env.cfg.Cutoff.Log()
	var open []string
	value := 1.0
	for _, v := range sortedKeys(ranges) {
		r := ranges[v]
		bl, bu := box[v].Log()
		unbounded := r.lo <= cl || r.hi >= cu
		if !o.SharedBoundaries && (r.lo <= bl+slack || r.hi >= bu-slack) {
			unbounded = true
		}
		if unbounded {
			open = append(open, v)
			if o.IgnoreUnbounded {
				continue
			}
		}
		lo, hi := math.Max(r.lo, cl), math.Min(r.hi, cu)
		if hi < lo {
			return 0, open
		}
		value *= math.Pow(10, hi-lo)
	}

	return value, open
}

func (c *Case) vertexVolume(ctx context.Context, box oracle.Box) (float64, error) {
	var free []string
	for _, v := range c.h.Independent() {
		if !box[v].Pinned() {
			free = append(free, v)
		}
	}
	if len(free) == 0 || len(free) > 2 {
		return 0, fmt.Errorf("Volume(%s): %d free variables, pin all but one or two: %w", c.id, len(free), oracle.ErrUnsupported)
	}

	verts, err := c.h.Vertices(ctx, box, free)
	if errors.Is(err, oracle.ErrInfeasible) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("Volume(%s): %w", c.id, err)
	}
	if len(free) == 1 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, p := range verts {
			lo, hi = math.Min(lo, p[0]), math.Max(hi, p[0])
		}
		if len(verts) == 0 {
			return 0, nil
		}

		return hi - lo, nil
	}

	// shoelace over the ordered polygon
	var twice float64
	for i := range verts {
		a, b := verts[i], verts[(i+1)%len(verts)]
		twice += a[0]*b[1] - b[0]*a[1]
	}

	return math.Abs(twice) / 2, nil
}

// VolumeGeometricMean returns the geometric mean of the bounded tolerance
// ratios: the typical fold range of one axis. It is 1 when no axis is bounded.
func (c *Case) VolumeGeometricMean(ctx context.Context, opts ...Option) (float64, error) {
	o := newOptions(opts)
	box, err := c.box(o)
	if err != nil {
		return 0, err
	}
	ranges, err := c.tolerances(ctx, box, o)
	if err != nil {
		return 0, err
	}

	o.IgnoreUnbounded = true
	n := len(ranges)
	value, open := c.product(ranges, box, o)
	n -= len(open)
	if n == 0 {
		return 1, nil
	}

	return math.Pow(value, 1/float64(n)), nil
}

// round3 rounds v to three significant digits.
func round3(v float64) float64 {
	if v == 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'g', 3, 64), 64)

	return r
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string(nil), a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)

	return out
}
