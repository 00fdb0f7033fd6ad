package designspace

import (
	"log/slog"
	"runtime"

	"github.com/katalvlaran/dspace/oracle"
)

// Config holds the settings a DesignSpace is built with.
type Config struct {
	// Auxiliary lists the auxiliary variables of the equations.
	Auxiliary []string
	// Options are the resolution flags passed to the engine. They are taken
	// as given: a zero Config leaves ResolveCycles off, so callers wanting
	// cycle resolution start from DefaultConfig.
	Options oracle.SystemOptions
	// Latex maps variable names to LaTeX symbols. It is stored, not rendered.
	Latex map[string]string

	// Workers bounds the goroutines used by enumeration and search.
	Workers int
	// MaxSize is the largest set size a search may request.
	MaxSize int
	// MaxCandidates bounds the candidates tested in one search level.
	MaxCandidates int
	// Mode is the default search mode.
	Mode SearchMode

	// Range is the default parameter range of every independent variable.
	Range oracle.Range
	// Cutoff clips volume ratios; axes reaching it count as unbounded.
	Cutoff oracle.Range

	// Logger receives retry and fallback warnings.
	Logger *slog.Logger
}

// DefaultConfig returns the configuration used when fields are left zero.
// Options is the exception: withDefaults never fills it.
func DefaultConfig() Config {
	return Config{
		Options:       oracle.SystemOptions{ResolveCycles: true},
		Workers:       runtime.GOMAXPROCS(0),
		MaxSize:       8,
		MaxCandidates: 100_000,
		Mode:          Heuristic,
		Range:         oracle.Range{Lower: oracle.DefaultLower, Upper: oracle.DefaultUpper},
		Cutoff:        oracle.Range{Lower: 1e-15, Upper: 1e15},
		Logger:        slog.Default(),
	}
}

// withDefaults fills zero fields from DefaultConfig, except Options whose
// zero value is a valid choice.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.MaxSize <= 0 {
		c.MaxSize = d.MaxSize
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = d.MaxCandidates
	}
	if c.Mode == 0 {
		c.Mode = d.Mode
	}
	if c.Range == (oracle.Range{}) {
		c.Range = d.Range
	}
	if c.Cutoff == (oracle.Range{}) {
		c.Cutoff = d.Cutoff
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}

	return c
}

// defaultBox returns Config.Range for every name in vars.
func (c Config) defaultBox(vars []string) oracle.Box {
	b := make(oracle.Box, len(vars))
	for _, v := range vars {
		b[v] = c.Range
	}

	return b
}

// box narrows the default box of vars with the query bounds.
func (c Config) box(vars []string, o Options) (oracle.Box, error) {
	return c.defaultBox(vars).Narrow(o.Bounds)
}
