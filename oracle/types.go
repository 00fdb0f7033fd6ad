package oracle

import (
	"fmt"
	"math"
	"sort"
)

// Default parameter box applied to every independent variable.
const (
	DefaultLower = 1e-20
	DefaultUpper = 1e20
)

// Range is a closed interval [Lower, Upper]. Boxes use linear values;
// BoundingRange and Vertices return log10 coordinates.
type Range struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

// Pinned reports whether the range fixes a single value.
func (r Range) Pinned() bool { return r.Lower == r.Upper }

// Log returns the range in log10 coordinates.
func (r Range) Log() (lo, hi float64) {
	return math.Log10(r.Lower), math.Log10(r.Upper)
}

// Contains reports whether v lies in the range, allowing a relative slack rel.
func (r Range) Contains(v, rel float64) bool {
	return v >= r.Lower*(1-rel) && v <= r.Upper*(1+rel)
}

// Box is an axis-aligned parameter box keyed by variable name.
type Box map[string]Range

// DefaultBox returns [DefaultLower, DefaultUpper] for every name in vars.
func DefaultBox(vars []string) Box {
	b := make(Box, len(vars))
	for _, v := range vars {
		b[v] = Range{Lower: DefaultLower, Upper: DefaultUpper}
	}

	return b
}

// Clone returns an independent copy.
func (b Box) Clone() Box {
	out := make(Box, len(b))
	for k, v := range b {
		out[k] = v
	}

	return out
}

// Keys returns the variable names in ascending order.
func (b Box) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Pin returns a copy of b where every variable in p except skip is fixed
// at its value in p.
func (b Box) Pin(p Point, skip ...string) Box {
	out := b.Clone()
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}
	for k, v := range p {
		if _, ok := out[k]; !ok || skipped[k] {
			continue
		}
		out[k] = Range{Lower: v, Upper: v}
	}

	return out
}

// CheckBounds rejects bounds with an inverted range (InvertedBoundsError)
// or with a non-positive or non-finite endpoint (ErrArgument). Variables are
// visited in ascending order so the reported variable is deterministic.
func CheckBounds(bounds Box) error {
	keys := bounds.Keys()
	for _, k := range keys {
		r := bounds[k]
		if r.Lower > r.Upper {
			return &InvertedBoundsError{Variable: k, Lower: r.Lower, Upper: r.Upper}
		}
	}
	for _, k := range keys {
		r := bounds[k]
		if !(r.Lower > 0) || math.IsInf(r.Upper, 0) || math.IsNaN(r.Upper) {
			return fmt.Errorf("bounds for %q must be positive and finite, got [%g, %g]: %w", k, r.Lower, r.Upper, ErrArgument)
		}
	}

	return nil
}

// Narrow returns a copy of b with the ranges in bounds substituted.
// Every key of bounds must already exist in b.
func (b Box) Narrow(bounds Box) (Box, error) {
	if err := CheckBounds(bounds); err != nil {
		return nil, err
	}
	out := b.Clone()
	for _, k := range bounds.Keys() {
		if _, ok := out[k]; !ok {
			return nil, fmt.Errorf("unknown variable %q in bounds: %w", k, ErrArgument)
		}
		out[k] = bounds[k]
	}

	return out, nil
}

// Point assigns a linear value to each variable.
type Point map[string]float64

// Clone returns an independent copy.
func (p Point) Clone() Point {
	out := make(Point, len(p))
	for k, v := range p {
		out[k] = v
	}

	return out
}

// Keys returns the variable names in ascending order.
func (p Point) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Objective is a power-law monomial over system variables, such as
// "X1^2*a1/b2". Engines optimize it in log space.
type Objective struct {
	Expr     string
	Minimize bool
}

// SystemOptions are the resolution flags of a system.
type SystemOptions struct {
	ResolveCycles        bool `yaml:"resolve_cycles"`
	ResolveInstability   bool `yaml:"resolve_instability"`
	ResolveConservations bool `yaml:"resolve_conservations"`
	ResolveCodominance   bool `yaml:"resolve_codominance"`
}

// Definition is the input to Engine.NewSystem.
type Definition struct {
	Equations []string
	Auxiliary []string
	Options   SystemOptions
}

// Stoichiometry is the species × flux matrix derived from the power-law
// terms of the ODE equations. Matrix[i][j] is the sign of flux j in species i.
type Stoichiometry struct {
	Species []string
	Fluxes  []string
	Matrix  [][]float64
}
