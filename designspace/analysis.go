package designspace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/dspace/caseid"
	"github.com/katalvlaran/dspace/matrix"
	"github.com/katalvlaran/dspace/oracle"
)

// isNoSolution reports errors that mean "this case has no answer here"
// rather than a failed query.
func isNoSolution(err error) bool {
	return errors.Is(err, oracle.ErrNoSteadyState) || errors.Is(err, oracle.ErrCyclical)
}

// RootInterval is the stretch of one parameter over which a case is valid,
// with the number of positive-real-part eigenvalues at its log midpoint.
// Roots is -1 when the case has no unique steady state there.
type RootInterval struct {
	Case   caseid.ID
	Lower  float64
	Upper  float64
	Middle float64
	Roots  int
}

// Line1DPositiveRoots sweeps variable over its bounds with every other
// independent variable fixed at p, and reports one interval per valid case
// in ascending order of Lower.
func (ds *DesignSpace) Line1DPositiveRoots(ctx context.Context, variable string, p oracle.Point, opts ...Option) ([]RootInterval, error) {
	if err := ds.isIndependent(variable); err != nil {
		return nil, fmt.Errorf("Line1DPositiveRoots: %w", err)
	}
	o := newOptions(opts)
	box, err := ds.env.cfg.box(ds.sys.Independent(), o)
	if err != nil {
		return nil, err
	}
	for _, v := range ds.sys.Independent() {
		if _, ok := p[v]; !ok && v != variable {
			return nil, fmt.Errorf("Line1DPositiveRoots: point has no %q: %w", v, oracle.ErrArgument)
		}
	}
	line := box.Pin(p, variable)

	ids, err := ds.validCases(ctx, line, o)
	if err != nil {
		return nil, fmt.Errorf("Line1DPositiveRoots: %w", err)
	}

	out := make([]RootInterval, 0, len(ids))
	for _, id := range ids {
		ri, err := ds.rootInterval(ctx, id, variable, p, line)
		if err != nil {
			return nil, fmt.Errorf("Line1DPositiveRoots: %w", err)
		}
		out = append(out, ri)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Lower != out[j].Lower {
			return out[i].Lower < out[j].Lower
		}
		return caseid.Compare(out[i].Case, out[j].Case) < 0
	})

	return out, nil
}

func (ds *DesignSpace) rootInterval(ctx context.Context, id caseid.ID, variable string, p oracle.Point, line oracle.Box) (RootInterval, error) {
	h, err := ds.open(ctx, id)
	if err != nil {
		return RootInterval{}, err
	}
	defer h.Close()

	lo, hi, err := h.BoundingRange(ctx, variable, line)
	if err != nil {
		return RootInterval{}, fmt.Errorf("case %s: %w", id, err)
	}
	mid := math.Pow(10, (lo+hi)/2)
	q := p.Clone()
	q[variable] = mid

	roots, err := h.PositiveRoots(ctx, q)
	if isNoSolution(err) {
		roots, err = -1, nil
	}
	if err != nil {
		return RootInterval{}, fmt.Errorf("case %s: %w", id, err)
	}

	return RootInterval{
		Case:   id,
		Lower:  math.Pow(10, lo),
		Upper:  math.Pow(10, hi),
		Middle: mid,
		Roots:  roots,
	}, nil
}

// Gain names one logarithmic gain d log(Dependent) / d log(Independent).
type Gain struct {
	Dependent   string
	Independent string
}

// GainPoint holds two log gains of one valid case.
type GainPoint struct {
	Case caseid.ID
	X    float64
	Y    float64
}

// LogGainRepertoire returns the gains x and y of every case valid under
// opts. Cases without a unique steady state are left out.
func (ds *DesignSpace) LogGainRepertoire(ctx context.Context, x, y Gain, opts ...Option) ([]GainPoint, error) {
	if err := ds.isIndependent(x.Independent, y.Independent); err != nil {
		return nil, fmt.Errorf("LogGainRepertoire: %w", err)
	}
	dep := make(map[string]bool)
	for _, d := range ds.env.dependent {
		dep[d] = true
	}
	for _, d := range []string{x.Dependent, y.Dependent} {
		if !dep[d] {
			return nil, fmt.Errorf("LogGainRepertoire: %q is not a dependent variable: %w", d, oracle.ErrArgument)
		}
	}

	ids, err := ds.ValidCases(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("LogGainRepertoire: %w", err)
	}

	var out []GainPoint
	for _, id := range ids {
		h, err := ds.open(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("LogGainRepertoire: %w", err)
		}
		gains, err := h.LogGains(ctx)
		_ = h.Close()
		if isNoSolution(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("LogGainRepertoire: case %s: %w", id, err)
		}
		out = append(out, GainPoint{
			Case: id,
			X:    gains[x.Dependent][x.Independent],
			Y:    gains[y.Dependent][y.Independent],
		})
	}

	return out, nil
}

// Stoichiometry returns the species × flux matrix of the system.
func (ds *DesignSpace) Stoichiometry() (oracle.Stoichiometry, error) {
	return ds.sys.Stoichiometry()
}

// Moiety is a conserved linear combination of species: the weighted sum
// of their derivatives is zero whatever the fluxes.
type Moiety map[string]float64

// ConservedMoieties returns a basis of the left null space of the
// stoichiometric matrix, one Moiety per basis vector.
func (ds *DesignSpace) ConservedMoieties() ([]Moiety, error) {
	const zero = 1e-12

	st, err := ds.sys.Stoichiometry()
	if err != nil {
		return nil, fmt.Errorf("ConservedMoieties: %w", err)
	}
	if len(st.Species) == 0 {
		return nil, nil
	}
	if len(st.Fluxes) == 0 {
		out := make([]Moiety, len(st.Species))
		for i, s := range st.Species {
			out[i] = Moiety{s: 1}
		}
		return out, nil
	}

	m, err := matrix.FromRows(st.Matrix)
	if err != nil {
		return nil, fmt.Errorf("ConservedMoieties: %w", err)
	}

	var out []Moiety
	for _, vec := range matrix.LeftNullSpace(m) {
		mo := make(Moiety)
		for i, w := range vec {
			if math.Abs(w) > zero {
				mo[st.Species[i]] = w
			}
		}
		out = append(out, mo)
	}

	return out, nil
}
