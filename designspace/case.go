package designspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/katalvlaran/dspace/caseid"
	"github.com/katalvlaran/dspace/oracle"
	"github.com/katalvlaran/dspace/signature"
)

// Case is one dominance region of a design space. It owns its engine handle.
type Case struct {
	env *env
	id  caseid.ID
	h   oracle.Case

	once     sync.Once
	closeErr error
}

// newCase takes ownership of h. The handle is released when the case
// disagrees with the declared dependent variables.
func newCase(e *env, id caseid.ID, h oracle.Case) (*Case, error) {
	if err := checkVariables(id.String(), e.dependent, h.Dependent()); err != nil {
		_ = h.Close()
		return nil, err
	}

	return &Case{env: e, id: id, h: h}, nil
}

// ID returns the case identifier.
func (c *Case) ID() caseid.ID { return caseid.New(c.id.Number, c.id.Path...) }

// Number returns the root case number.
func (c *Case) Number() uint64 { return c.h.Number() }

// Signature returns the dominant-term signature.
func (c *Case) Signature() signature.Signature { return c.h.Signature() }

// Dependent returns the dependent variables.
func (c *Case) Dependent() []string { return c.h.Dependent() }

// Independent returns the independent variables.
func (c *Case) Independent() []string { return c.h.Independent() }

// Conditions returns the dominance conditions.
func (c *Case) Conditions() []string { return c.h.Conditions() }

// Boundaries returns the conditions over independent variables.
func (c *Case) Boundaries() []string { return c.h.Boundaries() }

// Constraints returns the extra conditions attached with Constrain.
func (c *Case) Constraints() []string { return c.h.Constraints() }

// IsCyclical reports whether the case resolves into subcases.
func (c *Case) IsCyclical() bool { return c.h.Cyclical() }

// Cyclical returns the cyclical view of c, or false when c is not cyclical.
// The view shares c's handle.
func (c *Case) Cyclical() (*CyclicalCase, bool) {
	if !c.h.Cyclical() {
		return nil, false
	}

	return &CyclicalCase{Case: c}, true
}

// Close releases the handle. Later calls return the first result.
func (c *Case) Close() error {
	c.once.Do(func() { c.closeErr = c.h.Close() })

	return c.closeErr
}

// Clone returns an independent owned copy of c.
func (c *Case) Clone() (*Case, error) {
	h, err := c.h.Clone()
	if err != nil {
		return nil, fmt.Errorf("Clone(%s): %w", c.id, err)
	}

	return &Case{env: c.env, id: c.ID(), h: h}, nil
}

// Constrain returns an owned copy of c with extra conditions such as
// "X1 > 10*a". c is left unchanged.
func (c *Case) Constrain(ctx context.Context, constraints []string) (*Case, error) {
	h, err := c.h.Constrain(ctx, constraints)
	if err != nil {
		return nil, fmt.Errorf("Constrain(%s): %w", c.id, err)
	}

	return &Case{env: c.env, id: c.ID(), h: h}, nil
}

func (c *Case) box(o Options) (oracle.Box, error) {
	return c.env.cfg.box(c.h.Independent(), o)
}

func (c *Case) log() *slog.Logger { return c.env.cfg.Logger }

// IsValid reports whether the region meets the query bounds.
func (c *Case) IsValid(ctx context.Context, opts ...Option) (bool, error) {
	o := newOptions(opts)
	box, err := c.box(o)
	if err != nil {
		return false, err
	}

	return c.h.Feasible(ctx, box, o.Strict)
}

// ValidParameterSet returns one point of the region. When the engine
// answers with a degenerate point the query is repeated over the default
// box; a point that is still degenerate is returned as is.
func (c *Case) ValidParameterSet(ctx context.Context, opts ...Option) (oracle.Point, error) {
	o := newOptions(opts)
	box, err := c.box(o)
	if err != nil {
		return nil, err
	}

	return c.validParameterSet(ctx, box, o)
}

func (c *Case) validParameterSet(ctx context.Context, box oracle.Box, o Options) (oracle.Point, error) {
	p, err := c.h.ValidPoint(ctx, box, o.Objective)
	if err != nil {
		return nil, fmt.Errorf("ValidParameterSet(%s): %w", c.id, err)
	}
	if !degenerate(p) {
		return p, nil
	}

	c.log().Warn("degenerate parameter set, retrying over the default box", "case", c.id.String())
	q, err := c.h.ValidPoint(ctx, c.env.cfg.defaultBox(c.h.Independent()), o.Objective)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log().Warn("retry failed, keeping degenerate parameter set", "case", c.id.String(), "err", err)
		return p, nil
	}
	if degenerate(q) {
		c.log().Warn("parameter set is still degenerate", "case", c.id.String())
	}

	return q, nil
}

// degenerate reports a zero, non-finite or out-of-range coordinate.
func degenerate(p oracle.Point) bool {
	const slack = 1e-9
	for _, v := range p {
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
		if v < oracle.DefaultLower*(1-slack) || v > oracle.DefaultUpper*(1+slack) {
			return true
		}
	}

	return false
}

// ValidInteriorParameterSet moves a valid point towards the middle of the
// region. Two passes visit every free variable; each pass looks at the
// region within Options.Distance fold of the point along that variable and
// moves the coordinate to the log midpoint of what it finds.
func (c *Case) ValidInteriorParameterSet(ctx context.Context, opts ...Option) (oracle.Point, error) {
	o := newOptions(opts)
	box, err := c.box(o)
	if err != nil {
		return nil, err
	}

	return c.interior(ctx, box, o)
}

func (c *Case) interior(ctx context.Context, box oracle.Box, o Options) (oracle.Point, error) {
	p, err := c.validParameterSet(ctx, box, o)
	if err != nil {
		return nil, err
	}
	p = p.Clone()

	for pass := 0; pass < 2; pass++ {
		for _, v := range c.h.Independent() {
			r := box[v]
			if r.Pinned() || !(p[v] > 0) {
				continue
			}
			slice := box.Pin(p, v)
			slice[v] = oracle.Range{
				Lower: math.Max(r.Lower, p[v]/o.Distance),
				Upper: math.Min(r.Upper, p[v]*o.Distance),
			}
			lo, hi, err := c.h.BoundingRange(ctx, v, slice)
			if errors.Is(err, oracle.ErrInfeasible) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("ValidInteriorParameterSet(%s): %s: %w", c.id, v, err)
			}
			p[v] = math.Pow(10, (lo+hi)/2)
		}
	}

	return p, nil
}

// SteadyState returns the dependent variables at p.
func (c *Case) SteadyState(ctx context.Context, p oracle.Point) (oracle.Point, error) {
	return c.h.SteadyState(ctx, p)
}

// SteadyStateFlux returns the dominant fluxes at p, keyed "V_<dependent>".
func (c *Case) SteadyStateFlux(ctx context.Context, p oracle.Point) (oracle.Point, error) {
	return c.h.SteadyStateFlux(ctx, p)
}

// PositiveRoots returns the number of Jacobian eigenvalues with positive
// real part at p.
func (c *Case) PositiveRoots(ctx context.Context, p oracle.Point) (int, error) {
	return c.h.PositiveRoots(ctx, p)
}

// LogGains returns d log(dependent) / d log(independent).
func (c *Case) LogGains(ctx context.Context) (map[string]map[string]float64, error) {
	return c.h.LogGains(ctx)
}
