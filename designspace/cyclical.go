package designspace

import (
	"context"
	"fmt"

	"github.com/katalvlaran/dspace/caseid"
	"github.com/katalvlaran/dspace/oracle"
)

// CyclicalCase is a case whose dominant fluxes form a cycle. Its region is
// the union of its subcases. It shares the handle of the Case it was
// obtained from.
type CyclicalCase struct {
	*Case
}

// Original returns the unresolved case.
func (cc *CyclicalCase) Original() *Case { return cc.Case }

// Subcases returns the number of direct subcases.
func (cc *CyclicalCase) Subcases() int { return cc.h.Subcases() }

// Subcase resolves path one component at a time and returns an owned case.
// Every intermediate subcase must itself be cyclical.
func (cc *CyclicalCase) Subcase(ctx context.Context, path ...int) (*Case, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("Subcase(%s): empty path: %w", cc.id, oracle.ErrArgument)
	}

	h := cc.h
	id := cc.ID()
	for depth, i := range path {
		if !h.Cyclical() {
			release(h, cc.h)
			return nil, fmt.Errorf("Subcase(%s): %s: %w", cc.id, id, ErrNotCyclical)
		}
		if i < 1 || i > h.Subcases() {
			n := h.Subcases()
			release(h, cc.h)
			return nil, fmt.Errorf("Subcase(%s): %s has %d subcases, asked %d: %w", cc.id, id, n, i, ErrNotFound)
		}
		sub, err := h.Subcase(ctx, i)
		release(h, cc.h)
		if err != nil {
			return nil, fmt.Errorf("Subcase(%s): %w", cc.id, err)
		}
		h, id = sub, id.Child(path[depth])
	}

	return newCase(cc.env, id, h)
}

// release closes intermediate handles but never the case's own.
func release(h, own oracle.Case) {
	if h != own {
		_ = h.Close()
	}
}

// ValidSubcases returns the direct subcases that are valid under opts,
// sorted. Nested cyclical subcases are reported by their own id.
func (cc *CyclicalCase) ValidSubcases(ctx context.Context, opts ...Option) ([]caseid.ID, error) {
	o := newOptions(opts)
	box, err := cc.box(o)
	if err != nil {
		return nil, err
	}

	var out []caseid.ID
	for i := 1; i <= cc.h.Subcases(); i++ {
		ok, err := cc.subcase(ctx, i, func(sub oracle.Case) (bool, error) {
			return sub.Feasible(ctx, box, o.Strict)
		})
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, cc.id.Child(i))
		}
	}
	caseid.Sort(out)

	return out, nil
}

func (cc *CyclicalCase) subcase(ctx context.Context, i int, fn func(oracle.Case) (bool, error)) (bool, error) {
	sub, err := cc.h.Subcase(ctx, i)
	if err != nil {
		return false, fmt.Errorf("Subcase(%s): %d: %w", cc.id, i, err)
	}
	defer sub.Close()

	return fn(sub)
}

// leaves calls fn on every non-cyclical subcase below h, depth first.
func leaves(ctx context.Context, h oracle.Case, id caseid.ID, fn func(caseid.ID, oracle.Case) error) error {
	if !h.Cyclical() {
		return fn(id, h)
	}
	for i := 1; i <= h.Subcases(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sub, err := h.Subcase(ctx, i)
		if err != nil {
			return fmt.Errorf("case %s: %w", id.Child(i), err)
		}
		err = leaves(ctx, sub, id.Child(i), fn)
		_ = sub.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

// SteadyState evaluates every leaf subcase at p, keyed by subcase id.
// Leaves without a unique steady state are left out.
func (cc *CyclicalCase) SteadyState(ctx context.Context, p oracle.Point) (map[string]oracle.Point, error) {
	return perLeaf(ctx, cc, func(h oracle.Case) (oracle.Point, error) { return h.SteadyState(ctx, p) })
}

// SteadyStateFlux is SteadyState for the dominant fluxes.
func (cc *CyclicalCase) SteadyStateFlux(ctx context.Context, p oracle.Point) (map[string]oracle.Point, error) {
	return perLeaf(ctx, cc, func(h oracle.Case) (oracle.Point, error) { return h.SteadyStateFlux(ctx, p) })
}

// PositiveRoots counts unstable eigenvalues per leaf subcase at p.
func (cc *CyclicalCase) PositiveRoots(ctx context.Context, p oracle.Point) (map[string]int, error) {
	return perLeaf(ctx, cc, func(h oracle.Case) (int, error) { return h.PositiveRoots(ctx, p) })
}

func perLeaf[T any](ctx context.Context, cc *CyclicalCase, fn func(oracle.Case) (T, error)) (map[string]T, error) {
	out := make(map[string]T)
	err := leaves(ctx, cc.h, cc.ID(), func(id caseid.ID, h oracle.Case) error {
		v, err := fn(h)
		if isNoSolution(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("case %s: %w", id, err)
		}
		out[id.String()] = v

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
