package designspace

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/katalvlaran/dspace/caseid"
	"github.com/katalvlaran/dspace/oracle"
)

// CaseIntersection tests several cases for a common valid point.
// Members are borrowed, or owned copies when constraints were attached.
type CaseIntersection struct {
	env     *env
	members []*Case
	owned   bool

	once     sync.Once
	closeErr error
}

// NewIntersection builds an intersection of cases. With constraints every
// member is replaced by a constrained copy owned by the intersection;
// otherwise the members stay owned by the caller and must outlive it.
func NewIntersection(ctx context.Context, cases []*Case, constraints ...string) (*CaseIntersection, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("NewIntersection: no cases: %w", oracle.ErrArgument)
	}
	ci := &CaseIntersection{env: cases[0].env, members: append([]*Case(nil), cases...)}
	if len(constraints) == 0 {
		return ci, nil
	}

	ci.owned = true
	for i, c := range cases {
		cc, err := c.Constrain(ctx, constraints)
		if err != nil {
			closeCases(ci.members[:i])
			return nil, fmt.Errorf("NewIntersection: %w", err)
		}
		ci.members[i] = cc
	}

	return ci, nil
}

// Members returns the member identifiers in order.
func (ci *CaseIntersection) Members() []caseid.ID {
	out := make([]caseid.ID, len(ci.members))
	for i, c := range ci.members {
		out[i] = c.ID()
	}

	return out
}

func (ci *CaseIntersection) String() string {
	return strings.Join(caseid.Strings(ci.Members()), ", ")
}

// Close releases owned members. Borrowed members are left open.
func (ci *CaseIntersection) Close() error {
	ci.once.Do(func() {
		if !ci.owned {
			return
		}
		for _, c := range ci.members {
			if err := c.Close(); err != nil && ci.closeErr == nil {
				ci.closeErr = err
			}
		}
	})

	return ci.closeErr
}

func (ci *CaseIntersection) handles() []oracle.Case {
	return handles(ci.members)
}

func handles(cases []*Case) []oracle.Case {
	out := make([]oracle.Case, len(cases))
	for i, c := range cases {
		out[i] = c.h
	}

	return out
}

func (ci *CaseIntersection) box(o Options) (oracle.Box, error) {
	return ci.members[0].box(o)
}

// IsValid reports whether all members share a valid point.
func (ci *CaseIntersection) IsValid(ctx context.Context, opts ...Option) (bool, error) {
	return ci.isValid(ctx, nil, opts)
}

func (ci *CaseIntersection) isValid(ctx context.Context, slice []string, opts []Option) (bool, error) {
	o := newOptions(opts)
	box, err := ci.box(o)
	if err != nil {
		return false, err
	}
	ok, err := ci.env.engine.Intersect(ctx, ci.handles(), slice, box, o.Strict)
	if err != nil {
		return false, fmt.Errorf("IsValid(%s): %w", ci, err)
	}

	return ok, nil
}

// ValidParameterSet returns a point valid for every member.
func (ci *CaseIntersection) ValidParameterSet(ctx context.Context, opts ...Option) (oracle.Point, error) {
	return ci.point(ctx, nil, newOptions(opts))
}

func (ci *CaseIntersection) point(ctx context.Context, slice []string, o Options) (oracle.Point, error) {
	box, err := ci.box(o)
	if err != nil {
		return nil, err
	}
	p, err := ci.env.engine.IntersectionPoint(ctx, ci.handles(), slice, box, o.Objective, o.Strict)
	if err != nil {
		return nil, fmt.Errorf("ValidParameterSet(%s): %w", ci, err)
	}

	return p, nil
}

// CaseColocalization is a CaseIntersection whose slice variables may take
// a different value in every member.
type CaseColocalization struct {
	*CaseIntersection
	slice []string
}

// Colocation is a co-localized parameter set.
type Colocation struct {
	// Point is the raw point; slice variables appear as "name#k" where k is
	// the 0-based member index.
	Point oracle.Point
	// Members and Cases hold one parameter set per member when projected.
	Members []caseid.ID
	Cases   []oracle.Point
}

// NewColocalization builds a co-localization of cases over slice. Members
// are handled as in NewIntersection.
func NewColocalization(ctx context.Context, cases []*Case, slice []string, constraints ...string) (*CaseColocalization, error) {
	if len(slice) == 0 {
		return nil, fmt.Errorf("NewColocalization: no slice variables: %w", oracle.ErrArgument)
	}
	if len(cases) > 0 {
		known := make(map[string]bool)
		for _, v := range cases[0].Independent() {
			known[v] = true
		}
		for _, v := range slice {
			if !known[v] {
				return nil, fmt.Errorf("NewColocalization: %q is not an independent variable: %w", v, oracle.ErrArgument)
			}
		}
	}
	ci, err := NewIntersection(ctx, cases, constraints...)
	if err != nil {
		return nil, err
	}

	return &CaseColocalization{CaseIntersection: ci, slice: append([]string(nil), slice...)}, nil
}

// Slice returns the slice variables.
func (cl *CaseColocalization) Slice() []string { return append([]string(nil), cl.slice...) }

// IsValid reports whether the members co-localize.
func (cl *CaseColocalization) IsValid(ctx context.Context, opts ...Option) (bool, error) {
	return cl.isValid(ctx, cl.slice, opts)
}

// ValidParameterSet returns a co-localized point. With Options.Project
// (the default) it is also split into one parameter set per member.
func (cl *CaseColocalization) ValidParameterSet(ctx context.Context, opts ...Option) (Colocation, error) {
	o := newOptions(opts)
	p, err := cl.point(ctx, cl.slice, o)
	if err != nil {
		return Colocation{}, err
	}
	out := Colocation{Point: p}
	if !o.Project {
		return out, nil
	}

	sliced := make(map[string]bool, len(cl.slice))
	for _, v := range cl.slice {
		sliced[v] = true
	}
	out.Members = cl.Members()
	for k := range cl.members {
		q := make(oracle.Point)
		for v, val := range p {
			if !strings.Contains(v, "#") {
				q[v] = val
			}
		}
		for v := range sliced {
			val, ok := p[fmt.Sprintf("%s#%d", v, k)]
			if !ok {
				return Colocation{}, fmt.Errorf("ValidParameterSet(%s): engine omitted %s#%d: %w", cl, v, k, oracle.ErrArgument)
			}
			q[v] = val
		}
		out.Cases = append(out.Cases, q)
	}

	return out, nil
}
