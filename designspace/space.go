package designspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/katalvlaran/dspace/caseid"
	"github.com/katalvlaran/dspace/oracle"
	"github.com/katalvlaran/dspace/signature"
)

// env is shared by a DesignSpace and every value it hands out.
type env struct {
	engine    oracle.Engine
	cfg       Config
	dependent []string
}

// DesignSpace owns one system handle and hands out its cases.
type DesignSpace struct {
	env       *env
	sys       oracle.System
	equations []string
	latex     map[string]string

	once     sync.Once
	closeErr error
}

// New parses equations with engine and returns the owning DesignSpace.
// Zero fields of cfg are filled from DefaultConfig, except cfg.Options which
// is passed to the engine as is. Config{} therefore disables ResolveCycles.
func New(ctx context.Context, engine oracle.Engine, equations []string, cfg Config) (*DesignSpace, error) {
	if engine == nil {
		return nil, fmt.Errorf("New: nil engine: %w", oracle.ErrArgument)
	}
	cfg = cfg.withDefaults()

	sys, err := engine.NewSystem(ctx, oracle.Definition{
		Equations: equations,
		Auxiliary: cfg.Auxiliary,
		Options:   cfg.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}

	return newSpace(engine, sys, cfg, equations), nil
}

func newSpace(engine oracle.Engine, sys oracle.System, cfg Config, equations []string) *DesignSpace {
	latex := make(map[string]string, len(cfg.Latex))
	for k, v := range cfg.Latex {
		latex[k] = v
	}
	cfg.Auxiliary = sys.Auxiliary()
	cfg.Options = sys.Options()

	return &DesignSpace{
		env:       &env{engine: engine, cfg: cfg, dependent: sys.Dependent()},
		sys:       sys,
		equations: append([]string(nil), equations...),
		latex:     latex,
	}
}

// Close releases the system handle. Later calls return the first result.
// Cases obtained from the space stay usable until closed themselves.
func (ds *DesignSpace) Close() error {
	ds.once.Do(func() { ds.closeErr = ds.sys.Close() })

	return ds.closeErr
}

// Equations returns the equations the space was built from.
func (ds *DesignSpace) Equations() []string { return append([]string(nil), ds.equations...) }

// Auxiliary returns the auxiliary variables.
func (ds *DesignSpace) Auxiliary() []string { return ds.sys.Auxiliary() }

// Dependent returns the declared dependent variables in equation order.
func (ds *DesignSpace) Dependent() []string { return append([]string(nil), ds.env.dependent...) }

// Independent returns the independent variables in ascending order.
func (ds *DesignSpace) Independent() []string { return ds.sys.Independent() }

// Options returns the resolution flags of the system.
func (ds *DesignSpace) Options() oracle.SystemOptions { return ds.sys.Options() }

// Latex returns a copy of the LaTeX symbol map.
func (ds *DesignSpace) Latex() map[string]string {
	out := make(map[string]string, len(ds.latex))
	for k, v := range ds.latex {
		out[k] = v
	}

	return out
}

// NumberOfCases returns the number of root cases.
func (ds *DesignSpace) NumberOfCases() uint64 { return ds.sys.NumberOfCases() }

// Positions returns the number of term choices per signature position.
func (ds *DesignSpace) Positions() []int { return ds.sys.Positions() }

// Signature returns the signature of case number.
func (ds *DesignSpace) Signature(number uint64) (signature.Signature, error) {
	return ds.sys.Signature(number)
}

// Case resolves ref, which is a case number ("12"), a subcase path
// ("12_3" or "12.3") or a signature prefixed with a colon (":1121").
// A signature pattern must match exactly one case; use CasesBySignature
// for wildcards.
func (ds *DesignSpace) Case(ctx context.Context, ref string) (*Case, error) {
	ref = strings.TrimSpace(ref)
	if rest, ok := strings.CutPrefix(ref, ":"); ok {
		p, err := signature.Parse(rest)
		if err != nil {
			return nil, fmt.Errorf("Case(%q): %w: %w", ref, oracle.ErrArgument, err)
		}
		cases, err := ds.CasesBySignature(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("Case(%q): %w", ref, err)
		}
		if len(cases) != 1 {
			closeCases(cases)
			return nil, fmt.Errorf("Case(%q): pattern matches %d cases: %w", ref, len(cases), oracle.ErrArgument)
		}

		return cases[0], nil
	}

	id, err := caseid.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("Case(%q): %w: %w", ref, oracle.ErrArgument, err)
	}

	return ds.CaseByID(ctx, id)
}

// CaseByNumber returns root case number.
func (ds *DesignSpace) CaseByNumber(ctx context.Context, number uint64) (*Case, error) {
	return ds.CaseByID(ctx, caseid.New(number))
}

// CaseByID returns the case or subcase addressed by id. Every intermediate
// case on the path must be cyclical.
func (ds *DesignSpace) CaseByID(ctx context.Context, id caseid.ID) (*Case, error) {
	h, err := ds.open(ctx, id)
	if err != nil {
		return nil, err
	}

	return newCase(ds.env, id, h)
}

// CasesBySignature returns one case per signature matched by p, in
// ascending case number.
func (ds *DesignSpace) CasesBySignature(ctx context.Context, p signature.Pattern) ([]*Case, error) {
	radix := ds.sys.Positions()
	count, err := p.Count(radix)
	if err != nil {
		return nil, fmt.Errorf("CasesBySignature(%s): %w: %w", p, oracle.ErrArgument, err)
	}
	if count > uint64(ds.env.cfg.MaxCandidates) {
		return nil, fmt.Errorf("CasesBySignature(%s): %d matches: %w", p, count, ErrSearchLimit)
	}
	sigs, err := p.Expand(radix)
	if err != nil {
		return nil, fmt.Errorf("CasesBySignature(%s): %w: %w", p, oracle.ErrArgument, err)
	}

	out := make([]*Case, 0, len(sigs))
	for _, sig := range sigs {
		n, err := ds.sys.CaseNumber(sig)
		if err == nil {
			var c *Case
			c, err = ds.CaseByNumber(ctx, n)
			if err == nil {
				out = append(out, c)
				continue
			}
		}
		closeCases(out)

		return nil, fmt.Errorf("CasesBySignature(%s): %w", p, err)
	}

	return out, nil
}

// open walks id down from its root case and returns the raw handle.
func (ds *DesignSpace) open(ctx context.Context, id caseid.ID) (oracle.Case, error) {
	if id.Number == 0 || id.Number > ds.sys.NumberOfCases() {
		return nil, fmt.Errorf("case %s of %d: %w", id, ds.sys.NumberOfCases(), ErrNotFound)
	}
	h, err := ds.sys.Case(ctx, id.Number)
	if err != nil {
		return nil, fmt.Errorf("case %s: %w", id, err)
	}

	for depth, i := range id.Path {
		at := caseid.New(id.Number, id.Path[:depth]...)
		if !h.Cyclical() {
			_ = h.Close()
			return nil, fmt.Errorf("case %s: %s: %w", id, at, ErrNotCyclical)
		}
		if i < 1 || i > h.Subcases() {
			n := h.Subcases()
			_ = h.Close()
			return nil, fmt.Errorf("case %s: %s has %d subcases: %w", id, at, n, ErrNotFound)
		}
		sub, err := h.Subcase(ctx, i)
		_ = h.Close()
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", id, err)
		}
		h = sub
	}

	return h, nil
}

// openAll opens every id, closing what it opened on failure.
func (ds *DesignSpace) openAll(ctx context.Context, ids []caseid.ID) ([]*Case, error) {
	out := make([]*Case, 0, len(ids))
	for _, id := range ids {
		c, err := ds.CaseByID(ctx, id)
		if err != nil {
			closeCases(out)
			return nil, err
		}
		out = append(out, c)
	}

	return out, nil
}

func closeCases(cases []*Case) {
	for _, c := range cases {
		_ = c.Close()
	}
}

// isIndependent reports an unknown name with ErrArgument.
func (ds *DesignSpace) isIndependent(names ...string) error {
	known := make(map[string]bool)
	for _, v := range ds.sys.Independent() {
		known[v] = true
	}
	var errs []error
	for _, n := range names {
		if !known[n] {
			errs = append(errs, fmt.Errorf("%q is not an independent variable: %w", n, oracle.ErrArgument))
		}
	}

	return errors.Join(errs...)
}
