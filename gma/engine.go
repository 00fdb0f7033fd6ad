package gma

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/katalvlaran/dspace/oracle"
	"github.com/katalvlaran/dspace/signature"
)

// Engine is the reference oracle.Engine. The zero value is not usable; call New.
// Engine is safe for concurrent use.
type Engine struct {
	mu   sync.Mutex
	live map[uuid.UUID]struct{}
}

var _ oracle.Engine = (*Engine)(nil)

// New returns an engine with an empty handle registry.
func New() *Engine {
	return &Engine{live: make(map[uuid.UUID]struct{})}
}

// Live returns the number of handles not yet closed.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.live)
}

func (e *Engine) register() handle {
	id := uuid.New()
	e.mu.Lock()
	e.live[id] = struct{}{}
	e.mu.Unlock()

	return handle{engine: e, id: id, closed: new(atomic.Bool)}
}

func (e *Engine) release(id uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.live[id]; !ok {
		return fmt.Errorf("gma: handle %s: %w", id, oracle.ErrHandleReleased)
	}
	delete(e.live, id)

	return nil
}

// handle ties a value to one registry entry.
type handle struct {
	engine *Engine
	id     uuid.UUID
	closed *atomic.Bool
}

// ID returns the registry id of the handle.
func (h handle) ID() uuid.UUID { return h.id }

// Close releases the handle. A second Close returns oracle.ErrHandleReleased.
func (h handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("gma: handle %s: %w", h.id, oracle.ErrHandleReleased)
	}

	return h.engine.release(h.id)
}

func (h handle) check() error {
	if h.closed.Load() {
		return fmt.Errorf("gma: handle %s: %w", h.id, oracle.ErrHandleReleased)
	}

	return nil
}

// NewSystem parses def and returns an owned system handle.
func (e *Engine) NewSystem(ctx context.Context, def oracle.Definition) (oracle.System, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := compile(def)
	if err != nil {
		return nil, err
	}

	return &System{handle: e.register(), m: m}, nil
}

// DecodeSystem rebuilds a system from System.Encode output.
func (e *Engine) DecodeSystem(ctx context.Context, data []byte) (oracle.System, error) {
	b, err := decode(data, kindSystem)
	if err != nil {
		return nil, err
	}

	return e.NewSystem(ctx, b.definition())
}

// DecodeCase rebuilds a case, including its subcase path and constraints,
// from Case.Encode output.
func (e *Engine) DecodeCase(ctx context.Context, data []byte) (oracle.Case, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := decode(data, kindCase)
	if err != nil {
		return nil, err
	}
	m, err := compile(b.definition())
	if err != nil {
		return nil, err
	}
	cm, err := rebuild(m, b.Number, b.Path, b.Constraints)
	if err != nil {
		return nil, err
	}

	return e.newCase(cm), nil
}

func (e *Engine) newCase(cm *caseModel) *Case {
	return &Case{handle: e.register(), c: cm}
}

// System is the gma oracle.System.
type System struct {
	handle
	m *model
}

var _ oracle.System = (*System)(nil)

func (s *System) Dependent() []string   { return append([]string(nil), s.m.dependent...) }
func (s *System) Independent() []string { return append([]string(nil), s.m.independent...) }
func (s *System) Equations() []string   { return append([]string(nil), s.m.def.Equations...) }
func (s *System) Auxiliary() []string   { return append([]string(nil), s.m.def.Auxiliary...) }

// Options returns the resolution flags the system was built with.
func (s *System) Options() oracle.SystemOptions { return s.m.def.Options }

// Positions returns the term count of every signature position.
func (s *System) Positions() []int { return append([]int(nil), s.m.radix...) }

// NumberOfCases returns the product of Positions.
func (s *System) NumberOfCases() uint64 { return s.m.total }

// CaseNumber maps a signature to its case number.
func (s *System) CaseNumber(sig signature.Signature) (uint64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	return s.m.number(sig)
}

// Signature maps a case number to its signature.
func (s *System) Signature(number uint64) (signature.Signature, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	return s.m.signature(number)
}

// Case returns a new owned handle over case number.
func (s *System) Case(ctx context.Context, number uint64) (oracle.Case, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cm, err := newCaseModel(s.m, number, nil)
	if err != nil {
		return nil, err
	}

	return s.engine.newCase(cm), nil
}

// Stoichiometry returns the species × flux matrix of the ODE equations.
func (s *System) Stoichiometry() (oracle.Stoichiometry, error) {
	if err := s.check(); err != nil {
		return oracle.Stoichiometry{}, err
	}

	return s.m.stoichiometry(), nil
}

// Encode returns the gob blob of the system definition.
func (s *System) Encode() ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	return encode(blob{Kind: kindSystem, Equations: s.m.def.Equations, Auxiliary: s.m.def.Auxiliary, Options: s.m.def.Options})
}

// Case is the gma oracle.Case.
type Case struct {
	handle
	c *caseModel
}

var _ oracle.Case = (*Case)(nil)

func (c *Case) Dependent() []string   { return append([]string(nil), c.c.sys.dependent...) }
func (c *Case) Independent() []string { return append([]string(nil), c.c.sys.independent...) }

// Number returns the case number of the root case.
func (c *Case) Number() uint64 { return c.c.number }

// Path returns the subcase path below the root case.
func (c *Case) Path() []int { return append([]int(nil), c.c.path...) }

// Signature returns the signature of the root case.
func (c *Case) Signature() signature.Signature {
	return append(signature.Signature(nil), c.c.sig...)
}

func (c *Case) Conditions() []string  { return c.c.conditions() }
func (c *Case) Boundaries() []string  { return c.c.boundaries() }
func (c *Case) Constraints() []string { return append([]string(nil), c.c.constraints...) }
func (c *Case) Cyclical() bool        { return c.c.kind == cyclical }
func (c *Case) Subcases() int         { return c.c.subcases() }

// Degenerate reports a singular case that could not be resolved.
func (c *Case) Degenerate() bool { return c.c.kind == degenerate }

// Subcase returns the 1-based subcase i as a new owned handle.
func (c *Case) Subcase(ctx context.Context, i int) (oracle.Case, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub, err := c.c.subcase(i)
	if err != nil {
		return nil, err
	}

	return c.engine.newCase(sub), nil
}

// Feasible reports whether the case has a point inside box; with strict it
// must have an interior point.
func (c *Case) Feasible(ctx context.Context, box oracle.Box, strict bool) (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}

	return c.c.feasible(ctx, box, strict)
}

// ValidPoint returns a valid parameter set inside box.
func (c *Case) ValidPoint(ctx context.Context, box oracle.Box, obj *oracle.Objective) (oracle.Point, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	return c.c.validPoint(ctx, box, obj)
}

// BoundingRange returns the log10 extent of variable within box.
func (c *Case) BoundingRange(ctx context.Context, variable string, box oracle.Box) (float64, float64, error) {
	if err := c.check(); err != nil {
		return 0, 0, err
	}

	return c.c.boundingRange(ctx, variable, box)
}

// Vertices returns the log10 vertices of a 1-D or 2-D slice.
func (c *Case) Vertices(ctx context.Context, box oracle.Box, vars []string) ([][]float64, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return c.c.vertices(box, vars)
}

// SteadyState returns the dependent variables at parameters p.
func (c *Case) SteadyState(ctx context.Context, p oracle.Point) (oracle.Point, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	return c.c.steadyState(p)
}

// SteadyStateFlux returns the dominant fluxes at parameters p.
func (c *Case) SteadyStateFlux(ctx context.Context, p oracle.Point) (oracle.Point, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	return c.c.steadyStateFlux(p)
}

// PositiveRoots counts unstable eigenvalues at parameters p.
func (c *Case) PositiveRoots(ctx context.Context, p oracle.Point) (int, error) {
	if err := c.check(); err != nil {
		return 0, err
	}

	return c.c.positiveRoots(p)
}

// LogGains returns d log(dependent) / d log(independent).
func (c *Case) LogGains(ctx context.Context) (map[string]map[string]float64, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	return c.c.logGains()
}

// Constrain returns a new owned handle with extra constraints.
func (c *Case) Constrain(ctx context.Context, constraints []string) (oracle.Case, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cm, err := c.c.constrain(constraints)
	if err != nil {
		return nil, err
	}

	return c.engine.newCase(cm), nil
}

// Clone returns a new owned handle over the same case.
func (c *Case) Clone() (oracle.Case, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	return c.engine.newCase(c.c), nil
}

// Encode returns the gob blob of the case.
func (c *Case) Encode() ([]byte, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	def := c.c.sys.def

	return encode(blob{
		Kind:        kindCase,
		Equations:   def.Equations,
		Auxiliary:   def.Auxiliary,
		Options:     def.Options,
		Number:      c.c.number,
		Path:        c.c.path,
		Constraints: c.c.constraints,
	})
}

// members unwraps case handles and checks they share one variable pool.
func (e *Engine) members(members []oracle.Case) ([]*caseModel, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("gma: no members: %w", oracle.ErrArgument)
	}
	out := make([]*caseModel, len(members))
	for k, m := range members {
		gc, ok := m.(*Case)
		if !ok || gc.engine != e {
			return nil, fmt.Errorf("gma: member %d: %w", k, oracle.ErrForeignHandle)
		}
		if err := gc.check(); err != nil {
			return nil, err
		}
		out[k] = gc.c
		if k > 0 && !sameVariables(out[0].sys, gc.c.sys) {
			return nil, fmt.Errorf("gma: member %d has another variable pool: %w", k, oracle.ErrArgument)
		}
	}

	return out, nil
}

func sameVariables(a, b *model) bool {
	if len(a.independent) != len(b.independent) || len(a.dependent) != len(b.dependent) {
		return false
	}
	for i := range a.independent {
		if a.independent[i] != b.independent[i] {
			return false
		}
	}
	for i := range a.dependent {
		if a.dependent[i] != b.dependent[i] {
			return false
		}
	}

	return true
}

// joint lays out the extended variable space of an intersection: shared
// independent variables once, slice variables once per member.
type joint struct {
	names []string
	index [][]int // index[k][i] = joint column of independent i for member k
	lo    []float64
	hi    []float64
}

func newJoint(sys *model, n int, slice []string, box oracle.Box) (*joint, error) {
	lo, hi, err := logBox(sys, box)
	if err != nil {
		return nil, err
	}
	sliced := make(map[string]bool, len(slice))
	for _, v := range slice {
		if _, ok := sys.indIndex[v]; !ok {
			return nil, fmt.Errorf("gma: slice variable %q is not independent: %w", v, oracle.ErrArgument)
		}
		sliced[v] = true
	}
	j := &joint{index: make([][]int, n)}
	shared := make(map[int]int)
	for i, v := range sys.independent {
		if !sliced[v] {
			shared[i] = len(j.names)
			j.names = append(j.names, v)
			j.lo = append(j.lo, lo[i])
			j.hi = append(j.hi, hi[i])
		}
	}
	for k := 0; k < n; k++ {
		j.index[k] = make([]int, len(sys.independent))
		for i, v := range sys.independent {
			if col, ok := shared[i]; ok {
				j.index[k][i] = col
				continue
			}
			j.index[k][i] = len(j.names)
			j.names = append(j.names, fmt.Sprintf("%s#%d", v, k))
			j.lo = append(j.lo, lo[i])
			j.hi = append(j.hi, hi[i])
		}
	}

	return j, nil
}

func (j *joint) problem(leaves []*caseModel) *problem {
	p := &problem{lo: j.lo, hi: j.hi}
	for k, l := range leaves {
		for _, h := range l.halfspaces() {
			w := make([]float64, len(j.names))
			for i, v := range h.w {
				w[j.index[k][i]] += v
			}
			p.rows = append(p.rows, halfspace{w: w, w0: h.w0})
		}
	}

	return p
}

// combinations calls fn for every choice of one leaf per member until fn
// returns false.
func combinations(ctx context.Context, models []*caseModel, fn func([]*caseModel) (bool, error)) error {
	sets := make([][]*caseModel, len(models))
	for k, m := range models {
		l, err := m.leaves(ctx)
		if err != nil {
			return err
		}
		if len(l) == 0 {
			return nil
		}
		sets[k] = l
	}
	pick := make([]int, len(sets))
	cur := make([]*caseModel, len(sets))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		for k := range sets {
			cur[k] = sets[k][pick[k]]
		}
		more, err := fn(cur)
		if err != nil || !more {
			return err
		}
		// odometer, last member fastest
		k := len(pick) - 1
		for ; k >= 0; k-- {
			pick[k]++
			if pick[k] < len(sets[k]) {
				break
			}
			pick[k] = 0
		}
		if k < 0 {
			return nil
		}
	}
}

// Intersect reports whether all members share a point of box, letting slice
// variables differ per member.
//
// Implementation:
//   - Stage 1: resolve the handles and lay out the joint space, with one
//     column per member for every slice variable.
//   - Stage 2: walk the leaf combinations (subcases of cyclical members)
//     and stop at the first whose stacked halfspaces leave a margin; under
//     strict the margin must exceed strictMargin.
//
// Errors: oracle.ErrForeignHandle for handles of another engine,
// oracle.ErrArgument for slice variables that are not independent, and
// ctx.Err() between combinations.
//
// Complexity: one margin LP per combination, at most Π leaves(member).
func (e *Engine) Intersect(ctx context.Context, members []oracle.Case, slice []string, box oracle.Box, strict bool) (bool, error) {
	// 1) all members must come from one system of this engine
	models, err := e.members(members)
	if err != nil {
		return false, err
	}
	j, err := newJoint(models[0].sys, len(models), slice, box)
	if err != nil {
		return false, err
	}
	// 2) first feasible combination wins
	found := false
	err = combinations(ctx, models, func(leaves []*caseModel) (bool, error) {
		t, _, ok, err := j.problem(leaves).margin()
		if err != nil {
			return false, err
		}
		found = ok && (!strict || t > strictMargin)

		return !found, nil
	})

	return found, err
}

// IntersectionPoint returns a point shared by all members. Slice variables
// are reported once per member as "name#k".
//
// Implementation:
//   - Stage 1: build the joint space (shared columns, one column per member
//     for every slice variable) and translate the objective into it.
//   - Stage 2: for every choice of one leaf per member, measure the uniform
//     margin of the stacked halfspaces. Combinations whose closed region is
//     empty are skipped; under strict, so are those whose margin does not
//     exceed strictMargin, as Intersect does.
//   - Stage 3: keep the most interior point (nil objective) or the best
//     objective value over the surviving combinations.
//
// Complexity: one margin LP, plus one objective LP when obj is set, per
// leaf combination.
func (e *Engine) IntersectionPoint(ctx context.Context, members []oracle.Case, slice []string, box oracle.Box, obj *oracle.Objective, strict bool) (oracle.Point, error) {
	models, err := e.members(members)
	if err != nil {
		return nil, err
	}
	sys := models[0].sys
	j, err := newJoint(sys, len(models), slice, box)
	if err != nil {
		return nil, err
	}

	var c []float64
	var c0 float64
	if obj != nil {
		t, err := parseTerm(obj.Expr)
		if err != nil {
			return nil, fmt.Errorf("gma: objective: %w", err)
		}
		c = make([]float64, len(j.names))
		c0 = t.logCoef()
		for v, ex := range t.exps {
			i, ok := sys.indIndex[v]
			if !ok || j.names[j.index[0][i]] != v {
				return nil, fmt.Errorf("gma: objective variable %q must be a shared independent: %w", v, oracle.ErrArgument)
			}
			c[j.index[0][i]] += ex
		}
	}

	var best []float64
	bestScore := math.Inf(-1)
	err = combinations(ctx, models, func(leaves []*caseModel) (bool, error) {
		p := j.problem(leaves)

		// 1) the combination must be feasible, and interior when strict
		t, y, ok, err := p.margin()
		if err != nil {
			return false, err
		}
		if !ok || (strict && t <= strictMargin) {
			return true, nil
		}

		// 2) score it: margin itself, or the objective over the region
		score := t
		if obj != nil {
			if y, score, ok, err = p.optimize(c, c0, !obj.Minimize); err != nil {
				return false, err
			}
			if !ok {
				return true, nil
			}
			if obj.Minimize {
				score = -score
			}
		}
		if score > bestScore {
			best, bestScore = y, score
		}

		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if best == nil {
		return nil, fmt.Errorf("gma: intersection of %d cases: %w", len(models), oracle.ErrInfeasible)
	}
	pt := make(oracle.Point, len(best))
	for i, name := range j.names {
		pt[name] = math.Pow(10, best[i])
	}

	return pt, nil
}
