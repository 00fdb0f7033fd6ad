package designspace_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/katalvlaran/dspace/oracle"
	"github.com/katalvlaran/dspace/signature"
)

// region describes one fake case. Variables missing from box are
// unbounded; an empty region has no point at all.
type region struct {
	box        map[string][2]float64 // log10 extents
	empty      bool
	subcases   []*region
	dependent  []string // overrides the system's dependent variables
	degenerate bool     // ValidPoint answers 0 unless asked over the default box
	failRange  bool     // BoundingRange always fails
	roots      int
}

func (r *region) extent(v string) (float64, float64) {
	if r.empty {
		return 1, -1
	}
	if e, ok := r.box[v]; ok {
		return e[0], e[1]
	}

	return -30, 30
}

// fakeEngine answers geometry questions over axis-aligned log boxes.
type fakeEngine struct {
	dep, ind []string
	radix    []int
	cases    map[uint64]*region
	stoich   oracle.Stoichiometry

	mu    sync.Mutex
	calls map[string]int
	live  atomic.Int64
}

func newFake(ind []string, radix []int, cases map[uint64]*region) *fakeEngine {
	return &fakeEngine{
		dep:   []string{"X"},
		ind:   ind,
		radix: radix,
		cases: cases,
		calls: make(map[string]int),
	}
}

func (e *fakeEngine) count(op string) {
	e.mu.Lock()
	e.calls[op]++
	e.mu.Unlock()
}

func (e *fakeEngine) Calls(op string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.calls[op]
}

func (e *fakeEngine) Live() int { return int(e.live.Load()) }

func (e *fakeEngine) total() uint64 {
	n := uint64(1)
	for _, r := range e.radix {
		n *= uint64(r)
	}

	return n
}

func (e *fakeEngine) NewSystem(_ context.Context, def oracle.Definition) (oracle.System, error) {
	e.live.Add(1)
	return &fakeSystem{e: e, def: def}, nil
}

func (e *fakeEngine) DecodeSystem(_ context.Context, blob []byte) (oracle.System, error) {
	eqs, ok := strings.CutPrefix(string(blob), "system:")
	if !ok {
		return nil, oracle.ErrArgument
	}
	e.live.Add(1)

	return &fakeSystem{e: e, def: oracle.Definition{Equations: strings.Split(eqs, ";")}}, nil
}

func (e *fakeEngine) DecodeCase(_ context.Context, blob []byte) (oracle.Case, error) {
	parts := strings.Split(string(blob), ":")
	n, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || n == 0 || n > e.total() {
		return nil, oracle.ErrArgument
	}
	c := e.open(n)
	for _, p := range parts[1:] {
		i, _ := strconv.Atoi(p)
		sub, err := c.Subcase(context.Background(), i)
		_ = c.Close()
		if err != nil {
			return nil, err
		}
		c = sub.(*fakeCase)
	}

	return c, nil
}

func (e *fakeEngine) open(n uint64) *fakeCase {
	r, ok := e.cases[n]
	if !ok {
		r = &region{empty: true}
	}
	e.live.Add(1)

	return &fakeCase{e: e, r: r, number: n}
}

func (e *fakeEngine) cast(members []oracle.Case) ([]*fakeCase, error) {
	out := make([]*fakeCase, len(members))
	for i, m := range members {
		fc, ok := m.(*fakeCase)
		if !ok || fc.e != e {
			return nil, oracle.ErrForeignHandle
		}
		out[i] = fc
	}

	return out, nil
}

// shared intersects the member extents of v.
func shared(members []*fakeCase, v string, box oracle.Box) (float64, float64) {
	lo, hi := math.Inf(-1), math.Inf(1)
	for _, m := range members {
		l, h := m.clip(v, box)
		lo, hi = math.Max(lo, l), math.Min(hi, h)
	}

	return lo, hi
}

func (e *fakeEngine) Intersect(_ context.Context, members []oracle.Case, slice []string, box oracle.Box, strict bool) (bool, error) {
	e.count("intersect")
	ms, err := e.cast(members)
	if err != nil {
		return false, err
	}
	sliced := make(map[string]bool)
	for _, s := range slice {
		sliced[s] = true
	}
	for _, v := range e.ind {
		if sliced[v] {
			for _, m := range ms {
				lo, hi := m.clip(v, box)
				if strict && !pinned(box, v) && !(lo < hi) {
					return false, nil
				}
				if !fits(lo, hi) {
					return false, nil
				}
			}
			continue
		}
		lo, hi := shared(ms, v, box)
		if strict && !pinned(box, v) && !(lo < hi) {
			return false, nil
		}
		if !fits(lo, hi) {
			return false, nil
		}
	}

	return true, nil
}

func (e *fakeEngine) IntersectionPoint(ctx context.Context, members []oracle.Case, slice []string, box oracle.Box, _ *oracle.Objective, strict bool) (oracle.Point, error) {
	e.count("intersection_point")
	ok, err := e.Intersect(ctx, members, slice, box, strict)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, oracle.ErrInfeasible
	}
	ms, _ := e.cast(members)
	sliced := make(map[string]bool)
	for _, s := range slice {
		sliced[s] = true
	}
	p := make(oracle.Point)
	for _, v := range e.ind {
		if !sliced[v] {
			lo, hi := shared(ms, v, box)
			p[v] = math.Pow(10, (lo+hi)/2)
			continue
		}
		for k, m := range ms {
			lo, hi := m.clip(v, box)
			p[fmt.Sprintf("%s#%d", v, k)] = math.Pow(10, (lo+hi)/2)
		}
	}

	return p, nil
}

func fits(lo, hi float64) bool { return lo <= hi }

func pinned(box oracle.Box, v string) bool {
	r, ok := box[v]
	return ok && r.Pinned()
}

func isDefault(box oracle.Box) bool {
	for _, r := range box {
		if r.Lower != oracle.DefaultLower || r.Upper != oracle.DefaultUpper {
			return false
		}
	}

	return true
}

type fakeSystem struct {
	e   *fakeEngine
	def oracle.Definition
}

func (s *fakeSystem) Dependent() []string          { return append([]string(nil), s.e.dep...) }
func (s *fakeSystem) Independent() []string        { return append([]string(nil), s.e.ind...) }
func (s *fakeSystem) Equations() []string          { return s.def.Equations }
func (s *fakeSystem) Auxiliary() []string          { return s.def.Auxiliary }
func (s *fakeSystem) Options() oracle.SystemOptions { return s.def.Options }
func (s *fakeSystem) Positions() []int             { return append([]int(nil), s.e.radix...) }
func (s *fakeSystem) NumberOfCases() uint64        { return s.e.total() }

func (s *fakeSystem) CaseNumber(sig signature.Signature) (uint64, error) {
	if err := sig.Validate(s.e.radix); err != nil {
		return 0, err
	}
	n := uint64(0)
	for i, v := range sig {
		n = n*uint64(s.e.radix[i]) + uint64(v-1)
	}

	return n + 1, nil
}

func (s *fakeSystem) Signature(number uint64) (signature.Signature, error) {
	if number == 0 || number > s.e.total() {
		return nil, oracle.ErrArgument
	}
	sig := make(signature.Signature, len(s.e.radix))
	n := number - 1
	for i := len(sig) - 1; i >= 0; i-- {
		sig[i] = int(n%uint64(s.e.radix[i])) + 1
		n /= uint64(s.e.radix[i])
	}

	return sig, nil
}

func (s *fakeSystem) Case(_ context.Context, number uint64) (oracle.Case, error) {
	if number == 0 || number > s.e.total() {
		return nil, oracle.ErrArgument
	}

	return s.e.open(number), nil
}

func (s *fakeSystem) Stoichiometry() (oracle.Stoichiometry, error) { return s.e.stoich, nil }

func (s *fakeSystem) Encode() ([]byte, error) {
	return []byte("system:" + strings.Join(s.def.Equations, ";")), nil
}

func (s *fakeSystem) Close() error {
	s.e.live.Add(-1)
	return nil
}

type fakeCase struct {
	e           *fakeEngine
	r           *region
	number      uint64
	path        []int
	constraints []string
	closed      atomic.Bool
}

// clip returns the extent of v inside box.
func (c *fakeCase) clip(v string, box oracle.Box) (float64, float64) {
	lo, hi := c.r.extent(v)
	if len(c.r.subcases) > 0 {
		lo, hi = math.Inf(1), math.Inf(-1)
		for _, sub := range c.r.subcases {
			l, h := sub.extent(v)
			lo, hi = math.Min(lo, l), math.Max(hi, h)
		}
	}
	bl, bh := -20.0, 20.0
	if r, ok := box[v]; ok {
		bl, bh = r.Log()
	}

	return math.Max(lo, bl), math.Min(hi, bh)
}

func (c *fakeCase) feasible(box oracle.Box, strict bool) bool {
	if len(c.r.subcases) > 0 {
		for i := range c.r.subcases {
			if c.child(i+1).feasible(box, strict) {
				return true
			}
		}
		return false
	}
	for _, v := range c.e.ind {
		lo, hi := c.clip(v, box)
		if !fits(lo, hi) {
			return false
		}
		if strict {
			rl, rh := c.r.extent(v)
			if pinned(box, v) {
				if bl, _ := box[v].Log(); !(rl < bl && bl < rh) {
					return false
				}
			} else if !(lo < hi) {
				return false
			}
		}
	}

	return true
}

func (c *fakeCase) child(i int) *fakeCase {
	return &fakeCase{e: c.e, r: c.r.subcases[i-1], number: c.number, path: append(append([]int(nil), c.path...), i)}
}

func (c *fakeCase) Dependent() []string {
	if c.r.dependent != nil {
		return append([]string(nil), c.r.dependent...)
	}

	return append([]string(nil), c.e.dep...)
}

func (c *fakeCase) Independent() []string { return append([]string(nil), c.e.ind...) }
func (c *fakeCase) Number() uint64        { return c.number }

func (c *fakeCase) Signature() signature.Signature {
	sig, _ := (&fakeSystem{e: c.e}).Signature(c.number)
	return sig
}

func (c *fakeCase) Conditions() []string  { return []string{"fake"} }
func (c *fakeCase) Boundaries() []string  { return []string{"fake"} }
func (c *fakeCase) Constraints() []string { return append([]string(nil), c.constraints...) }
func (c *fakeCase) Cyclical() bool        { return len(c.r.subcases) > 0 }
func (c *fakeCase) Subcases() int         { return len(c.r.subcases) }

func (c *fakeCase) Subcase(_ context.Context, i int) (oracle.Case, error) {
	if i < 1 || i > len(c.r.subcases) {
		return nil, oracle.ErrArgument
	}
	c.e.live.Add(1)

	return c.child(i), nil
}

func (c *fakeCase) Feasible(_ context.Context, box oracle.Box, strict bool) (bool, error) {
	c.e.count("feasible")
	if c.closed.Load() {
		return false, oracle.ErrHandleReleased
	}

	return c.feasible(box, strict), nil
}

func (c *fakeCase) ValidPoint(_ context.Context, box oracle.Box, _ *oracle.Objective) (oracle.Point, error) {
	c.e.count("valid_point")
	if !c.feasible(box, false) {
		return nil, oracle.ErrInfeasible
	}
	p := make(oracle.Point)
	for _, v := range c.e.ind {
		lo, hi := c.clip(v, box)
		p[v] = math.Pow(10, (lo+hi)/2)
	}
	if c.r.degenerate && !isDefault(box) {
		p[c.e.ind[0]] = 0
	}

	return p, nil
}

func (c *fakeCase) BoundingRange(_ context.Context, variable string, box oracle.Box) (float64, float64, error) {
	c.e.count("bounding_range")
	if c.r.failRange {
		return 0, 0, errors.New("fake: range unavailable")
	}
	for _, v := range c.e.ind {
		if !fits(c.clip(v, box)) {
			return 0, 0, oracle.ErrInfeasible
		}
	}
	lo, hi := c.clip(variable, box)

	return lo, hi, nil
}

func (c *fakeCase) Vertices(_ context.Context, box oracle.Box, vars []string) ([][]float64, error) {
	if len(vars) > 2 {
		return nil, oracle.ErrUnsupported
	}
	if !c.feasible(box, false) {
		return nil, oracle.ErrInfeasible
	}
	x0, x1 := c.clip(vars[0], box)
	if len(vars) == 1 {
		return [][]float64{{x0}, {x1}}, nil
	}
	y0, y1 := c.clip(vars[1], box)

	return [][]float64{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}, nil
}

func (c *fakeCase) SteadyState(_ context.Context, _ oracle.Point) (oracle.Point, error) {
	if c.Cyclical() {
		return nil, oracle.ErrCyclical
	}

	return oracle.Point{"X": float64(c.number)}, nil
}

func (c *fakeCase) SteadyStateFlux(_ context.Context, _ oracle.Point) (oracle.Point, error) {
	if c.Cyclical() {
		return nil, oracle.ErrCyclical
	}

	return oracle.Point{"V_X": float64(c.number)}, nil
}

func (c *fakeCase) PositiveRoots(_ context.Context, _ oracle.Point) (int, error) {
	if c.Cyclical() {
		return 0, oracle.ErrCyclical
	}

	return c.r.roots, nil
}

func (c *fakeCase) LogGains(_ context.Context) (map[string]map[string]float64, error) {
	if c.Cyclical() {
		return nil, oracle.ErrCyclical
	}
	g := make(map[string]float64)
	for i, v := range c.e.ind {
		g[v] = float64(c.number) * float64(i+1)
	}

	return map[string]map[string]float64{"X": g}, nil
}

func (c *fakeCase) Constrain(_ context.Context, constraints []string) (oracle.Case, error) {
	cp := &fakeCase{e: c.e, r: c.r, number: c.number, path: c.path}
	cp.constraints = append(append([]string(nil), c.constraints...), constraints...)
	c.e.live.Add(1)

	return cp, nil
}

func (c *fakeCase) Clone() (oracle.Case, error) {
	return c.Constrain(context.Background(), nil)
}

func (c *fakeCase) Encode() ([]byte, error) {
	parts := []string{strconv.FormatUint(c.number, 10)}
	for _, p := range c.path {
		parts = append(parts, strconv.Itoa(p))
	}

	return []byte(strings.Join(parts, ":")), nil
}

func (c *fakeCase) Close() error {
	if c.closed.Swap(true) {
		return oracle.ErrHandleReleased
	}
	c.e.live.Add(-1)

	return nil
}
