package gma

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/katalvlaran/dspace/matrix"
	"github.com/katalvlaran/dspace/oracle"
	"github.com/katalvlaran/dspace/signature"
)

type caseKind int

const (
	regular caseKind = iota
	cyclical
	degenerate
)

// balance is one equation reduced to its chosen dominant terms.
type balance struct {
	ode      bool
	pos, neg []term
	p, q     int
}

// solution is y_D = M·y_I + c in log10 coordinates.
type solution struct {
	m [][]float64
	c []float64
}

// aggregate is the summed equation replacing a flux cycle.
type aggregate struct {
	rep      int
	pos, neg []term
}

// caseModel is the immutable analysis of one case or subcase.
type caseModel struct {
	sys         *model
	number      uint64
	sig         signature.Signature
	path        []int
	eqs         []balance
	conds       []inequality
	extra       []inequality
	constraints []string

	kind caseKind
	sol  *solution
	agg  *aggregate
}

// newCaseModel builds case number of sys with attached constraints.
func newCaseModel(sys *model, number uint64, constraints []string) (*caseModel, error) {
	sig, err := sys.signature(number)
	if err != nil {
		return nil, err
	}
	c := &caseModel{sys: sys, number: number, sig: sig}
	for i, eq := range sys.eqs {
		b := balance{ode: eq.ode, pos: eq.pos, neg: eq.neg, p: sig[2*i] - 1, q: sig[2*i+1] - 1}
		c.eqs = append(c.eqs, b)
		c.conds = append(c.conds, dominance(b.pos, b.p)...)
		c.conds = append(c.conds, dominance(b.neg, b.q)...)
	}
	if err = c.attach(constraints); err != nil {
		return nil, err
	}
	c.classify()

	return c, nil
}

// dominance returns terms[chosen] > terms[r] for every other r.
func dominance(terms []term, chosen int) []inequality {
	var out []inequality
	for r := range terms {
		if r != chosen {
			out = append(out, inequality{lhs: terms[chosen], rhs: terms[r]})
		}
	}

	return out
}

// attach parses constraints and checks their variables.
func (c *caseModel) attach(constraints []string) error {
	for _, src := range constraints {
		q, err := parseConstraint(src)
		if err != nil {
			return fmt.Errorf("gma: constraint: %w", err)
		}
		for _, t := range []term{q.lhs, q.rhs} {
			for v := range t.exps {
				if !c.sys.known(v) {
					return fmt.Errorf("gma: constraint %q: unknown variable %q: %w", src, v, oracle.ErrArgument)
				}
			}
		}
		c.extra = append(c.extra, q)
		c.constraints = append(c.constraints, src)
	}

	return nil
}

// classify solves the S-system or, when it is singular, looks for a flux
// cycle to aggregate.
//
// Implementation:
//   - Stage 1: assemble A_D·y_D + A_I·y_I = b from the dominant terms.
//   - Stage 2: LU-factorize A_D; success makes the case regular.
//   - Stage 3: otherwise mark it degenerate and, when cycle resolution is
//     on and the nesting depth allows, collapse the first flux cycle.
//
// The result is stored in c.kind, c.sol and c.agg.
//
// Complexity: O(n³ + n²·k) for n dependent and k independent variables.
func (c *caseModel) classify() {
	// 1) one row per equation: dominant production minus dominant loss
	n, k := len(c.sys.dependent), len(c.sys.independent)
	ad, _ := matrix.NewDense(n, n)
	ai, _ := matrix.NewDense(n, max(k, 1))
	b := make([]float64, n)
	for i, eq := range c.eqs {
		p, q := eq.pos[eq.p], eq.neg[eq.q]
		for v, e := range p.exps {
			c.addCoef(ad, ai, i, v, e)
		}
		for v, e := range q.exps {
			c.addCoef(ad, ai, i, v, -e)
		}
		b[i] = p.logCoef() - q.logCoef()
	}

	// 2) a non-singular A_D gives the closed-form steady state
	lu, err := matrix.Factorize(ad)
	if err == nil {
		c.kind = regular
		c.sol = solve(lu, ai, b, k)

		return
	}

	// 3) singular: try a flux cycle, at most n levels deep
	c.kind = degenerate
	if !c.sys.def.Options.ResolveCycles || len(c.path) >= n {
		return
	}
	cycles := newFluxGraph(c.eqs).cycles()
	if len(cycles) == 0 {
		return
	}
	// 4) a cycle whose terms all cancel has no subcases
	agg := collapse(c.eqs, cycles[0])
	if len(agg.pos) == 0 || len(agg.neg) == 0 {
		return
	}
	c.kind = cyclical
	c.agg = agg
}

func (c *caseModel) addCoef(ad, ai *matrix.Dense, row int, v string, e float64) {
	if j, ok := c.sys.depIndex[v]; ok {
		old, _ := ad.At(row, j)
		_ = ad.Set(row, j, old+e)

		return
	}
	j := c.sys.indIndex[v]
	old, _ := ai.At(row, j)
	_ = ai.Set(row, j, old+e)
}

// solve returns M = −A_D⁻¹·A_I and c = −A_D⁻¹·b.
//
// Complexity: O(n²·(k+1)) reusing the factorization for every column.
func solve(lu *matrix.LU, ai *matrix.Dense, b []float64, k int) *solution {
	n := len(b)
	s := &solution{m: make([][]float64, n), c: make([]float64, n)}
	for i := range s.m {
		s.m[i] = make([]float64, k)
	}
	col := make([]float64, n)
	for j := 0; j < k; j++ {
		for i := 0; i < n; i++ {
			col[i], _ = ai.At(i, j)
		}
		x, _ := lu.Solve(col)
		for i := range x {
			s.m[i][j] = -x[i]
		}
	}
	x, _ := lu.Solve(b)
	for i := range x {
		s.c[i] = -x[i]
	}

	return s
}

// collapse sums the equations of cycle; a term entering one pool and leaving
// another cancels once per occurrence.
func collapse(eqs []balance, cycle []int) *aggregate {
	agg := &aggregate{rep: cycle[0]}
	var pos, neg []term
	for _, i := range cycle {
		pos = append(pos, eqs[i].pos...)
		neg = append(neg, eqs[i].neg...)
	}
	used := make([]bool, len(neg))
	for _, t := range pos {
		key := t.String()
		cancelled := false
		for j, u := range neg {
			if !used[j] && u.String() == key {
				used[j] = true
				cancelled = true

				break
			}
		}
		if !cancelled {
			agg.pos = append(agg.pos, t)
		}
	}
	for j, u := range neg {
		if !used[j] {
			agg.neg = append(agg.neg, u)
		}
	}

	return agg
}

// subcases returns the number of subcases of a cyclical case.
func (c *caseModel) subcases() int {
	if c.kind != cyclical {
		return 0
	}

	return len(c.agg.pos) * len(c.agg.neg)
}

// subcase resolves the 1-based subcase i.
func (c *caseModel) subcase(i int) (*caseModel, error) {
	if c.kind != cyclical {
		return nil, fmt.Errorf("gma: case %s is not cyclical: %w", c.id(), oracle.ErrArgument)
	}
	if i < 1 || i > c.subcases() {
		return nil, fmt.Errorf("gma: case %s has no subcase %d: %w", c.id(), i, oracle.ErrArgument)
	}
	nq := len(c.agg.neg)
	b := balance{
		ode: c.eqs[c.agg.rep].ode,
		pos: c.agg.pos,
		neg: c.agg.neg,
		p:   (i - 1) / nq,
		q:   (i - 1) % nq,
	}
	sub := &caseModel{
		sys:         c.sys,
		number:      c.number,
		sig:         c.sig,
		path:        append(append([]int(nil), c.path...), i),
		eqs:         append([]balance(nil), c.eqs...),
		conds:       append([]inequality(nil), c.conds...),
		extra:       c.extra,
		constraints: c.constraints,
	}
	sub.eqs[c.agg.rep] = b
	sub.conds = append(sub.conds, dominance(b.pos, b.p)...)
	sub.conds = append(sub.conds, dominance(b.neg, b.q)...)
	sub.classify()

	return sub, nil
}

func (c *caseModel) id() string {
	s := strconv.FormatUint(c.number, 10)
	for _, p := range c.path {
		s += "_" + strconv.Itoa(p)
	}

	return s
}

// leaves returns every regular case reachable through subcases.
func (c *caseModel) leaves(ctx context.Context) ([]*caseModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch c.kind {
	case regular:
		return []*caseModel{c}, nil
	case degenerate:
		return nil, nil
	}
	var out []*caseModel
	for i := 1; i <= c.subcases(); i++ {
		sub, err := c.subcase(i)
		if err != nil {
			return nil, err
		}
		l, err := sub.leaves(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, l...)
	}

	return out, nil
}

// logForm returns log10(t) as coefficients over dependent and independent
// variables plus a constant.
func (c *caseModel) logForm(t term) (dep, ind []float64, k float64) {
	dep = make([]float64, len(c.sys.dependent))
	ind = make([]float64, len(c.sys.independent))
	for v, e := range t.exps {
		if j, ok := c.sys.depIndex[v]; ok {
			dep[j] += e
		} else {
			ind[c.sys.indIndex[v]] += e
		}
	}

	return dep, ind, t.logCoef()
}

// substitute eliminates the dependent coefficients with the solution.
func (c *caseModel) substitute(dep, ind []float64, k float64) ([]float64, float64) {
	w := append([]float64(nil), ind...)
	for d, cd := range dep {
		if cd == 0 {
			continue
		}
		for j := range w {
			w[j] += cd * c.sol.m[d][j]
		}
		k += cd * c.sol.c[d]
	}

	return w, k
}

// halfspaces returns the region of a regular case over independent variables.
func (c *caseModel) halfspaces() []halfspace {
	all := append(append([]inequality(nil), c.conds...), c.extra...)
	rows := make([]halfspace, 0, len(all))
	for _, q := range all {
		dl, il, kl := c.logForm(q.lhs)
		dr, ir, kr := c.logForm(q.rhs)
		for j := range dl {
			dl[j] -= dr[j]
		}
		for j := range il {
			il[j] -= ir[j]
		}
		w, w0 := c.substitute(dl, il, kl-kr)
		rows = append(rows, halfspace{w: w, w0: w0})
	}

	return rows
}

// boundaries renders the half-spaces as monomial inequalities.
func (c *caseModel) boundaries() []string {
	if c.kind != regular {
		return nil
	}
	var out []string
	for _, h := range c.halfspaces() {
		t := term{coef: math.Pow(10, h.w0), exps: make(map[string]float64)}
		for j, w := range h.w {
			if math.Abs(w) > 1e-12 {
				t.exps[c.sys.independent[j]] = roundExp(w)
			}
		}
		out = append(out, t.String()+" > 1")
	}

	return out
}

func roundExp(w float64) float64 { return math.Round(w*1e9) / 1e9 }

// conditions renders the dominance conditions.
func (c *caseModel) conditions() []string {
	out := make([]string, 0, len(c.conds))
	for _, q := range c.conds {
		out = append(out, q.String())
	}

	return out
}

// logBox converts a linear box into per-independent log bounds.
func (c *caseModel) logBox(box oracle.Box) (lo, hi []float64, err error) {
	return logBox(c.sys, box)
}

func logBox(sys *model, box oracle.Box) (lo, hi []float64, err error) {
	if err = oracle.CheckBounds(box); err != nil {
		return nil, nil, err
	}
	for v := range box {
		if _, ok := sys.indIndex[v]; !ok {
			return nil, nil, fmt.Errorf("gma: %q is not an independent variable: %w", v, oracle.ErrArgument)
		}
	}
	lo = make([]float64, len(sys.independent))
	hi = make([]float64, len(sys.independent))
	for i, v := range sys.independent {
		r, ok := box[v]
		if !ok {
			r = oracle.Range{Lower: oracle.DefaultLower, Upper: oracle.DefaultUpper}
		}
		lo[i], hi[i] = r.Log()
	}

	return lo, hi, nil
}

func (c *caseModel) problem(box oracle.Box) (*problem, error) {
	lo, hi, err := c.logBox(box)
	if err != nil {
		return nil, err
	}

	return &problem{lo: lo, hi: hi, rows: c.halfspaces()}, nil
}

// feasible reports whether any leaf has a (strictly interior) point in box.
func (c *caseModel) feasible(ctx context.Context, box oracle.Box, strict bool) (bool, error) {
	if _, _, err := c.logBox(box); err != nil {
		return false, err
	}
	leaves, err := c.leaves(ctx)
	if err != nil {
		return false, err
	}
	for _, l := range leaves {
		p, err := l.problem(box)
		if err != nil {
			return false, err
		}
		t, _, ok, err := p.margin()
		if err != nil {
			return false, err
		}
		if ok && (!strict || t > strictMargin) {
			return true, nil
		}
	}

	return false, nil
}

// validPoint returns the most interior point, or the objective extremum.
func (c *caseModel) validPoint(ctx context.Context, box oracle.Box, obj *oracle.Objective) (oracle.Point, error) {
	if _, _, err := c.logBox(box); err != nil {
		return nil, err
	}
	var target term
	if obj != nil {
		var err error
		if target, err = parseTerm(obj.Expr); err != nil {
			return nil, fmt.Errorf("gma: objective: %w", err)
		}
		for v := range target.exps {
			if !c.sys.known(v) {
				return nil, fmt.Errorf("gma: objective: unknown variable %q: %w", v, oracle.ErrArgument)
			}
		}
	}
	leaves, err := c.leaves(ctx)
	if err != nil {
		return nil, err
	}

	var best []float64
	bestScore := math.Inf(-1)
	for _, l := range leaves {
		p, err := l.problem(box)
		if err != nil {
			return nil, err
		}
		var y []float64
		var score float64
		var ok bool
		if obj == nil {
			score, y, ok, err = p.margin()
		} else {
			w, w0 := l.substitute(l.logForm(target))
			y, score, ok, err = p.optimize(w, w0, !obj.Minimize)
			if obj.Minimize {
				score = -score
			}
		}
		if err != nil {
			return nil, err
		}
		if ok && score > bestScore {
			best, bestScore = y, score
		}
	}
	if best == nil {
		return nil, fmt.Errorf("gma: case %s: %w", c.id(), oracle.ErrInfeasible)
	}

	return c.linear(best), nil
}

func (c *caseModel) linear(y []float64) oracle.Point {
	pt := make(oracle.Point, len(y))
	for i, v := range c.sys.independent {
		pt[v] = math.Pow(10, y[i])
	}

	return pt
}

// boundingRange returns the log extent of variable over every feasible leaf.
func (c *caseModel) boundingRange(ctx context.Context, variable string, box oracle.Box) (float64, float64, error) {
	if _, _, err := c.logBox(box); err != nil {
		return 0, 0, err
	}
	if !c.sys.known(variable) {
		return 0, 0, fmt.Errorf("gma: unknown variable %q: %w", variable, oracle.ErrArgument)
	}
	leaves, err := c.leaves(ctx)
	if err != nil {
		return 0, 0, err
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, l := range leaves {
		p, err := l.problem(box)
		if err != nil {
			return 0, 0, err
		}
		w, w0 := l.substitute(l.logForm(term{coef: 1, exps: map[string]float64{variable: 1}}))
		a, b, ok, err := p.extent(w, w0)
		if err != nil {
			return 0, 0, err
		}
		if ok {
			lo, hi = math.Min(lo, a), math.Max(hi, b)
		}
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("gma: case %s: range of %q: %w", c.id(), variable, oracle.ErrInfeasible)
	}

	return lo, hi, nil
}

// vertices returns the log vertices of a 1-D or 2-D slice.
func (c *caseModel) vertices(box oracle.Box, vars []string) ([][]float64, error) {
	if c.kind == cyclical {
		return nil, fmt.Errorf("gma: case %s: %w", c.id(), oracle.ErrCyclical)
	}
	if len(vars) == 0 || len(vars) > 2 {
		return nil, fmt.Errorf("gma: %d slice variables: %w", len(vars), oracle.ErrUnsupported)
	}
	lo, hi, err := c.logBox(box)
	if err != nil {
		return nil, err
	}
	if c.kind == degenerate {
		return nil, fmt.Errorf("gma: case %s: %w", c.id(), oracle.ErrInfeasible)
	}
	idx := make([]int, len(vars))
	for n, v := range vars {
		i, ok := c.sys.indIndex[v]
		if !ok {
			return nil, fmt.Errorf("gma: %q is not an independent variable: %w", v, oracle.ErrArgument)
		}
		idx[n] = i
	}
	for i := range lo {
		if lo[i] == hi[i] {
			continue
		}
		if i != idx[0] && (len(idx) == 1 || i != idx[1]) {
			return nil, fmt.Errorf("gma: %q must be pinned for a slice: %w", c.sys.independent[i], oracle.ErrArgument)
		}
	}
	p := &problem{lo: lo, hi: hi, rows: c.halfspaces()}

	if len(idx) == 1 {
		e := make([]float64, len(lo))
		e[idx[0]] = 1
		a, b, ok, err := p.extent(e, 0)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("gma: case %s: %w", c.id(), oracle.ErrInfeasible)
		}

		return [][]float64{{a}, {b}}, nil
	}
	poly := p.polygon(idx[0], idx[1])
	if len(poly) == 0 {
		return nil, fmt.Errorf("gma: case %s: %w", c.id(), oracle.ErrInfeasible)
	}

	return poly, nil
}

// regularOnly guards queries that need a single resolved S-system.
func (c *caseModel) regularOnly() error {
	switch c.kind {
	case cyclical:
		return fmt.Errorf("gma: case %s: %w", c.id(), oracle.ErrCyclical)
	case degenerate:
		return fmt.Errorf("gma: case %s: %w", c.id(), oracle.ErrNoSteadyState)
	}

	return nil
}

// steadyLog returns log10 of every dependent variable at parameters p.
func (c *caseModel) steadyLog(p oracle.Point) ([]float64, []float64, error) {
	if err := c.regularOnly(); err != nil {
		return nil, nil, err
	}
	yi := make([]float64, len(c.sys.independent))
	for i, v := range c.sys.independent {
		x, ok := p[v]
		if !ok || !(x > 0) {
			return nil, nil, fmt.Errorf("gma: parameter %q missing or not positive: %w", v, oracle.ErrArgument)
		}
		yi[i] = math.Log10(x)
	}
	yd := make([]float64, len(c.sys.dependent))
	for d := range yd {
		yd[d] = c.sol.c[d]
		for j, m := range c.sol.m[d] {
			yd[d] += m * yi[j]
		}
	}

	return yd, yi, nil
}

func (c *caseModel) evalLog(t term, yd, yi []float64) float64 {
	dep, ind, k := c.logForm(t)
	for j, e := range dep {
		k += e * yd[j]
	}
	for j, e := range ind {
		k += e * yi[j]
	}

	return k
}

func (c *caseModel) steadyState(p oracle.Point) (oracle.Point, error) {
	yd, _, err := c.steadyLog(p)
	if err != nil {
		return nil, err
	}
	out := make(oracle.Point, len(yd))
	for d, v := range c.sys.dependent {
		out[v] = math.Pow(10, yd[d])
	}

	return out, nil
}

// steadyStateFlux returns the dominant positive flux of every equation,
// keyed "V_" + dependent variable.
func (c *caseModel) steadyStateFlux(p oracle.Point) (oracle.Point, error) {
	yd, yi, err := c.steadyLog(p)
	if err != nil {
		return nil, err
	}
	out := make(oracle.Point, len(yd))
	for i, eq := range c.eqs {
		out["V_"+c.sys.dependent[i]] = math.Pow(10, c.evalLog(eq.pos[eq.p], yd, yi))
	}

	return out, nil
}

// positiveRoots counts eigenvalues with positive real part of the S-system
// Jacobian at the steady state for p. Algebraic rows are eliminated with a
// Schur complement first.
func (c *caseModel) positiveRoots(p oracle.Point) (int, error) {
	yd, yi, err := c.steadyLog(p)
	if err != nil {
		return 0, err
	}
	n := len(yd)
	jac := make([][]float64, n)
	for i, eq := range c.eqs {
		jac[i] = make([]float64, n)
		v := math.Pow(10, c.evalLog(eq.pos[eq.p], yd, yi))
		gp, _, _ := c.logForm(eq.pos[eq.p])
		gn, _, _ := c.logForm(eq.neg[eq.q])
		for j := 0; j < n; j++ {
			jac[i][j] = v * (gp[j] - gn[j]) / math.Pow(10, yd[j])
		}
	}

	var ode, alg []int
	for i, eq := range c.eqs {
		if eq.ode {
			ode = append(ode, i)
		} else {
			alg = append(alg, i)
		}
	}
	if len(ode) == 0 {
		return 0, nil
	}
	red, err := schur(jac, ode, alg)
	if err != nil {
		return 0, fmt.Errorf("gma: case %s: %w: %w", c.id(), oracle.ErrNoSteadyState, err)
	}

	return matrix.CountRightHalfPlane(red)
}

// schur returns J_oo − J_oa·J_aa⁻¹·J_ao.
func schur(jac [][]float64, ode, alg []int) (*matrix.Dense, error) {
	pick := func(rows, cols []int) [][]float64 {
		out := make([][]float64, len(rows))
		for i, r := range rows {
			out[i] = make([]float64, len(cols))
			for j, col := range cols {
				out[i][j] = jac[r][col]
			}
		}

		return out
	}
	joo, err := matrix.FromRows(pick(ode, ode))
	if err != nil {
		return nil, err
	}
	if len(alg) == 0 {
		return joo, nil
	}
	joa, err := matrix.FromRows(pick(ode, alg))
	if err != nil {
		return nil, err
	}
	jaa, err := matrix.FromRows(pick(alg, alg))
	if err != nil {
		return nil, err
	}
	jao, err := matrix.FromRows(pick(alg, ode))
	if err != nil {
		return nil, err
	}
	x, err := matrix.SolveMatrix(jaa, jao)
	if err != nil {
		return nil, err
	}
	corr, err := matrix.Mul(joa, x)
	if err != nil {
		return nil, err
	}
	rows := joo.ToRows()
	for i := range rows {
		for j := range rows[i] {
			v, _ := corr.At(i, j)
			rows[i][j] -= v
		}
	}

	return matrix.FromRows(rows)
}

// logGains returns M keyed by dependent then independent variable.
func (c *caseModel) logGains() (map[string]map[string]float64, error) {
	if err := c.regularOnly(); err != nil {
		return nil, err
	}
	out := make(map[string]map[string]float64, len(c.sys.dependent))
	for d, dv := range c.sys.dependent {
		row := make(map[string]float64, len(c.sys.independent))
		for j, iv := range c.sys.independent {
			row[iv] = c.sol.m[d][j]
		}
		out[dv] = row
	}

	return out, nil
}

// constrain returns a copy of c with more constraints, replaying the
// subcase path so the new rows reach every level.
func (c *caseModel) constrain(constraints []string) (*caseModel, error) {
	all := append(append([]string(nil), c.constraints...), constraints...)

	return rebuild(c.sys, c.number, c.path, all)
}

// rebuild constructs a case from its number, subcase path and constraints.
func rebuild(sys *model, number uint64, path []int, constraints []string) (*caseModel, error) {
	cur, err := newCaseModel(sys, number, constraints)
	if err != nil {
		return nil, err
	}
	for _, i := range path {
		if cur, err = cur.subcase(i); err != nil {
			return nil, err
		}
	}

	return cur, nil
}
