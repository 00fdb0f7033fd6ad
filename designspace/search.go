package designspace

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/dspace/caseid"
	"github.com/katalvlaran/dspace/oracle"
)

// Set is a sorted set of case identifiers.
type Set []caseid.ID

// Key returns an order-independent key of the set.
func (s Set) Key() string { return caseid.Key(s) }

// Strings returns the identifiers in canonical form.
func (s Set) Strings() []string { return caseid.Strings(s) }

// compareSets orders sets by size, then element-wise.
func compareSets(a, b Set) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	for i := range a {
		if c := caseid.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}

	return 0
}

func sortSets(sets []Set) {
	sort.Slice(sets, func(i, j int) bool { return compareSets(sets[i], sets[j]) < 0 })
}

// merge returns the sorted union of a and b.
func merge(a, b Set) Set {
	out := make(Set, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j == len(b) || (i < len(a) && caseid.Compare(a[i], b[j]) < 0):
			out = append(out, a[i])
			i++
		case i == len(a) || caseid.Compare(a[i], b[j]) > 0:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}

	return out
}

// dedupe returns the distinct ids of ids in sorted order.
func dedupe(ids []caseid.ID) []caseid.ID {
	seen := make(map[string]bool, len(ids))
	var out []caseid.ID
	for _, id := range ids {
		if k := id.String(); !seen[k] {
			seen[k] = true
			out = append(out, id)
		}
	}
	caseid.Sort(out)

	return out
}

// ValidCases returns every case valid under opts, sorted in dotted-decimal
// order. With Options.ExpandCycles (the default) a valid cyclical case is
// reported by its valid leaf subcases.
//
// Cases are tested concurrently on Config.Workers goroutines.
func (ds *DesignSpace) ValidCases(ctx context.Context, opts ...Option) ([]caseid.ID, error) {
	o := newOptions(opts)
	box, err := ds.env.cfg.box(ds.sys.Independent(), o)
	if err != nil {
		return nil, err
	}

	return ds.validCases(ctx, box, o)
}

func (ds *DesignSpace) validCases(ctx context.Context, box oracle.Box, o Options) ([]caseid.ID, error) {
	var (
		mu  sync.Mutex
		out []caseid.ID
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ds.env.cfg.Workers)

	for n := uint64(1); n <= ds.sys.NumberOfCases(); n++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			h, err := ds.sys.Case(gctx, n)
			if err != nil {
				return fmt.Errorf("ValidCases: case %d: %w", n, err)
			}
			defer h.Close()

			ids, err := validIDs(gctx, h, caseid.New(n), box, o)
			if err != nil {
				return fmt.Errorf("ValidCases: %w", err)
			}
			mu.Lock()
			out = append(out, ids...)
			mu.Unlock()

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	caseid.Sort(out)

	return out, nil
}

// validIDs tests h and, when expanding, walks its valid subcases.
func validIDs(ctx context.Context, h oracle.Case, id caseid.ID, box oracle.Box, o Options) ([]caseid.ID, error) {
	ok, err := h.Feasible(ctx, box, o.Strict)
	if err != nil {
		return nil, fmt.Errorf("case %s: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	if !o.ExpandCycles || !h.Cyclical() {
		return []caseid.ID{id}, nil
	}

	var out []caseid.ID
	for i := 1; i <= h.Subcases(); i++ {
		sub, err := h.Subcase(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", id.Child(i), err)
		}
		ids, err := validIDs(ctx, sub, id.Child(i), box, o)
		_ = sub.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}
	if len(out) == 0 {
		// the union is valid but no single subcase is: keep the parent
		return []caseid.ID{id}, nil
	}

	return out, nil
}

// CyclesToSubcases replaces every cyclical id, recursively, by its
// subcases. The result is sorted and applying it twice changes nothing.
func (ds *DesignSpace) CyclesToSubcases(ctx context.Context, ids []caseid.ID) ([]caseid.ID, error) {
	var out []caseid.ID
	for _, id := range dedupe(ids) {
		h, err := ds.open(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("CyclesToSubcases: %w", err)
		}
		err = leaves(ctx, h, id, func(leaf caseid.ID, _ oracle.Case) error {
			out = append(out, leaf)
			return nil
		})
		_ = h.Close()
		if err != nil {
			return nil, fmt.Errorf("CyclesToSubcases: %w", err)
		}
	}

	return dedupe(out), nil
}

// setTest decides one candidate set.
type setTest func(ctx context.Context, members []*Case) (bool, error)

// ValidIntersectingCases returns every set of the given sizes, drawn from
// ids, whose cases share a valid point. Sets are sorted by size, then
// element-wise.
//
// Level 1 keeps the valid singletons. In Heuristic mode level k tests the
// unions of two valid (k-1)-sets that have exactly k members; in Complete
// mode it tests every k-subset of the valid singletons. The search stops at
// the largest requested size or at the first empty level.
func (ds *DesignSpace) ValidIntersectingCases(ctx context.Context, sizes []int, ids []caseid.ID, opts ...Option) ([]Set, error) {
	o := newOptions(opts)
	box, err := ds.env.cfg.box(ds.sys.Independent(), o)
	if err != nil {
		return nil, err
	}
	want, top, err := ds.checkSizes(sizes)
	if err != nil {
		return nil, err
	}

	test := func(ctx context.Context, members []*Case) (bool, error) {
		return ds.env.engine.Intersect(ctx, handles(members), nil, box, o.Strict)
	}
	levels, err := ds.grow(ctx, ids, box, o, top, test)
	if err != nil {
		return nil, err
	}

	var out []Set
	for k, level := range levels {
		if want[k+1] {
			out = append(out, level...)
		}
	}

	return out, nil
}

// MaximumCoLocalizedCases grows co-localized sets of ids over slice and
// returns the sets of the largest size that has any.
func (ds *DesignSpace) MaximumCoLocalizedCases(ctx context.Context, ids []caseid.ID, slice []string, opts ...Option) ([]Set, error) {
	o := newOptions(opts)
	box, err := ds.env.cfg.box(ds.sys.Independent(), o)
	if err != nil {
		return nil, err
	}
	if len(slice) == 0 {
		return nil, fmt.Errorf("MaximumCoLocalizedCases: no slice variables: %w", oracle.ErrArgument)
	}
	if err := ds.isIndependent(slice...); err != nil {
		return nil, fmt.Errorf("MaximumCoLocalizedCases: %w", err)
	}

	test := func(ctx context.Context, members []*Case) (bool, error) {
		return ds.env.engine.Intersect(ctx, handles(members), slice, box, o.Strict)
	}
	levels, err := ds.grow(ctx, ids, box, o, 0, test)
	if err != nil {
		return nil, err
	}
	for k := len(levels) - 1; k >= 0; k-- {
		if len(levels[k]) > 0 {
			return levels[k], nil
		}
	}

	return nil, nil
}

// CoLocalizeCases returns a parameter set at which every case of ids is
// valid, the slice variables taking one value per case.
func (ds *DesignSpace) CoLocalizeCases(ctx context.Context, ids []caseid.ID, slice []string, opts ...Option) (Colocation, error) {
	cases, err := ds.openAll(ctx, ids)
	if err != nil {
		return Colocation{}, fmt.Errorf("CoLocalizeCases: %w", err)
	}
	defer closeCases(cases)

	cl, err := NewColocalization(ctx, cases, slice)
	if err != nil {
		return Colocation{}, fmt.Errorf("CoLocalizeCases: %w", err)
	}
	defer cl.Close()

	return cl.ValidParameterSet(ctx, opts...)
}

func (ds *DesignSpace) checkSizes(sizes []int) (map[int]bool, int, error) {
	if len(sizes) == 0 {
		return nil, 0, fmt.Errorf("no sizes requested: %w", oracle.ErrArgument)
	}
	want := make(map[int]bool, len(sizes))
	top := 0
	for _, s := range sizes {
		if s < 1 {
			return nil, 0, fmt.Errorf("size %d: %w", s, oracle.ErrArgument)
		}
		want[s] = true
		top = max(top, s)
	}
	if top > ds.env.cfg.MaxSize {
		return nil, 0, fmt.Errorf("size %d above %d: %w", top, ds.env.cfg.MaxSize, ErrSearchLimit)
	}

	return want, top, nil
}

// grow runs the level-wise search and returns levels[k-1] = feasible
// k-sets. top == 0 grows until a level is empty, bounded by Config.MaxSize.
//
// Implementation:
//   - Stage 1: open every distinct case once; they are closed on return.
//   - Stage 2: level 1 keeps the cases feasible over box on their own.
//   - Stage 3: level k tests candidates built from level k−1. Heuristic
//     mode unions pairs of feasible (k−1)-sets; Complete mode takes every
//     k-subset of the valid singletons.
//
// Errors: ErrSearchLimit past Config.MaxSize or Config.MaxCandidates, and
// the first failure of test.
//
// Complexity: Heuristic O(Σ|L_{k−1}|²) candidates, Complete O(Σ C(v, k))
// for v valid cases, each costing one test.
func (ds *DesignSpace) grow(ctx context.Context, ids []caseid.ID, box oracle.Box, o Options, top int, test setTest) ([][]Set, error) {
	cases, err := ds.openAll(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}
	defer closeCases(cases)

	byKey := make(map[string]*Case, len(cases))
	for _, c := range cases {
		byKey[c.id.String()] = c
	}

	// 1) valid singletons: a feasibility test per case, no intersections
	single := func(ctx context.Context, members []*Case) (bool, error) {
		return members[0].h.Feasible(ctx, box, o.Strict)
	}
	var first []Set
	for _, c := range cases {
		first = append(first, Set{c.ID()})
	}
	level, err := ds.testLevel(ctx, first, byKey, single)
	if err != nil {
		return nil, err
	}
	levels := [][]Set{level}

	valid := make([]caseid.ID, len(level))
	for i, s := range level {
		valid[i] = s[0]
	}
	mode := o.Mode
	if mode == 0 {
		mode = ds.env.cfg.Mode
	}

	// 2) level k from level k-1
	for k := 2; len(level) > 0 && k <= len(valid) && (top == 0 || k <= top); k++ {
		if k > ds.env.cfg.MaxSize {
			return nil, fmt.Errorf("level %d above %d: %w", k, ds.env.cfg.MaxSize, ErrSearchLimit)
		}
		var cands []Set
		if mode == Complete {
			cands, err = ds.subsets(valid, k)
		} else {
			cands, err = ds.unions(level, k)
		}
		if err != nil {
			return nil, err
		}
		if level, err = ds.testLevel(ctx, cands, byKey, test); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}

	return levels, nil
}

// unions returns the distinct k-member unions of two sets of level.
func (ds *DesignSpace) unions(level []Set, k int) ([]Set, error) {
	seen := make(map[string]bool)
	var out []Set
	for i := range level {
		for j := i + 1; j < len(level); j++ {
			u := merge(level[i], level[j])
			if len(u) != k || seen[u.Key()] {
				continue
			}
			seen[u.Key()] = true
			out = append(out, u)
			if len(out) > ds.env.cfg.MaxCandidates {
				return nil, fmt.Errorf("more than %d candidates of size %d: %w", ds.env.cfg.MaxCandidates, k, ErrSearchLimit)
			}
		}
	}

	return out, nil
}

// subsets returns every k-subset of ids in lexicographic order.
func (ds *DesignSpace) subsets(ids []caseid.ID, k int) ([]Set, error) {
	if binomial(len(ids), k) > uint64(ds.env.cfg.MaxCandidates) {
		return nil, fmt.Errorf("C(%d, %d) candidates above %d: %w", len(ids), k, ds.env.cfg.MaxCandidates, ErrSearchLimit)
	}

	var out []Set
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		s := make(Set, k)
		for i, j := range idx {
			s[i] = ids[j]
		}
		out = append(out, s)

		// advance the rightmost index that can still move
		i := k - 1
		for i >= 0 && idx[i] == len(ids)-k+i {
			i--
		}
		if i < 0 {
			return out, nil
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// binomial returns C(n, k), saturating at math.MaxUint64.
func binomial(n, k int) uint64 {
	if k < 0 || k > n {
		return 0
	}
	k = min(k, n-k)
	r := uint64(1)
	for i := 1; i <= k; i++ {
		// r·(n−k+i) is divisible by i; the quotient fits while hi < i
		hi, lo := bits.Mul64(r, uint64(n-k+i))
		if hi >= uint64(i) {
			return math.MaxUint64
		}
		r, _ = bits.Div64(hi, lo, uint64(i))
	}

	return r
}

// testLevel runs test on every candidate concurrently and returns the
// accepted sets sorted.
//
// Implementation:
//   - Stage 1: fan out one goroutine per candidate, at most Config.Workers
//     at a time; the first error cancels the rest.
//   - Stage 2: sort the accepted sets, since completion order is not.
//
// Complexity: O(len(cands)) tests plus O(a·log a) to sort a accepted sets.
func (ds *DesignSpace) testLevel(ctx context.Context, cands []Set, byKey map[string]*Case, test setTest) ([]Set, error) {
	var (
		mu  sync.Mutex
		out []Set
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ds.env.cfg.Workers)

	// 1) Go blocks while Workers tests are running
	for _, s := range cands {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			members := make([]*Case, len(s))
			for i, id := range s {
				members[i] = byKey[id.String()]
			}
			ok, err := test(gctx, members)
			if err != nil {
				return fmt.Errorf("set %v: %w", s.Strings(), err)
			}
			if ok {
				mu.Lock()
				out = append(out, s)
				mu.Unlock()
			}

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// 2) a canceled parent may have cut the loop short without an error
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sortSets(out)

	return out, nil
}
