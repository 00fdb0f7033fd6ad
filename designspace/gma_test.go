package designspace_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/dspace/caseid"
	"github.com/katalvlaran/dspace/designspace"
	"github.com/katalvlaran/dspace/gma"
	"github.com/katalvlaran/dspace/oracle"
)

var (
	exchange = []string{
		"X1. = a1 + k21*X2 - k12*X1",
		"X2. = k12*X1 - k21*X2 - b2*X2",
	}
	competition = []string{"X1. = a1 + a2 - b1*X1"}
)

// pointBox pins every coordinate of p.
func pointBox(p oracle.Point) oracle.Box {
	b := make(oracle.Box, len(p))
	for v, x := range p {
		b[v] = oracle.Range{Lower: x, Upper: x}
	}

	return b
}

func gmaSpace(t *testing.T, e oracle.Engine, eqs []string) *designspace.DesignSpace {
	t.Helper()
	ds, err := designspace.New(context.Background(), e, eqs, designspace.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })

	return ds
}

// TestGMA_ValidCases resolves the exchange cycle of case 3.
func TestGMA_ValidCases(t *testing.T) {
	ctx := context.Background()
	e := gma.New()
	ds := gmaSpace(t, e, exchange)

	got, err := ds.ValidCases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3_1"}, caseid.Strings(got))

	roots, err := ds.ValidCases(ctx, designspace.WithExpandCycles(false))
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, caseid.Strings(roots))

	expanded, err := ds.CyclesToSubcases(ctx, roots)
	require.NoError(t, err)
	assert.Equal(t, got, expanded)

	c := openCase(t, ds, "3")
	assert.True(t, c.IsCyclical())
	require.NoError(t, c.Close())
	require.NoError(t, ds.Close())
	assert.Zero(t, e.Live())
}

// TestGMA_Tolerance measures case 2 (b2 > k21) around a known point.
func TestGMA_Tolerance(t *testing.T) {
	ctx := context.Background()
	ds := gmaSpace(t, gma.New(), exchange)
	c := openCase(t, ds, "2")
	p := oracle.Point{"a1": 1, "k12": 1, "b2": 10, "k21": 1}

	tol, err := c.MeasureTolerance(ctx, p)
	require.NoError(t, err)
	assert.InEpsilon(t, 0.1, tol["b2"].Lower, 1e-6)
	assert.InEpsilon(t, 10, tol["k21"].Upper, 1e-6)

	ss, err := c.SteadyState(ctx, oracle.Point{"a1": 10, "k12": 1, "b2": 2, "k21": 1})
	require.NoError(t, err)
	assert.InDelta(t, 5, ss["X2"], 1e-9)

	_, err = c.MeasureTolerance(ctx, oracle.Point{"a1": 1, "k12": 1, "b2": 0.5, "k21": 1})
	assert.ErrorIs(t, err, oracle.ErrInfeasible)

	v, err := c.Volume(ctx, designspace.WithMethod(designspace.Vertices), designspace.WithBounds(oracle.Box{
		"a1":  {Lower: 1, Upper: 1},
		"k12": {Lower: 1, Upper: 1},
		"b2":  {Lower: 0.01, Upper: 100},
		"k21": {Lower: 0.01, Upper: 100},
	}))
	require.NoError(t, err)
	assert.InDelta(t, 8, v.Value, 1e-9)
}

// TestGMA_Intersections separates the two competition cases.
func TestGMA_Intersections(t *testing.T) {
	ctx := context.Background()
	ds := gmaSpace(t, gma.New(), competition)
	members := ids("1", "2")

	strict, err := ds.ValidIntersectingCases(ctx, []int{1, 2}, members)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1"}, {"2"}}, setStrings(strict))

	loose, err := ds.ValidIntersectingCases(ctx, []int{2}, members, designspace.WithStrict(false))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}}, setStrings(loose))

	most, err := ds.MaximumCoLocalizedCases(ctx, members, []string{"a1"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}}, setStrings(most))

	col, err := ds.CoLocalizeCases(ctx, members, []string{"a1"})
	require.NoError(t, err)
	require.Len(t, col.Cases, 2)
	assert.Greater(t, col.Cases[0]["a1"], col.Cases[0]["a2"])
	assert.Less(t, col.Cases[1]["a1"], col.Cases[1]["a2"])
	assert.Equal(t, col.Cases[0]["a2"], col.Cases[1]["a2"])
}

// TestGMA_CoLocalizationStrict keeps cases that only share a boundary
// apart when the slice variable does not separate them.
func TestGMA_CoLocalizationStrict(t *testing.T) {
	ctx := context.Background()
	ds := gmaSpace(t, gma.New(), competition)
	members := ids("1", "2")
	slice := []string{"b1"}

	most, err := ds.MaximumCoLocalizedCases(ctx, members, slice)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1"}, {"2"}}, setStrings(most))

	_, err = ds.CoLocalizeCases(ctx, members, slice)
	assert.ErrorIs(t, err, oracle.ErrInfeasible)

	loose, err := ds.MaximumCoLocalizedCases(ctx, members, slice, designspace.WithStrict(false))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}}, setStrings(loose))

	// a point returned under strict validity is valid for every member
	col, err := ds.CoLocalizeCases(ctx, members, []string{"a1"})
	require.NoError(t, err)
	for i, id := range []string{"1", "2"} {
		c, err := ds.Case(ctx, id)
		require.NoError(t, err)
		ok, err := c.IsValid(ctx, designspace.WithBounds(pointBox(col.Cases[i])))
		require.NoError(t, err)
		assert.True(t, ok, id)
		require.NoError(t, c.Close())
	}
}

// TestGMA_ConservedMoieties finds X1 + X2 in a closed exchange.
func TestGMA_ConservedMoieties(t *testing.T) {
	ds := gmaSpace(t, gma.New(), []string{
		"X1. = k21*X2 - k12*X1",
		"X2. = k12*X1 - k21*X2",
	})

	got, err := ds.ConservedMoieties()
	require.NoError(t, err)
	assert.Equal(t, []designspace.Moiety{{"X1": 1, "X2": 1}}, got)
}

// TestGMA_Instrumented counts one feasibility test per case.
func TestGMA_Instrumented(t *testing.T) {
	m := oracle.NewMetrics(prometheus.NewRegistry())
	ds := gmaSpace(t, oracle.InstrumentWith(gma.New(), m), exchange)

	_, err := ds.ValidCases(context.Background(), designspace.WithExpandCycles(false))
	require.NoError(t, err)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Calls.WithLabelValues("feasible")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Calls.WithLabelValues("case")))
}

// TestGMA_SaveLoad round-trips a gma space through an archive.
func TestGMA_SaveLoad(t *testing.T) {
	ctx := context.Background()
	e := gma.New()
	ds := gmaSpace(t, e, exchange)
	a := &memArchive{}

	require.NoError(t, ds.Save(ctx, a, "exchange"))
	back, err := designspace.Load(ctx, a, "exchange", e, designspace.DefaultConfig())
	require.NoError(t, err)
	defer back.Close()

	got, err := back.ValidCases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3_1"}, caseid.Strings(got))
}
