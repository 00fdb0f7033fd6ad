package gma

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/dspace/oracle"
)

// TestSolveLP_Optimal maximizes x+y over a two-row polygon.
func TestSolveLP_Optimal(t *testing.T) {
	x, v, status, err := solveLP([]float64{1, 1}, []lpRow{
		{a: []float64{1, 2}, kind: le, b: 4},
		{a: []float64{3, 1}, kind: le, b: 6},
	})
	require.NoError(t, err)
	require.Equal(t, lpOptimal, status)
	assert.InDelta(t, 1.6, x[0], 1e-9)
	assert.InDelta(t, 1.2, x[1], 1e-9)
	assert.InDelta(t, 2.8, v, 1e-9)
}

// TestSolveLP_PhaseOne covers ≥, = and negative right-hand sides.
func TestSolveLP_PhaseOne(t *testing.T) {
	_, _, status, err := solveLP([]float64{1}, []lpRow{
		{a: []float64{1}, kind: ge, b: 2},
		{a: []float64{1}, kind: le, b: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, lpInfeasible, status)

	x, _, status, err := solveLP([]float64{1, 0}, []lpRow{
		{a: []float64{1, 1}, kind: eq, b: 1},
	})
	require.NoError(t, err)
	require.Equal(t, lpOptimal, status)
	assert.InDelta(t, 1, x[0], 1e-9)

	// -x <= -1 is x >= 1
	x, v, status, err := solveLP([]float64{-1}, []lpRow{
		{a: []float64{-1}, kind: le, b: -1},
	})
	require.NoError(t, err)
	require.Equal(t, lpOptimal, status)
	assert.InDelta(t, 1, x[0], 1e-9)
	assert.InDelta(t, -1, v, 1e-9)

	_, _, status, err = solveLP([]float64{1}, []lpRow{{a: []float64{-1}, kind: le, b: 0}})
	require.NoError(t, err)
	assert.Equal(t, lpUnbounded, status)
}

// TestProblem_Margin checks the normalized uniform slack and pinning.
func TestProblem_Margin(t *testing.T) {
	p := &problem{
		lo:   []float64{0, 0},
		hi:   []float64{1, 1},
		rows: []halfspace{{w: []float64{1, -1}}},
	}
	m, y, ok, err := p.margin()
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 1/math.Sqrt2, m, 1e-9)
	assert.InDelta(t, 1, y[0]-y[1], 1e-9)

	// pin y = x: only the boundary survives
	p.lo, p.hi = []float64{0.5, 0.5}, []float64{0.5, 0.5}
	m, _, ok, err = p.margin()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, m)

	p.lo, p.hi = []float64{0.2, 0.5}, []float64{0.2, 0.5}
	_, _, ok, err = p.margin()
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestProblem_Polygon clips the box with y_0 ≥ y_1.
func TestProblem_Polygon(t *testing.T) {
	p := &problem{
		lo:   []float64{-2, -2},
		hi:   []float64{2, 2},
		rows: []halfspace{{w: []float64{1, -1}}, {w: []float64{1, -1}}},
	}
	poly := p.polygon(0, 1)
	require.Len(t, poly, 3)
	assert.InDelta(t, 8, area(poly), 1e-9)

	p.rows = append(p.rows, halfspace{w: []float64{-1, 0}, w0: -3}) // y_0 < -3
	assert.Empty(t, p.polygon(0, 1))
}

// TestParse_Terms checks canonical term rendering.
func TestParse_Terms(t *testing.T) {
	eq, err := parseEquation("X1. = a1 + k21*X2 - k12*X1")
	require.NoError(t, err)
	assert.True(t, eq.ode)
	assert.Equal(t, "X1", eq.lhs)
	var got []string
	for _, tm := range append(eq.pos, eq.neg...) {
		got = append(got, tm.String())
	}
	if diff := cmp.Diff([]string{"a1", "X2*k21", "X1*k12"}, got); diff != "" {
		t.Errorf("terms mismatch (-want +got):\n%s", diff)
	}

	tm, err := parseTerm("2*X^(-0.5)/k")
	require.NoError(t, err)
	assert.Equal(t, "2*X^-0.5*k^-1", tm.String())

	tm, err = parseTerm("1e-3 * x * x")
	require.NoError(t, err)
	assert.Equal(t, "0.001*x^2", tm.String())

	alg, err := parseEquation("Y = c*X")
	require.NoError(t, err)
	assert.False(t, alg.ode)
	require.Len(t, alg.neg, 1)
	assert.Equal(t, "Y", alg.neg[0].String())

	q, err := parseConstraint("a <= 2*b")
	require.NoError(t, err)
	assert.Equal(t, "2*b > a", q.String())
}

// TestParse_Errors rejects malformed input with ErrArgument.
func TestParse_Errors(t *testing.T) {
	for _, src := range []string{
		"X1. a - b*X1",
		"X1. = 0*a - b*X1",
		"X1. = a",
		"X1. = a + ",
		"X1. = a b - c",
		"X1. = a^ - b",
		"1X. = a - b",
	} {
		_, err := parseEquation(src)
		assert.ErrorIs(t, err, oracle.ErrArgument, src)
	}
	_, err := parseConstraint("a = b")
	assert.ErrorIs(t, err, ErrParse)
	_, err = parseTerm("a - b")
	assert.ErrorIs(t, err, ErrParse)
}

// TestFluxGraph_Cycles finds both cycles of a chain with back links.
func TestFluxGraph_Cycles(t *testing.T) {
	g := &fluxGraph{adj: [][]int{{1}, {0, 2}, {1}}}
	assert.Equal(t, [][]int{{0, 1}, {1, 2}}, g.cycles())

	ring := &fluxGraph{adj: [][]int{{1}, {2}, {0}}}
	assert.Equal(t, [][]int{{0, 1, 2}}, ring.cycles())

	assert.Empty(t, (&fluxGraph{adj: [][]int{{1}, {}}}).cycles())
}
