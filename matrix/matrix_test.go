// SPDX-License-Identifier: MIT

package matrix_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/dspace/matrix"
)

const eps = 1e-9

// TestDense_Bounds verifies At/Set validation and FromRows shape checks.
func TestDense_Bounds(t *testing.T) {
	_, err := matrix.NewDense(0, 2)
	assert.ErrorIs(t, err, matrix.ErrBadShape)

	m, err := matrix.NewDense(2, 3)
	require.NoError(t, err)
	require.NoError(t, m.Set(1, 2, 5))
	v, err := m.At(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)

	_, err = m.At(2, 0)
	assert.ErrorIs(t, err, matrix.ErrOutOfRange)
	assert.ErrorIs(t, m.Set(0, -1, 1), matrix.ErrOutOfRange)

	_, err = matrix.FromRows([][]float64{{1, 2}, {3}})
	assert.ErrorIs(t, err, matrix.ErrBadShape)
}

// TestSolve_NeedsPivoting uses a zero leading entry that Doolittle without
// pivoting would reject.
func TestSolve_NeedsPivoting(t *testing.T) {
	a, err := matrix.FromRows([][]float64{
		{0, 1},
		{2, 1},
	})
	require.NoError(t, err)

	x, err := matrix.Solve(a, []float64{3, 5})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, x[0], eps)
	assert.InDelta(t, 3.0, x[1], eps)
}

// TestSolve_Singular reports ErrSingular for dependent rows.
func TestSolve_Singular(t *testing.T) {
	a, err := matrix.FromRows([][]float64{
		{-1, 1},
		{1, -1},
	})
	require.NoError(t, err)

	_, err = matrix.Solve(a, []float64{0, 0})
	assert.ErrorIs(t, err, matrix.ErrSingular)
	assert.Equal(t, 1, matrix.Rank(a))
}

// TestInverse_RoundTrip checks A·A⁻¹ = I.
func TestInverse_RoundTrip(t *testing.T) {
	a, err := matrix.FromRows([][]float64{
		{4, 7, 2},
		{3, 6, 1},
		{2, 5, 3},
	})
	require.NoError(t, err)

	inv, err := matrix.Inverse(a)
	require.NoError(t, err)
	prod, err := matrix.Mul(a, inv)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v, _ := prod.At(i, j)
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, v, 1e-9)
		}
	}
}

// TestLeftNullSpace finds the conservation vector of a two-species exchange.
func TestLeftNullSpace(t *testing.T) {
	// species × flux: X1 -> X2 and X2 -> X1
	s, err := matrix.FromRows([][]float64{
		{-1, 1},
		{1, -1},
	})
	require.NoError(t, err)

	basis := matrix.LeftNullSpace(s)
	require.Len(t, basis, 1)
	assert.InDelta(t, 1.0, basis[0][0], eps)
	assert.InDelta(t, 1.0, basis[0][1], eps)

	full, err := matrix.Identity(2)
	require.NoError(t, err)
	assert.Empty(t, matrix.NullSpace(full))
}

// TestCharPoly_Triangular checks coefficients of diag(1,2,3).
func TestCharPoly_Triangular(t *testing.T) {
	a, err := matrix.FromRows([][]float64{
		{1, 5, 0},
		{0, 2, 7},
		{0, 0, 3},
	})
	require.NoError(t, err)

	c, err := matrix.CharPoly(a)
	require.NoError(t, err)
	// (λ-1)(λ-2)(λ-3) = λ³ - 6λ² + 11λ - 6
	want := []float64{1, -6, 11, -6}
	for i := range want {
		assert.InDelta(t, want[i], c[i], 1e-9)
	}
}

// TestCountRightHalfPlane covers stable, saddle and oscillatory unstable matrices.
func TestCountRightHalfPlane(t *testing.T) {
	stable, _ := matrix.FromRows([][]float64{{-1, 0}, {1, -2}})
	n, err := matrix.CountRightHalfPlane(stable)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	saddle, _ := matrix.FromRows([][]float64{{1, 0}, {0, -3}})
	n, err = matrix.CountRightHalfPlane(saddle)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// eigenvalues 0.5 ± 2i
	spiral, _ := matrix.FromRows([][]float64{{0.5, -2}, {2, 0.5}})
	n, err = matrix.CountRightHalfPlane(spiral)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	zero, _ := matrix.NewDense(2, 2)
	n, err = matrix.CountRightHalfPlane(zero)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
