// SPDX-License-Identifier: MIT

package matrix

import (
	"fmt"
	"math"
)

// LU holds a factorization P·A = L·U with partial (row) pivoting.
// L is unit lower triangular and U upper triangular; both are packed into
// one matrix, L strictly below the diagonal.
type LU struct {
	n    int
	lu   *Dense
	perm []int // perm[i] = original row placed at row i
}

// Factorize computes the pivoted Doolittle factorization of a square matrix.
//
// Implementation:
//   - Stage 1: Validate square shape and finite entries.
//   - Stage 2: For each column k, pick the row with the largest |a[i,k]|
//     (i ≥ k), swap it into place, and eliminate below the pivot.
//
// Errors:
//   - ErrNonSquare for rectangular input.
//   - ErrSingular when the best pivot of some column is below Tolerance
//     (relative to the largest entry of the input).
//
// Complexity:
//   - Time O(n³), Space O(n²).
func Factorize(a *Dense) (*LU, error) {
	// Stage 1: validate
	if a.r != a.c {
		return nil, fmt.Errorf("Factorize: %dx%d: %w", a.r, a.c, ErrNonSquare)
	}
	for _, v := range a.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("Factorize: %w", ErrNaNInf)
		}
	}

	n := a.r
	lu := a.Clone()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	scale := math.Max(a.MaxAbs(), 1)

	// Stage 2: eliminate column by column
	var i, j, k, p int
	for k = 0; k < n; k++ {
		// 2a) choose pivot row
		p = k
		best := math.Abs(lu.data[k*n+k])
		for i = k + 1; i < n; i++ {
			if v := math.Abs(lu.data[i*n+k]); v > best {
				best, p = v, i
			}
		}
		if best <= Tolerance*scale {
			return nil, fmt.Errorf("Factorize: column %d: %w", k, ErrSingular)
		}
		// 2b) swap rows k and p
		if p != k {
			for j = 0; j < n; j++ {
				lu.data[k*n+j], lu.data[p*n+j] = lu.data[p*n+j], lu.data[k*n+j]
			}
			perm[k], perm[p] = perm[p], perm[k]
		}
		// 2c) eliminate below pivot, storing multipliers in L
		pivot := lu.data[k*n+k]
		for i = k + 1; i < n; i++ {
			f := lu.data[i*n+k] / pivot
			lu.data[i*n+k] = f
			if f == 0 {
				continue
			}
			for j = k + 1; j < n; j++ {
				lu.data[i*n+j] -= f * lu.data[k*n+j]
			}
		}
	}

	return &LU{n: n, lu: lu, perm: perm}, nil
}

// Solve returns x with A·x = b for the factorized A.
// Complexity: O(n²).
func (f *LU) Solve(b []float64) ([]float64, error) {
	if len(b) != f.n {
		return nil, fmt.Errorf("Solve: rhs length %d, want %d: %w", len(b), f.n, ErrDimensionMismatch)
	}
	n := f.n
	y := make([]float64, n)
	// Forward substitution: L·y = P·b
	for i := 0; i < n; i++ {
		sum := b[f.perm[i]]
		for k := 0; k < i; k++ {
			sum -= f.lu.data[i*n+k] * y[k]
		}
		y[i] = sum
	}
	// Backward substitution: U·x = y
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := y[i]
		for k := i + 1; k < n; k++ {
			sum -= f.lu.data[i*n+k] * x[k]
		}
		x[i] = sum / f.lu.data[i*n+i]
	}

	return x, nil
}

// Solve factorizes a and solves a·x = b in one call.
func Solve(a *Dense, b []float64) ([]float64, error) {
	f, err := Factorize(a)
	if err != nil {
		return nil, err
	}

	return f.Solve(b)
}

// SolveMatrix returns X with A·X = B, solving column by column.
func SolveMatrix(a, b *Dense) (*Dense, error) {
	if a.r != b.r {
		return nil, fmt.Errorf("SolveMatrix: %d rows vs %d: %w", a.r, b.r, ErrDimensionMismatch)
	}
	f, err := Factorize(a)
	if err != nil {
		return nil, err
	}
	out := &Dense{r: a.c, c: b.c, data: make([]float64, a.c*b.c)}
	col := make([]float64, b.r)
	for j := 0; j < b.c; j++ {
		for i := 0; i < b.r; i++ {
			col[i] = b.data[i*b.c+j]
		}
		x, solveErr := f.Solve(col)
		if solveErr != nil {
			return nil, solveErr
		}
		for i := range x {
			out.data[i*out.c+j] = x[i]
		}
	}

	return out, nil
}

// Inverse returns A⁻¹ using the pivoted factorization.
//
// Errors:
//   - ErrNonSquare, ErrSingular (see Factorize).
//
// Complexity:
//   - Time O(n³), Space O(n²).
func Inverse(a *Dense) (*Dense, error) {
	id, err := Identity(a.r)
	if err != nil {
		return nil, err
	}
	inv, err := SolveMatrix(a, id)
	if err != nil {
		return nil, fmt.Errorf("Inverse: %w", err)
	}

	return inv, nil
}
