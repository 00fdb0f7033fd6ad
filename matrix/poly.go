// SPDX-License-Identifier: MIT

package matrix

import (
	"fmt"
	"math"
	"math/cmplx"
)

const (
	rootMaxIter   = 5000
	rootTolerance = 1e-12
	// realPartEps is the threshold above which an eigenvalue of a
	// max-abs-normalized matrix counts as having a positive real part.
	realPartEps = 1e-8
)

// CharPoly returns the coefficients of det(λI − A), highest degree first;
// the leading coefficient is always 1.
//
// Implementation (Faddeev–LeVerrier):
//   - M₀ = 0, c_n = 1.
//   - For k = 1..n: M_k = A·M_{k−1} + c_{n−k+1}·I, c_{n−k} = −tr(A·M_k)/k.
//
// Complexity: O(n⁴) time, O(n²) memory.
func CharPoly(a *Dense) ([]float64, error) {
	if a.r != a.c {
		return nil, fmt.Errorf("CharPoly: %dx%d: %w", a.r, a.c, ErrNonSquare)
	}
	n := a.r
	coeffs := make([]float64, n+1)
	coeffs[0] = 1

	m := &Dense{r: n, c: n, data: make([]float64, n*n)}
	for k := 1; k <= n; k++ {
		am, err := Mul(a, m)
		if err != nil {
			return nil, fmt.Errorf("CharPoly: %w", err)
		}
		for i := 0; i < n; i++ {
			am.data[i*n+i] += coeffs[k-1]
		}
		m = am

		aNext, err := Mul(a, m)
		if err != nil {
			return nil, fmt.Errorf("CharPoly: %w", err)
		}
		var trace float64
		for i := 0; i < n; i++ {
			trace += aNext.data[i*n+i]
		}
		coeffs[k] = -trace / float64(k)
	}

	return coeffs, nil
}

// Roots returns all complex roots of the monic polynomial with coefficients
// coeffs (highest degree first, coeffs[0] == 1) using Durand–Kerner
// simultaneous iteration.
//
// Errors:
//   - ErrBadShape if coeffs is empty or not monic.
//   - ErrNoConvergence if the iteration budget is exhausted.
//
// Complexity: O(iter·n²).
func Roots(coeffs []float64) ([]complex128, error) {
	if len(coeffs) == 0 || coeffs[0] != 1 {
		return nil, fmt.Errorf("Roots: polynomial must be monic: %w", ErrBadShape)
	}
	n := len(coeffs) - 1
	if n == 0 {
		return nil, nil
	}
	if n == 1 {
		return []complex128{complex(-coeffs[1], 0)}, nil
	}

	// Cauchy bound on root magnitude.
	bound := 1.0
	for _, c := range coeffs[1:] {
		bound = math.Max(bound, 1+math.Abs(c))
	}

	eval := func(z complex128) complex128 {
		acc := complex(coeffs[0], 0)
		for _, c := range coeffs[1:] {
			acc = acc*z + complex(c, 0)
		}

		return acc
	}

	z := make([]complex128, n)
	seed := complex(0.4, 0.9)
	for i := range z {
		z[i] = complex(bound/2, 0) * cmplx.Pow(seed, complex(float64(i), 0))
	}

	for iter := 0; iter < rootMaxIter; iter++ {
		var delta float64
		for i := range z {
			den := complex(1, 0)
			for j := range z {
				if i != j {
					den *= z[i] - z[j]
				}
			}
			if den == 0 {
				den = complex(rootTolerance, rootTolerance)
			}
			step := eval(z[i]) / den
			z[i] -= step
			delta = math.Max(delta, cmplx.Abs(step))
		}
		if delta <= rootTolerance*bound {
			return z, nil
		}
	}

	return nil, fmt.Errorf("Roots: degree %d: %w", n, ErrNoConvergence)
}

// CountRightHalfPlane returns how many eigenvalues of a have a strictly
// positive real part. The matrix is normalized by its largest absolute entry
// first, which preserves the sign of every real part.
func CountRightHalfPlane(a *Dense) (int, error) {
	if a.r != a.c {
		return 0, fmt.Errorf("CountRightHalfPlane: %dx%d: %w", a.r, a.c, ErrNonSquare)
	}
	scale := a.MaxAbs()
	if scale == 0 {
		return 0, nil
	}
	norm := a.Clone()
	for i := range norm.data {
		norm.data[i] /= scale
	}

	coeffs, err := CharPoly(norm)
	if err != nil {
		return 0, err
	}
	roots, err := Roots(coeffs)
	if err != nil {
		return 0, fmt.Errorf("CountRightHalfPlane: %w", err)
	}

	count := 0
	for _, r := range roots {
		if real(r) > realPartEps {
			count++
		}
	}

	return count, nil
}
