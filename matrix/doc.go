// SPDX-License-Identifier: MIT

// Package matrix provides the dense linear-algebra kernels used to solve
// dominant S-systems and to analyse their stability.
//
// What:
//
//   - Dense: row-major float64 matrix with bounds-checked At/Set.
//   - Factorize / Solve / Inverse: LU with partial pivoting and rank-aware
//     singularity detection (a pivot below Tolerance is singular).
//   - Rank / NullSpace / LeftNullSpace: reduced row echelon form with the
//     same tolerance policy.
//   - CharPoly / Roots / CountRightHalfPlane: Faddeev–LeVerrier
//     characteristic polynomial and Durand–Kerner root finding, used to
//     count eigenvalues with positive real part.
//
// Why:
//
//   - A dominant S-system is linear in log space: A_D·y_D = −(A_I·y_I + b).
//     Its steady state is one pivoted solve; a singular A_D signals a
//     cyclical (or degenerate) case.
//
// Errors:
//
//   - ErrBadShape, ErrDimensionMismatch, ErrNonSquare, ErrOutOfRange,
//     ErrSingular, ErrNaNInf, ErrNoConvergence (see errors.go).
//
// Complexity:
//
//   - Factorize/Solve/Inverse: O(n³) time, O(n²) memory.
//   - NullSpace: O(r·c·min(r,c)).
//   - CharPoly: O(n⁴); Roots: O(iter·n²).
package matrix
