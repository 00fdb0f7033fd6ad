// SPDX-License-Identifier: MIT
// Package matrix: sentinel error set.
// All kernels return these sentinels (optionally wrapped with an operation
// prefix) and tests match them with errors.Is. Kernels never panic on
// user-triggered conditions.

package matrix

import "errors"

var (
	// ErrBadShape is returned when requested shape is invalid (r<=0 or c<=0),
	// or when FromRows receives ragged rows.
	ErrBadShape = errors.New("matrix: invalid shape")

	// ErrOutOfRange indicates that an index is outside valid bounds.
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrDimensionMismatch indicates incompatible operand dimensions.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNonSquare signals that a square matrix was required.
	ErrNonSquare = errors.New("matrix: matrix is not square")

	// ErrSingular is returned when no pivot above Tolerance exists in a column.
	ErrSingular = errors.New("matrix: singular matrix")

	// ErrNaNInf signals a NaN or ±Inf value where finite values are required.
	ErrNaNInf = errors.New("matrix: NaN or Inf encountered")

	// ErrNoConvergence indicates that an iterative root finder did not
	// converge within its iteration budget.
	ErrNoConvergence = errors.New("matrix: iteration did not converge")
)
