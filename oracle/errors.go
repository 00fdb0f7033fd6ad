package oracle

import (
	"errors"
	"fmt"
)

var (
	// ErrInvertedBounds is matched (errors.Is) by every *InvertedBoundsError.
	ErrInvertedBounds = errors.New("oracle: inverted bounds")

	// ErrArgument reports a malformed argument: wrong shape, unknown variable,
	// non-positive bound, unparsable constraint.
	ErrArgument = errors.New("oracle: invalid argument")

	// ErrInfeasible is returned when a point or range is requested from an
	// empty region, or when a query point lies outside the region.
	ErrInfeasible = errors.New("oracle: region is infeasible")

	// ErrUnsupported reports a query the engine cannot answer (for example
	// vertex enumeration above two free dimensions).
	ErrUnsupported = errors.New("oracle: unsupported query")

	// ErrCyclical is returned by single-valued queries on a cyclical case,
	// which has no single resolved system.
	ErrCyclical = errors.New("oracle: case is cyclical")

	// ErrNoSteadyState is returned when a case has no unique steady state.
	ErrNoSteadyState = errors.New("oracle: no unique steady state")

	// ErrHandleReleased is returned when a handle is used or released after Close.
	ErrHandleReleased = errors.New("oracle: handle already released")

	// ErrForeignHandle is returned when handles from another engine are mixed in.
	ErrForeignHandle = errors.New("oracle: handle belongs to another engine")
)

// InvertedBoundsError reports a bound whose lower value exceeds its upper value.
type InvertedBoundsError struct {
	Variable string
	Lower    float64
	Upper    float64
}

func (e *InvertedBoundsError) Error() string {
	return fmt.Sprintf("oracle: inverted bounds for %q: min %g > max %g", e.Variable, e.Lower, e.Upper)
}

// Is makes errors.Is(err, ErrInvertedBounds) hold.
func (e *InvertedBoundsError) Is(target error) bool {
	return target == ErrInvertedBounds
}
