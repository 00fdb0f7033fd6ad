package oracle

import (
	"context"

	"github.com/katalvlaran/dspace/signature"
)

// Variables exposes the ordered variable pools of a system or case.
type Variables interface {
	// Dependent returns the dependent variables in equation order.
	Dependent() []string
	// Independent returns the independent variables in ascending order.
	Independent() []string
}

// Engine builds and decodes system handles and answers questions that span
// several case handles.
type Engine interface {
	NewSystem(ctx context.Context, def Definition) (System, error)
	DecodeSystem(ctx context.Context, blob []byte) (System, error)
	DecodeCase(ctx context.Context, blob []byte) (Case, error)

	// Intersect reports whether all members are valid at one point of box.
	// Variables listed in slice may take a different value per member.
	Intersect(ctx context.Context, members []Case, slice []string, box Box, strict bool) (bool, error)

	// IntersectionPoint returns one point valid for all members. Slice
	// variables appear once per member as "name#k" (k is the 0-based member
	// index). A nil objective asks for the most interior point. With strict,
	// a shared region of measure zero is ErrInfeasible.
	IntersectionPoint(ctx context.Context, members []Case, slice []string, box Box, obj *Objective, strict bool) (Point, error)
}

// System is an owned handle over one parsed equation system.
type System interface {
	Variables

	Equations() []string
	Auxiliary() []string
	Options() SystemOptions

	// Positions returns the number of choices per signature position:
	// two positions per equation (positive terms, negative terms).
	Positions() []int
	NumberOfCases() uint64
	CaseNumber(sig signature.Signature) (uint64, error)
	Signature(number uint64) (signature.Signature, error)
	Case(ctx context.Context, number uint64) (Case, error)
	Stoichiometry() (Stoichiometry, error)

	Encode() ([]byte, error)
	Close() error
}

// Case is an owned handle over one dominance region.
type Case interface {
	Variables

	Number() uint64
	Signature() signature.Signature
	// Conditions are the dominance inequalities in log form.
	Conditions() []string
	// Boundaries are the conditions expressed over independent variables.
	Boundaries() []string
	// Constraints are extra conditions attached with Constrain.
	Constraints() []string

	// Cyclical reports that the case needs resolution into subcases.
	Cyclical() bool
	Subcases() int
	// Subcase returns the 1-based subcase i as a new owned handle.
	Subcase(ctx context.Context, i int) (Case, error)

	Feasible(ctx context.Context, box Box, strict bool) (bool, error)
	ValidPoint(ctx context.Context, box Box, obj *Objective) (Point, error)
	// BoundingRange returns the log10 extent of variable over the region
	// intersected with box.
	BoundingRange(ctx context.Context, variable string, box Box) (lo, hi float64, err error)
	// Vertices returns the log10 vertices of the region restricted to box,
	// projected on vars. Variables not in vars must be pinned in box.
	Vertices(ctx context.Context, box Box, vars []string) ([][]float64, error)

	SteadyState(ctx context.Context, p Point) (Point, error)
	SteadyStateFlux(ctx context.Context, p Point) (Point, error)
	PositiveRoots(ctx context.Context, p Point) (int, error)
	// LogGains returns d log(dependent) / d log(independent).
	LogGains(ctx context.Context) (map[string]map[string]float64, error)

	Constrain(ctx context.Context, constraints []string) (Case, error)
	Clone() (Case, error)
	Encode() ([]byte, error)
	Close() error
}
