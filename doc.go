// Package dspace is a toolbox for design-space analysis of biochemical
// systems written as Generalized Mass Action (GMA) or S-system models.
//
// A model's parameter space splits into qualitatively distinct cases, one
// per choice of dominant positive and negative term in every equation.
// dspace enumerates those cases, decides which are valid, finds parameter
// sets inside them, measures their extent and volume, and searches for
// cases whose regions intersect.
//
// Layout:
//
//	caseid/      case identifiers: "3", "12_2_1", ordering and parsing
//	signature/   dominance signatures and wildcard patterns
//	matrix/      dense LU, null space and characteristic-polynomial kernels
//	oracle/      the engine interface, boxes and points, prometheus instrumentation
//	gma/         a pure-Go engine for GMA models (parser, LP, steady states)
//	designspace/ DesignSpace, Case, CyclicalCase, intersections and searches
//	store/       BadgerDB archive for saved spaces and cases
//	config/      viper settings and the rotating slog logger
//
// A typical session:
//
//	ds, err := designspace.New(ctx, gma.New(), equations, designspace.DefaultConfig())
//	if err != nil { ... }
//	defer ds.Close()
//	valid, err := ds.ValidCases(ctx)
package dspace
