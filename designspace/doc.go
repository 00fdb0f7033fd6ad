// Package designspace partitions the parameter space of a power-law system
// into cases and answers questions about them: which cases are valid under
// given parameter bounds, which of them overlap or co-localize, and how large
// each region is.
//
// What:
//
//   - DesignSpace owns one system handle and enumerates its cases.
//   - Case is a single dominance region. CyclicalCase is a case whose
//     dominant fluxes form a cycle and is resolved into subcases.
//   - CaseIntersection and CaseColocalization test several cases at once,
//     the latter letting selected slice variables differ per member.
//   - ValidIntersectingCases and MaximumCoLocalizedCases grow candidate sets
//     level by level from valid singletons.
//   - MeasureTolerance, BoundingBox and Volume approximate region size.
//
// Geometry is delegated to an oracle.Engine; package gma ships one.
//
// Identifiers:
//
//	"12"      case number 12
//	"12_3"    subcase 3 of cyclical case 12 ("12.3" is accepted)
//	":1(12)*" every case whose signature matches the pattern
//
// Lifecycle:
//
// Every DesignSpace and Case owns exactly one engine handle. Close releases
// it and may be called more than once. Clone and Constrain return new owned
// values. Cases are immutable and safe for concurrent reads.
//
// Errors:
//
//   - ErrNotFound              unknown case number, subcase path or archive key
//   - ErrNotCyclical           a subcase of a non-cyclical case was requested
//   - ErrSearchLimit           a search exceeds Config.MaxSize or MaxCandidates
//   - ErrVariableConsistency   a case disagrees with its system's variables
//   - oracle.ErrInvertedBounds a bound has min > max
//   - oracle.ErrArgument       malformed identifiers, bounds or constraints
//
// Complexity:
//
//   - ValidCases: one feasibility test per case, run on Config.Workers goroutines.
//   - ValidIntersectingCases: level k tests at most C(|level k-1|, 2) unions.
package designspace
