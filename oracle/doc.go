// Package oracle defines the port between design-space analysis and the
// geometry/algebra engine that owns equation parsing, case numbering and
// every numeric feasibility question.
//
// What:
//
//   - Engine, System and Case: handle interfaces. Every handle is owned by
//     exactly one caller and released with Close; Clone and Constrain always
//     return a new owned handle.
//   - Box, Range, Point, Objective: the values exchanged with the engine.
//     Boxes and points are expressed in linear scale; ranges returned by
//     BoundingRange and Vertices are log10 coordinates.
//   - Sentinel and typed errors shared by engines and callers.
//   - Instrument: a prometheus decorator counting and timing oracle calls.
//
// Why:
//
//   - Each engine call may be arbitrarily expensive; keeping the surface
//     narrow makes the calls explicit, cancellable (context.Context) and
//     observable.
package oracle
