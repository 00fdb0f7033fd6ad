// Package gma is the reference geometry engine behind the oracle port.
//
// It parses Generalized Mass Action equations, numbers their dominance
// cases, and answers feasibility questions with linear programs in log10
// space.
//
// Equations:
//
//	X1. = a1 + k21*X2 - k12*X1       // ODE for dependent X1
//	X3  = X1^0.5*X2^(-1) + c         // algebraic; X3 must be listed as auxiliary
//
// Every right-hand side is a sum of power-law terms. A term is a product of
// positive numbers and variables raised to real exponents; '/' divides.
// Symbols that never appear on a left-hand side are independent variables.
//
// Cases:
//
// A signature holds, for every equation, the index of its dominant positive
// term followed by the index of its dominant negative term. Case numbers
// enumerate signatures in mixed radix with the last position varying
// fastest, starting at 1.
//
// Within a case each equation collapses to a balance of two monomials. In
// log coordinates this is a linear system A_D·y_D + A_I·y_I + b = 0 whose
// solution y_D = M·y_I + c turns every dominance condition into a half-space
// over the independent variables. When A_D is singular the engine looks for
// a cycle of fluxes in the chosen terms; each cycle is collapsed into one
// aggregate equation and the case becomes cyclical, with one subcase per
// remaining dominance choice in the aggregate.
//
// Feasibility uses a two-phase simplex on the maximum uniform margin t of the
// normalized half-spaces inside the log box: the region is non-empty when
// the program is feasible and has interior points when t > 0.
//
// Handles:
//
// Every System and Case is registered under a uuid; Close releases it once
// and Live reports how many handles are outstanding.
package gma
