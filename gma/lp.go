package gma

import (
	"errors"
	"math"
)

const (
	lpEpsilon = 1e-9
	lpMaxIter = 20000
)

// errLPIterations is returned when Bland's rule fails to terminate in budget.
var errLPIterations = errors.New("gma: simplex iteration limit")

type rowKind int

const (
	le rowKind = iota
	ge
	eq
)

// lpRow is a·x (kind) b over non-negative x.
type lpRow struct {
	a    []float64
	kind rowKind
	b    float64
}

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
)

// tableau is a dense simplex tableau with rhs in the last column.
type tableau struct {
	m, n    int
	t       [][]float64
	basis   []int
	inBasis []bool
}

func (tb *tableau) pivot(r, c int) {
	row := tb.t[r]
	pv := row[c]
	for j := range row {
		row[j] /= pv
	}
	for i := 0; i < tb.m; i++ {
		if i == r {
			continue
		}
		f := tb.t[i][c]
		if f == 0 {
			continue
		}
		for j := range tb.t[i] {
			tb.t[i][j] -= f * row[j]
		}
	}
	tb.inBasis[tb.basis[r]] = false
	tb.basis[r] = c
	tb.inBasis[c] = true
}

// optimize maximizes obj·x over the columns allowed to enter, using Bland's
// rule on both the entering and the leaving variable.
func (tb *tableau) optimize(obj []float64, allowed []bool) (lpStatus, error) {
	reduced := make([]float64, tb.n)
	for iter := 0; iter < lpMaxIter; iter++ {
		// 1) reduced costs
		copy(reduced, obj)
		for i := 0; i < tb.m; i++ {
			cb := obj[tb.basis[i]]
			if cb == 0 {
				continue
			}
			for j := 0; j < tb.n; j++ {
				reduced[j] -= cb * tb.t[i][j]
			}
		}
		// 2) entering column: smallest index with positive reduced cost
		enter := -1
		for j := 0; j < tb.n; j++ {
			if allowed[j] && !tb.inBasis[j] && reduced[j] > lpEpsilon {
				enter = j
				break
			}
		}
		if enter < 0 {
			return lpOptimal, nil
		}
		// 3) ratio test, ties broken by smallest basic index
		leave := -1
		best := math.Inf(1)
		for i := 0; i < tb.m; i++ {
			a := tb.t[i][enter]
			if a <= lpEpsilon {
				continue
			}
			ratio := tb.t[i][tb.n] / a
			if ratio < best-lpEpsilon || (ratio <= best+lpEpsilon && leave >= 0 && tb.basis[i] < tb.basis[leave]) {
				best, leave = ratio, i
			}
		}
		if leave < 0 {
			return lpUnbounded, nil
		}
		tb.pivot(leave, enter)
	}

	return lpInfeasible, errLPIterations
}

// solveLP maximizes c·x subject to rows and x ≥ 0.
//
// Implementation:
//   - Stage 1: normalize every row to b ≥ 0, add slack, surplus and
//     artificial columns.
//   - Stage 2: phase one minimizes the artificial sum; a positive optimum
//     means the rows are infeasible.
//   - Stage 3: drive zero-level artificials out of the basis, then phase two
//     maximizes c with artificials barred from entering.
//
// Complexity: exponential worst case, O(m·n) per pivot.
func solveLP(c []float64, rows []lpRow) ([]float64, float64, lpStatus, error) {
	nx := len(c)

	// Stage 1: layout
	nSlack, nArt := 0, 0
	for i := range rows {
		if rows[i].b < 0 {
			neg := make([]float64, len(rows[i].a))
			for j, v := range rows[i].a {
				neg[j] = -v
			}
			rows[i].a, rows[i].b = neg, -rows[i].b
			switch rows[i].kind {
			case le:
				rows[i].kind = ge
			case ge:
				rows[i].kind = le
			}
		}
		switch rows[i].kind {
		case le:
			nSlack++
		case ge:
			nSlack++
			nArt++
		case eq:
			nArt++
		}
	}
	n := nx + nSlack + nArt
	tb := &tableau{
		m:       len(rows),
		n:       n,
		t:       make([][]float64, len(rows)),
		basis:   make([]int, len(rows)),
		inBasis: make([]bool, n),
	}
	artificial := make([]bool, n)
	slack, art := nx, nx+nSlack
	for i, r := range rows {
		row := make([]float64, n+1)
		copy(row, r.a)
		row[n] = r.b
		switch r.kind {
		case le:
			row[slack] = 1
			tb.basis[i] = slack
			slack++
		case ge:
			row[slack] = -1
			slack++
			row[art] = 1
			artificial[art] = true
			tb.basis[i] = art
			art++
		case eq:
			row[art] = 1
			artificial[art] = true
			tb.basis[i] = art
			art++
		}
		tb.inBasis[tb.basis[i]] = true
		tb.t[i] = row
	}

	// Stage 2: phase one
	allowed := make([]bool, n)
	for j := range allowed {
		allowed[j] = true
	}
	if nArt > 0 {
		phase1 := make([]float64, n)
		for j := range phase1 {
			if artificial[j] {
				phase1[j] = -1
			}
		}
		if _, err := tb.optimize(phase1, allowed); err != nil {
			return nil, 0, lpInfeasible, err
		}
		var sum float64
		for i := 0; i < tb.m; i++ {
			if artificial[tb.basis[i]] {
				sum += tb.t[i][n]
			}
		}
		if sum > 1e-7 {
			return nil, 0, lpInfeasible, nil
		}
		// Stage 3: evict artificials left at zero level
		for i := 0; i < tb.m; i++ {
			if !artificial[tb.basis[i]] {
				continue
			}
			for j := 0; j < n; j++ {
				if !artificial[j] && !tb.inBasis[j] && math.Abs(tb.t[i][j]) > lpEpsilon {
					tb.pivot(i, j)
					break
				}
			}
		}
		for j := range allowed {
			allowed[j] = !artificial[j]
		}
	}

	obj := make([]float64, n)
	copy(obj, c)
	status, err := tb.optimize(obj, allowed)
	if err != nil || status != lpOptimal {
		return nil, 0, status, err
	}

	x := make([]float64, nx)
	var value float64
	for i := 0; i < tb.m; i++ {
		if b := tb.basis[i]; b < nx {
			x[b] = tb.t[i][n]
		}
	}
	for j, v := range c {
		value += v * x[j]
	}

	return x, value, lpOptimal, nil
}
