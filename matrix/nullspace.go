// SPDX-License-Identifier: MIT

package matrix

import "math"

// rref reduces a copy of m to reduced row echelon form and returns it
// together with the pivot column of each non-zero row.
// Entries with magnitude below Tolerance·scale are treated as zero.
//
// Complexity: O(r·c·min(r,c)).
func rref(m *Dense) (*Dense, []int) {
	out := m.Clone()
	r, c := out.r, out.c
	scale := math.Max(m.MaxAbs(), 1)
	eps := Tolerance * scale

	var pivots []int
	row := 0
	for col := 0; col < c && row < r; col++ {
		// 1) pick largest entry in this column at or below row
		p, best := -1, eps
		for i := row; i < r; i++ {
			if v := math.Abs(out.data[i*c+col]); v > best {
				best, p = v, i
			}
		}
		if p < 0 {
			continue
		}
		// 2) swap into place and normalize
		if p != row {
			for j := 0; j < c; j++ {
				out.data[row*c+j], out.data[p*c+j] = out.data[p*c+j], out.data[row*c+j]
			}
		}
		pv := out.data[row*c+col]
		for j := 0; j < c; j++ {
			out.data[row*c+j] /= pv
		}
		// 3) clear the column everywhere else
		for i := 0; i < r; i++ {
			if i == row {
				continue
			}
			f := out.data[i*c+col]
			if f == 0 {
				continue
			}
			for j := 0; j < c; j++ {
				out.data[i*c+j] -= f * out.data[row*c+j]
			}
		}
		pivots = append(pivots, col)
		row++
	}
	// snap tiny residues to zero for stable output
	for i, v := range out.data {
		if math.Abs(v) < eps {
			out.data[i] = 0
		}
	}

	return out, pivots
}

// Rank returns the numerical rank of m.
func Rank(m *Dense) int {
	_, pivots := rref(m)

	return len(pivots)
}

// NullSpace returns a basis of {x : m·x = 0}, one vector per free column,
// in ascending order of the free column. Each basis vector has a 1 at its
// free column. An empty result means the null space is trivial.
//
// Complexity: O(r·c·min(r,c)).
func NullSpace(m *Dense) [][]float64 {
	red, pivots := rref(m)
	isPivot := make(map[int]int, len(pivots))
	for row, col := range pivots {
		isPivot[col] = row
	}

	var basis [][]float64
	for free := 0; free < m.c; free++ {
		if _, ok := isPivot[free]; ok {
			continue
		}
		v := make([]float64, m.c)
		v[free] = 1
		for row, col := range pivots {
			v[col] = -red.data[row*red.c+free]
		}
		basis = append(basis, v)
	}

	return basis
}

// LeftNullSpace returns a basis of {y : yᵀ·m = 0}.
func LeftNullSpace(m *Dense) [][]float64 {
	return NullSpace(m.Transpose())
}
