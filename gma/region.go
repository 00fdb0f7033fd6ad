package gma

import (
	"math"
)

const (
	// strictMargin is the smallest uniform margin that counts as interior.
	strictMargin = 1e-9
	// flatNorm marks a half-space whose free coefficients vanish.
	flatNorm = 1e-12
)

// halfspace is w·y + w0 > 0 in log10 coordinates.
type halfspace struct {
	w  []float64
	w0 float64
}

// problem is a log box [lo, hi] cut by half-spaces. Variables with
// lo == hi are pinned and folded into the constants.
type problem struct {
	lo, hi []float64
	rows   []halfspace
}

func (p *problem) free() []int {
	var idx []int
	for i := range p.lo {
		if p.lo[i] != p.hi[i] {
			idx = append(idx, i)
		}
	}

	return idx
}

// shift projects h onto the free variables measured from lo:
// h(y) = wf·z + k with z = y_free − lo_free.
func (p *problem) shift(h halfspace, free []int) ([]float64, float64) {
	k := h.w0
	for i, w := range h.w {
		k += w * p.lo[i]
	}
	wf := make([]float64, len(free))
	for j, i := range free {
		wf[j] = h.w[i]
	}

	return wf, k
}

func (p *problem) point(free []int, z []float64) []float64 {
	y := append([]float64(nil), p.lo...)
	for j, i := range free {
		y[i] += z[j]
	}

	return y
}

func (p *problem) boundRows(free []int, width int) []lpRow {
	rows := make([]lpRow, 0, len(free))
	for j, i := range free {
		a := make([]float64, width)
		a[j] = 1
		rows = append(rows, lpRow{a: a, kind: le, b: p.hi[i] - p.lo[i]})
	}

	return rows
}

func norm2(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}

	return math.Sqrt(s)
}

// margin maximizes the uniform slack t ∈ [0,1] of the normalized rows.
// ok is false when the closed region is empty; t > strictMargin means the
// region has interior points.
//
// Implementation:
//   - Stage 1: substitute pinned variables; rows left without free
//     coefficients are constants, checked directly.
//   - Stage 2: scale the remaining rows to unit normal and solve
//     max t s.t. w·y + k ≥ t, bounds, t ≤ 1.
//   - Stage 3: a constant row at exactly zero forces t = 0.
//
// Complexity: one LP with len(free)+1 columns.
func (p *problem) margin() (t float64, y []float64, ok bool, err error) {
	free := p.free()
	nf := len(free)
	interior := true

	// 1) rows: w·y − t ≥ −k with ‖w‖ = 1
	var rows []lpRow
	for _, h := range p.rows {
		wf, k := p.shift(h, free)
		n := norm2(wf)
		// constant row: violated, tight or strictly satisfied
		if n < flatNorm {
			if k < -lpEpsilon {
				return 0, nil, false, nil
			}
			if k <= lpEpsilon {
				interior = false
			}
			continue
		}
		a := make([]float64, nf+1)
		for j := range wf {
			a[j] = wf[j] / n
		}
		a[nf] = -1
		rows = append(rows, lpRow{a: a, kind: ge, b: -k / n})
	}
	// 2) cap t at 1 so unbounded regions stay optimal
	rows = append(rows, p.boundRows(free, nf+1)...)
	limit := make([]float64, nf+1)
	limit[nf] = 1
	rows = append(rows, lpRow{a: limit, kind: le, b: 1})

	obj := make([]float64, nf+1)
	obj[nf] = 1
	x, val, status, err := solveLP(obj, rows)
	if err != nil || status != lpOptimal {
		return 0, nil, false, err
	}
	// 3) closed but without interior
	if !interior {
		val = 0
	}

	return val, p.point(free, x[:nf]), true, nil
}

// optimize returns the extremum of c·y + c0 over the closed region.
func (p *problem) optimize(c []float64, c0 float64, maximize bool) (y []float64, value float64, ok bool, err error) {
	free := p.free()
	nf := len(free)

	var rows []lpRow
	for _, h := range p.rows {
		wf, k := p.shift(h, free)
		if norm2(wf) < flatNorm {
			if k < -lpEpsilon {
				return nil, 0, false, nil
			}
			continue
		}
		rows = append(rows, lpRow{a: wf, kind: ge, b: -k})
	}
	rows = append(rows, p.boundRows(free, nf)...)

	obj := make([]float64, nf)
	for j, i := range free {
		obj[j] = c[i]
		if !maximize {
			obj[j] = -c[i]
		}
	}
	x, _, status, err := solveLP(obj, rows)
	if err != nil || status != lpOptimal {
		return nil, 0, false, err
	}
	y = p.point(free, x)
	value = c0
	for i, v := range c {
		value += v * y[i]
	}

	return y, value, true, nil
}

// extent returns the range of c·y + c0 over the closed region.
func (p *problem) extent(c []float64, c0 float64) (lo, hi float64, ok bool, err error) {
	if _, lo, ok, err = p.optimize(c, c0, false); err != nil || !ok {
		return 0, 0, ok, err
	}
	if _, hi, ok, err = p.optimize(c, c0, true); err != nil || !ok {
		return 0, 0, ok, err
	}

	return lo, hi, true, nil
}

// polygon clips the 2-D slice over variables (i, j) with every row.
// All other variables must be pinned. The result is empty when the slice is.
//
// Implementation: Sutherland–Hodgman against one half-plane at a time,
// starting from the box rectangle.
func (p *problem) polygon(i, j int) [][]float64 {
	poly := [][]float64{
		{p.lo[i], p.lo[j]},
		{p.hi[i], p.lo[j]},
		{p.hi[i], p.hi[j]},
		{p.lo[i], p.hi[j]},
	}
	for _, h := range p.rows {
		k := h.w0
		for v, w := range h.w {
			if v != i && v != j {
				k += w * p.lo[v]
			}
		}
		a, b := h.w[i], h.w[j]
		f := func(pt []float64) float64 { return a*pt[0] + b*pt[1] + k }

		var out [][]float64
		for n := range poly {
			cur, next := poly[n], poly[(n+1)%len(poly)]
			fc, fn := f(cur), f(next)
			inCur, inNext := fc >= -lpEpsilon, fn >= -lpEpsilon
			if inCur {
				out = append(out, cur)
			}
			if inCur != inNext {
				s := fc / (fc - fn)
				out = append(out, []float64{cur[0] + s*(next[0]-cur[0]), cur[1] + s*(next[1]-cur[1])})
			}
		}
		poly = dedupe(out)
		if len(poly) == 0 {
			return nil
		}
	}

	return poly
}

func dedupe(poly [][]float64) [][]float64 {
	var out [][]float64
	for _, pt := range poly {
		if len(out) > 0 {
			last := out[len(out)-1]
			if math.Abs(last[0]-pt[0]) < lpEpsilon && math.Abs(last[1]-pt[1]) < lpEpsilon {
				continue
			}
		}
		out = append(out, pt)
	}
	if len(out) > 1 {
		first, last := out[0], out[len(out)-1]
		if math.Abs(last[0]-first[0]) < lpEpsilon && math.Abs(last[1]-first[1]) < lpEpsilon {
			out = out[:len(out)-1]
		}
	}

	return out
}

// area returns the shoelace area of a simple polygon.
func area(poly [][]float64) float64 {
	var s float64
	for n := range poly {
		a, b := poly[n], poly[(n+1)%len(poly)]
		s += a[0]*b[1] - b[0]*a[1]
	}

	return math.Abs(s) / 2
}
