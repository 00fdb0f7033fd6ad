package gma

import (
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/dspace/oracle"
	"github.com/katalvlaran/dspace/signature"
)

// model is the immutable compiled form of a Definition.
type model struct {
	def         oracle.Definition
	eqs         []equation
	dependent   []string
	independent []string
	depIndex    map[string]int
	indIndex    map[string]int
	radix       []int
	total       uint64
}

// compile parses every equation and derives the variable pools.
//
// Stage 1: parse equations and collect dependent variables in order.
// Stage 2: check auxiliary names against the algebraic equations.
// Stage 3: collect independent symbols and the signature radix.
func compile(def oracle.Definition) (*model, error) {
	if len(def.Equations) == 0 {
		return nil, fmt.Errorf("gma: no equations: %w", oracle.ErrArgument)
	}
	m := &model{
		def:      def,
		depIndex: make(map[string]int, len(def.Equations)),
		indIndex: make(map[string]int),
	}

	// Stage 1
	for i, src := range def.Equations {
		eq, err := parseEquation(src)
		if err != nil {
			return nil, fmt.Errorf("gma: equation %d: %w", i+1, err)
		}
		if _, dup := m.depIndex[eq.lhs]; dup {
			return nil, fmt.Errorf("gma: %q defined twice: %w", eq.lhs, oracle.ErrArgument)
		}
		m.depIndex[eq.lhs] = len(m.dependent)
		m.dependent = append(m.dependent, eq.lhs)
		m.eqs = append(m.eqs, eq)
	}

	// Stage 2
	aux := make(map[string]bool, len(def.Auxiliary))
	for _, a := range def.Auxiliary {
		aux[a] = true
	}
	for _, eq := range m.eqs {
		if !eq.ode && !aux[eq.lhs] {
			return nil, fmt.Errorf("gma: algebraic %q is not auxiliary: %w", eq.lhs, oracle.ErrArgument)
		}
		delete(aux, eq.lhs)
	}
	for a := range aux {
		return nil, fmt.Errorf("gma: auxiliary %q has no algebraic equation: %w", a, oracle.ErrArgument)
	}

	// Stage 3
	symbols := make(map[string]bool)
	for _, eq := range m.eqs {
		for _, t := range append(append([]term(nil), eq.pos...), eq.neg...) {
			for v := range t.exps {
				if _, dep := m.depIndex[v]; !dep {
					symbols[v] = true
				}
			}
		}
	}
	for v := range symbols {
		m.independent = append(m.independent, v)
	}
	sort.Strings(m.independent)
	for i, v := range m.independent {
		m.indIndex[v] = i
	}

	m.total = 1
	for _, eq := range m.eqs {
		for _, r := range []int{len(eq.pos), len(eq.neg)} {
			if m.total > math.MaxUint64/uint64(r) {
				return nil, fmt.Errorf("gma: case count overflows: %w", oracle.ErrArgument)
			}
			m.total *= uint64(r)
			m.radix = append(m.radix, r)
		}
	}

	return m, nil
}

// number maps a signature to its case number.
func (m *model) number(sig signature.Signature) (uint64, error) {
	if err := sig.Validate(m.radix); err != nil {
		return 0, fmt.Errorf("gma: %w: %w", oracle.ErrArgument, err)
	}
	var n uint64
	for i, v := range sig {
		n = n*uint64(m.radix[i]) + uint64(v-1)
	}

	return n + 1, nil
}

// signature maps a case number back to its signature.
func (m *model) signature(number uint64) (signature.Signature, error) {
	if number < 1 || number > m.total {
		return nil, fmt.Errorf("gma: case %d not in [1,%d]: %w", number, m.total, oracle.ErrArgument)
	}
	n := number - 1
	sig := make(signature.Signature, len(m.radix))
	for i := len(m.radix) - 1; i >= 0; i-- {
		r := uint64(m.radix[i])
		sig[i] = int(n%r) + 1
		n /= r
	}

	return sig, nil
}

// known reports whether name is a variable of the system.
func (m *model) known(name string) bool {
	if _, ok := m.depIndex[name]; ok {
		return true
	}
	_, ok := m.indIndex[name]

	return ok
}

// stoichiometry builds the species × flux sign matrix over ODE equations.
// Fluxes are distinct terms in order of first appearance.
func (m *model) stoichiometry() oracle.Stoichiometry {
	var st oracle.Stoichiometry
	column := make(map[string]int)
	type entry struct{ row, col int; sign float64 }
	var entries []entry

	for _, eq := range m.eqs {
		if !eq.ode {
			continue
		}
		row := len(st.Species)
		st.Species = append(st.Species, eq.lhs)
		add := func(t term, sign float64) {
			key := t.String()
			col, ok := column[key]
			if !ok {
				col = len(st.Fluxes)
				column[key] = col
				st.Fluxes = append(st.Fluxes, key)
			}
			entries = append(entries, entry{row: row, col: col, sign: sign})
		}
		for _, t := range eq.pos {
			add(t, 1)
		}
		for _, t := range eq.neg {
			add(t, -1)
		}
	}

	st.Matrix = make([][]float64, len(st.Species))
	for i := range st.Matrix {
		st.Matrix[i] = make([]float64, len(st.Fluxes))
	}
	for _, e := range entries {
		st.Matrix[e.row][e.col] += e.sign
	}

	return st
}
