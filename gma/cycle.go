package gma

import (
	"sort"
	"strconv"
	"strings"
)

// Visitation colours for the flux-graph walk.
const (
	white = iota
	gray
	black
)

// fluxGraph links equation i to equation j when the dominant negative term
// of i is the dominant positive term of j: the same flux leaves one pool and
// enters the other.
type fluxGraph struct {
	adj [][]int
}

func newFluxGraph(eqs []balance) *fluxGraph {
	g := &fluxGraph{adj: make([][]int, len(eqs))}
	for i := range eqs {
		out := eqs[i].neg[eqs[i].q].String()
		for j := range eqs {
			if i != j && eqs[j].pos[eqs[j].p].String() == out {
				g.adj[i] = append(g.adj[i], j)
			}
		}
	}

	return g
}

// cycles returns every distinct simple cycle found through back edges,
// each rotated to start at its smallest vertex (without repeating it),
// sorted lexicographically.
//
// Complexity: O(V + E + C·L).
func (g *fluxGraph) cycles() [][]int {
	state := make([]int, len(g.adj))
	var path []int
	seen := make(map[string]struct{})
	var found [][]int

	var visit func(v int)
	visit = func(v int) {
		// 1) enter: gray and on the path
		state[v] = gray
		path = append(path, v)

		// 2) explore successors
		for _, w := range g.adj[v] {
			switch state[w] {
			case white:
				visit(w)
			case gray:
				// back edge closes path[idx:]
				idx := 0
				for path[idx] != w {
					idx++
				}
				cyc := canonicalCycle(path[idx:])
				key := cycleKey(cyc)
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					found = append(found, cyc)
				}
			}
		}

		// 3) leave
		path = path[:len(path)-1]
		state[v] = black
	}

	for v := range g.adj {
		if state[v] == white {
			visit(v)
		}
	}

	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}

		return len(a) < len(b)
	})

	return found
}

// canonicalCycle rotates seq so it starts at its minimum vertex.
func canonicalCycle(seq []int) []int {
	m := 0
	for i, v := range seq {
		if v < seq[m] {
			m = i
		}
	}
	out := make([]int, 0, len(seq))
	out = append(out, seq[m:]...)
	out = append(out, seq[:m]...)

	return out
}

func cycleKey(cyc []int) string {
	parts := make([]string, len(cyc))
	for i, v := range cyc {
		parts[i] = strconv.Itoa(v)
	}

	return strings.Join(parts, ",")
}
