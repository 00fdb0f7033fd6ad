package gma_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/katalvlaran/dspace/gma"
	"github.com/katalvlaran/dspace/oracle"
)

// chain returns an n-pool linear pathway X0 -> X1 -> ... with a branch
// on every pool, giving 2^n cases.
func chain(n int) oracle.Definition {
	var eqs []string
	for i := 0; i < n; i++ {
		in := "v0"
		if i > 0 {
			in = fmt.Sprintf("k%d*X%d", i-1, i-1)
		}
		eqs = append(eqs, fmt.Sprintf("X%d. = %s - k%d*X%d - d%d*X%d", i, in, i, i, i, i))
	}

	return oracle.Definition{Equations: eqs, Options: oracle.SystemOptions{ResolveCycles: true}}
}

// BenchmarkFeasible_Chain6 measures one strict feasibility test per case
// of a six-pool pathway (64 cases).
func BenchmarkFeasible_Chain6(b *testing.B) {
	ctx := context.Background()
	e := gma.New()
	s, err := e.NewSystem(ctx, chain(6))
	if err != nil {
		b.Fatal(err)
	}
	defer s.Close()

	// 1) open every case once, outside the timer
	var cases []oracle.Case
	for n := uint64(1); n <= s.NumberOfCases(); n++ {
		c, err := s.Case(ctx, n)
		if err != nil {
			b.Fatal(err)
		}
		cases = append(cases, c)
	}
	defer func() {
		for _, c := range cases {
			_ = c.Close()
		}
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, c := range cases {
			_, _ = c.Feasible(ctx, nil, true)
		}
	}
}
