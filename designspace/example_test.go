package designspace_test

import (
	"context"
	"fmt"

	"github.com/katalvlaran/dspace/caseid"
	"github.com/katalvlaran/dspace/designspace"
	"github.com/katalvlaran/dspace/gma"
)

// ExampleDesignSpace_ValidCases lists the valid cases of a two-pool
// exchange, first with its cyclical case resolved, then without.
func ExampleDesignSpace_ValidCases() {
	ctx := context.Background()
	ds, err := designspace.New(ctx, gma.New(), []string{
		"X1. = a1 + k21*X2 - k12*X1",
		"X2. = k12*X1 - k21*X2 - b2*X2",
	}, designspace.DefaultConfig())
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer ds.Close()

	leaves, _ := ds.ValidCases(ctx)
	roots, _ := ds.ValidCases(ctx, designspace.WithExpandCycles(false))
	fmt.Println(caseid.Strings(leaves))
	fmt.Println(caseid.Strings(roots))

	c, err := ds.Case(ctx, "3")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer c.Close()
	fmt.Println(c.Signature(), c.IsCyclical())

	// Output:
	// [2 3_1]
	// [2 3]
	// 2111 true
}
