package designspace_test

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain fails the package when a search leaves goroutines behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
