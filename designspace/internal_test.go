package designspace

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBinomial checks exact values near the uint64 limit and saturation
// past it.
func TestBinomial(t *testing.T) {
	assert.Equal(t, uint64(1), binomial(5, 0))
	assert.Equal(t, uint64(10), binomial(5, 3))
	assert.Zero(t, binomial(3, 5))
	assert.Equal(t, uint64(118264581564861424), binomial(60, 30))

	// the intermediate products exceed 64 bits, the results do not
	assert.Equal(t, uint64(2315851784401765545), binomial(747, 8))
	assert.Equal(t, uint64(2635398397527624600), binomial(1450, 7))

	assert.Equal(t, uint64(math.MaxUint64), binomial(1000, 8))
	assert.Equal(t, uint64(math.MaxUint64), binomial(100000, 50))
}
