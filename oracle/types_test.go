package oracle_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/dspace/oracle"
)

// TestCheckBounds_Inverted reports the first inverted variable in name order,
// even when other entries are malformed too.
func TestCheckBounds_Inverted(t *testing.T) {
	err := oracle.CheckBounds(oracle.Box{
		"b": {Lower: 10, Upper: 1},
		"a": {Lower: -1, Upper: 1},
		"c": {Lower: 5, Upper: 2},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, oracle.ErrInvertedBounds)

	var inv *oracle.InvertedBoundsError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, "b", inv.Variable)
	assert.Equal(t, 10.0, inv.Lower)
	assert.Equal(t, 1.0, inv.Upper)
}

// TestCheckBounds_Argument rejects non-positive and infinite endpoints.
func TestCheckBounds_Argument(t *testing.T) {
	assert.ErrorIs(t, oracle.CheckBounds(oracle.Box{"a": {Lower: 0, Upper: 1}}), oracle.ErrArgument)
	assert.ErrorIs(t, oracle.CheckBounds(oracle.Box{"a": {Lower: 1, Upper: math.Inf(1)}}), oracle.ErrArgument)
	assert.NoError(t, oracle.CheckBounds(oracle.Box{"a": {Lower: 2, Upper: 2}}))
	assert.NoError(t, oracle.CheckBounds(nil))
}

// TestBox_Narrow substitutes ranges and rejects unknown variables.
func TestBox_Narrow(t *testing.T) {
	box := oracle.DefaultBox([]string{"x", "y"})

	out, err := box.Narrow(oracle.Box{"x": {Lower: 1, Upper: 10}})
	require.NoError(t, err)
	assert.Equal(t, oracle.Range{Lower: 1, Upper: 10}, out["x"])
	assert.Equal(t, oracle.Range{Lower: oracle.DefaultLower, Upper: oracle.DefaultUpper}, out["y"])
	// receiver untouched
	assert.Equal(t, oracle.DefaultLower, box["x"].Lower)

	_, err = box.Narrow(oracle.Box{"z": {Lower: 1, Upper: 2}})
	assert.ErrorIs(t, err, oracle.ErrArgument)
}

// TestBox_Pin fixes every point coordinate except the skipped ones.
func TestBox_Pin(t *testing.T) {
	box := oracle.DefaultBox([]string{"x", "y", "z"})
	pinned := box.Pin(oracle.Point{"x": 3, "y": 4, "w": 9}, "y")

	assert.True(t, pinned["x"].Pinned())
	assert.Equal(t, 3.0, pinned["x"].Lower)
	assert.False(t, pinned["y"].Pinned())
	assert.False(t, pinned["z"].Pinned())
	_, ok := pinned["w"]
	assert.False(t, ok)
	assert.Equal(t, []string{"x", "y", "z"}, pinned.Keys())
}

// TestRange_LogContains checks log conversion and slack containment.
func TestRange_LogContains(t *testing.T) {
	r := oracle.Range{Lower: 0.01, Upper: 1000}
	lo, hi := r.Log()
	assert.InDelta(t, -2, lo, 1e-12)
	assert.InDelta(t, 3, hi, 1e-12)
	assert.True(t, r.Contains(1000.5, 1e-3))
	assert.False(t, r.Contains(2000, 1e-3))
}
