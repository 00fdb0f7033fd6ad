package designspace_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/dspace/designspace"
	"github.com/katalvlaran/dspace/oracle"
)

// TestLine1DPositiveRoots sweeps x with y fixed at 1.
func TestLine1DPositiveRoots(t *testing.T) {
	ds := newSpace(t, laminar(), designspace.Config{})

	lines, err := ds.Line1DPositiveRoots(context.Background(), "x", oracle.Point{"y": 1})
	require.NoError(t, err)
	require.Len(t, lines, 4)

	var order []string
	for _, l := range lines {
		order = append(order, l.Case.String())
	}
	assert.Equal(t, []string{"1", "3_1", "10", "2"}, order)

	ten := lines[2]
	assert.InEpsilon(t, 0.01, ten.Lower, 1e-9)
	assert.InEpsilon(t, 100, ten.Upper, 1e-9)
	assert.InEpsilon(t, 1, ten.Middle, 1e-9)
	assert.Equal(t, 1, ten.Roots)
	assert.Zero(t, lines[0].Roots)

	_, err = ds.Line1DPositiveRoots(context.Background(), "x", oracle.Point{})
	assert.ErrorIs(t, err, oracle.ErrArgument)
	_, err = ds.Line1DPositiveRoots(context.Background(), "X", oracle.Point{"y": 1})
	assert.ErrorIs(t, err, oracle.ErrArgument)
}

// TestLogGainRepertoire reads two gains from every valid case.
func TestLogGainRepertoire(t *testing.T) {
	ds := newSpace(t, laminar(), designspace.Config{})

	pts, err := ds.LogGainRepertoire(context.Background(),
		designspace.Gain{Dependent: "X", Independent: "x"},
		designspace.Gain{Dependent: "X", Independent: "y"})
	require.NoError(t, err)
	require.Len(t, pts, 5)
	assert.Equal(t, "3_1", pts[2].Case.String())
	assert.Equal(t, 3.0, pts[2].X)
	assert.Equal(t, 6.0, pts[2].Y)
	assert.Equal(t, 20.0, pts[4].Y)

	_, err = ds.LogGainRepertoire(context.Background(),
		designspace.Gain{Dependent: "Z", Independent: "x"},
		designspace.Gain{Dependent: "X", Independent: "y"})
	assert.ErrorIs(t, err, oracle.ErrArgument)
}

// TestConservedMoieties finds the mass balance of a closed exchange.
func TestConservedMoieties(t *testing.T) {
	e := laminar()
	e.dep = []string{"A", "B", "C"}
	e.stoich = oracle.Stoichiometry{
		Species: []string{"A", "B", "C"},
		Fluxes:  []string{"k1*A", "k2*B"},
		Matrix:  [][]float64{{-1, 0}, {1, -1}, {0, 1}},
	}
	ds := newSpace(t, e, designspace.Config{})

	got, err := ds.ConservedMoieties()
	require.NoError(t, err)
	assert.Equal(t, []designspace.Moiety{{"A": 1, "B": 1, "C": 1}}, got)

	st, err := ds.Stoichiometry()
	require.NoError(t, err)
	assert.Equal(t, e.stoich.Species, st.Species)
}
