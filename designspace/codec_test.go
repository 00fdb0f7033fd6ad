package designspace_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/dspace/designspace"
	"github.com/katalvlaran/dspace/oracle"
)

// memArchive is an in-memory designspace.Archive.
type memArchive struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (a *memArchive) Put(_ context.Context, key string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.data == nil {
		a.data = make(map[string][]byte)
	}
	a.data[key] = append([]byte(nil), data...)

	return nil
}

func (a *memArchive) Get(_ context.Context, key string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.data[key]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, designspace.ErrNotFound)
	}

	return d, nil
}

// TestMarshal_SpaceRoundTrip restores equations, symbols and variables.
func TestMarshal_SpaceRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := laminar()
	ds := newSpace(t, e, designspace.Config{Latex: map[string]string{"x": `\chi`}})

	data, err := ds.MarshalBinary()
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind: design_space")

	back, err := designspace.UnmarshalDesignSpace(ctx, e, data, designspace.Config{})
	require.NoError(t, err)
	defer back.Close()
	assert.Equal(t, ds.Equations(), back.Equations())
	assert.Equal(t, ds.Dependent(), back.Dependent())
	assert.Equal(t, map[string]string{"x": `\chi`}, back.Latex())

	got, err := back.ValidCases(ctx)
	require.NoError(t, err)
	want, err := ds.ValidCases(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// TestMarshal_CaseRoundTrip keeps the identifier and subcase path.
func TestMarshal_CaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := laminar()
	ds := newSpace(t, e, designspace.Config{})
	c := openCase(t, ds, "3_2")

	data, err := c.MarshalBinary()
	require.NoError(t, err)
	back, err := designspace.UnmarshalCase(ctx, e, data, designspace.Config{})
	require.NoError(t, err)
	defer back.Close()

	assert.Equal(t, "3_2", back.ID().String())
	assert.Equal(t, c.Signature(), back.Signature())
	ok, err := back.IsValid(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = designspace.UnmarshalDesignSpace(ctx, e, data, designspace.Config{})
	assert.ErrorIs(t, err, oracle.ErrArgument)
	_, err = designspace.UnmarshalCase(ctx, e, []byte("version: 1\nkind: other\n"), designspace.Config{})
	assert.ErrorIs(t, err, oracle.ErrArgument)
}

// TestMarshal_VariableConsistency rejects a system whose dependents moved.
func TestMarshal_VariableConsistency(t *testing.T) {
	ctx := context.Background()
	ds := newSpace(t, laminar(), designspace.Config{})
	data, err := ds.MarshalBinary()
	require.NoError(t, err)

	renamed := laminar()
	renamed.dep = []string{"Y"}
	_, err = designspace.UnmarshalDesignSpace(ctx, renamed, data, designspace.Config{})
	assert.ErrorIs(t, err, designspace.ErrVariableConsistency)
	assert.Zero(t, renamed.Live())
}

// TestSaveLoad stores a space through an Archive.
func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	e := laminar()
	ds := newSpace(t, e, designspace.Config{})
	a := &memArchive{}

	require.NoError(t, ds.Save(ctx, a, "laminar"))
	back, err := designspace.Load(ctx, a, "laminar", e, designspace.Config{})
	require.NoError(t, err)
	assert.Equal(t, ds.Equations(), back.Equations())
	require.NoError(t, back.Close())

	_, err = designspace.Load(ctx, a, "missing", e, designspace.Config{})
	assert.ErrorIs(t, err, designspace.ErrNotFound)
}
