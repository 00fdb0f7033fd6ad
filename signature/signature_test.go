package signature_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/dspace/signature"
)

// TestParse_Grammar covers bare digits, parenthesized indices, wildcards and whitespace.
func TestParse_Grammar(t *testing.T) {
	p, err := signature.Parse("1 1(12)*2")
	require.NoError(t, err)
	assert.Equal(t, signature.Pattern{1, 1, 12, signature.Wildcard, 2}, p)
	assert.Equal(t, "11(12)*2", p.String())
	assert.False(t, p.Concrete())
}

// TestParse_Errors covers unclosed groups, zero indices and foreign characters.
func TestParse_Errors(t *testing.T) {
	for _, in := range []string{"", "  ", "1(2", "1(0)", "10", "1a", "(x)", "1-2"} {
		_, err := signature.Parse(in)
		assert.ErrorIs(t, err, signature.ErrSyntax, in)
	}
}

// TestExpand_Odometer verifies ascending odometer order over wildcard positions.
func TestExpand_Odometer(t *testing.T) {
	p, err := signature.Parse("*1*")
	require.NoError(t, err)

	got, err := p.Expand([]int{2, 1, 3})
	require.NoError(t, err)

	want := []signature.Signature{
		{1, 1, 1}, {1, 1, 2}, {1, 1, 3},
		{2, 1, 1}, {2, 1, 2}, {2, 1, 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Expand mismatch (-want +got):\n%s", diff)
	}

	n, err := p.Count([]int{2, 1, 3})
	require.NoError(t, err)
	assert.Equal(t, uint64(len(want)), n)
}

// TestExpand_Concrete returns the single signature unchanged.
func TestExpand_Concrete(t *testing.T) {
	p, err := signature.Parse("21")
	require.NoError(t, err)
	got, err := p.Expand([]int{2, 1})
	require.NoError(t, err)
	assert.Equal(t, []signature.Signature{{2, 1}}, got)

	sig, err := p.Signature()
	require.NoError(t, err)
	assert.Equal(t, "21", sig.String())
}

// TestExpand_Validation covers length and range mismatches.
func TestExpand_Validation(t *testing.T) {
	p, err := signature.Parse("3*")
	require.NoError(t, err)

	_, err = p.Expand([]int{2})
	assert.ErrorIs(t, err, signature.ErrLength)

	_, err = p.Expand([]int{2, 2})
	assert.ErrorIs(t, err, signature.ErrRange)

	_, err = signature.Pattern{signature.Wildcard}.Signature()
	assert.ErrorIs(t, err, signature.ErrSyntax)
}

// TestSignature_Validate checks per-position bounds.
func TestSignature_Validate(t *testing.T) {
	s := signature.Signature{1, 12}
	assert.NoError(t, s.Validate([]int{1, 12}))
	assert.ErrorIs(t, s.Validate([]int{1, 11}), signature.ErrRange)
	assert.ErrorIs(t, s.Validate([]int{1}), signature.ErrLength)
	assert.Equal(t, "1(12)", s.String())
	assert.True(t, s.Equal(signature.Signature{1, 12}))
	assert.False(t, s.Equal(signature.Signature{1}))
}

// TestPattern_Count checks the product of wildcard radices and its uint64 limit.
func TestPattern_Count(t *testing.T) {
	n, err := signature.Pattern{signature.Wildcard, 2, signature.Wildcard}.Count([]int{3, 2, 4})
	require.NoError(t, err)
	assert.Equal(t, uint64(12), n)

	n, err = signature.Pattern{1, 2}.Count([]int{3, 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	wide := make(signature.Pattern, 64)
	radix := make([]int, 64)
	for i := range radix {
		radix[i] = 2
	}
	n, err = wide[:63].Count(radix[:63])
	require.NoError(t, err)
	assert.Equal(t, uint64(1)<<63, n)

	_, err = wide.Count(radix)
	assert.ErrorIs(t, err, signature.ErrRange)
}
