// Package signature implements dominant-term signatures and the textual
// signature pattern grammar.
//
// A Signature holds, for each position exposed by the engine, the 1-based
// index of the dominant power-law term. A Pattern is the parsed form of a
// user-supplied signature string, in which any position may be a wildcard.
//
// Grammar (whitespace ignored):
//
//	pattern  := element { element }
//	element  := digit | "(" digits ")" | "*"
//
// A bare digit is exactly one position; multi-digit term indices must be
// parenthesized, e.g. "11(12)1*".
package signature

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Wildcard marks a pattern position that matches every term index.
const Wildcard = 0

var (
	// ErrSyntax is returned for text that does not follow the grammar.
	ErrSyntax = errors.New("signature: invalid syntax")

	// ErrLength is returned when a signature or pattern does not have one
	// element per engine position.
	ErrLength = errors.New("signature: length mismatch")

	// ErrRange is returned when a concrete index exceeds the number of terms
	// available at its position.
	ErrRange = errors.New("signature: term index out of range")
)

// Signature is a concrete dominant-term choice, one 1-based index per position.
type Signature []int

// String prints the signature in pattern syntax, parenthesizing indices ≥ 10.
func (s Signature) String() string {
	var b strings.Builder
	for _, v := range s {
		writeElement(&b, v)
	}

	return b.String()
}

// Equal reports element-wise equality.
func (s Signature) Equal(other Signature) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}

	return true
}

// Validate checks s against the per-position term counts in radix.
func (s Signature) Validate(radix []int) error {
	if len(s) != len(radix) {
		return fmt.Errorf("Validate: %d positions, want %d: %w", len(s), len(radix), ErrLength)
	}
	for i, v := range s {
		if v < 1 || v > radix[i] {
			return fmt.Errorf("Validate: position %d index %d not in [1,%d]: %w", i+1, v, radix[i], ErrRange)
		}
	}

	return nil
}

// Pattern is a signature whose elements may be Wildcard.
type Pattern []int

// Parse reads text following the package grammar.
func Parse(text string) (Pattern, error) {
	var (
		out Pattern
		i   int
	)
	for i < len(text) {
		ch := text[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '*':
			out = append(out, Wildcard)
			i++
		case ch >= '1' && ch <= '9':
			out = append(out, int(ch-'0'))
			i++
		case ch == '(':
			end := strings.IndexByte(text[i:], ')')
			if end < 0 {
				return nil, fmt.Errorf("Parse(%q): unclosed '(' at %d: %w", text, i, ErrSyntax)
			}
			inner := strings.TrimSpace(text[i+1 : i+end])
			n, err := strconv.Atoi(inner)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("Parse(%q): bad element %q: %w", text, inner, ErrSyntax)
			}
			out = append(out, n)
			i += end + 1
		default:
			return nil, fmt.Errorf("Parse(%q): unexpected %q at %d: %w", text, ch, i, ErrSyntax)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("Parse(%q): empty pattern: %w", text, ErrSyntax)
	}

	return out, nil
}

// String prints the pattern in grammar syntax.
func (p Pattern) String() string {
	var b strings.Builder
	for _, v := range p {
		writeElement(&b, v)
	}

	return b.String()
}

// Concrete reports whether p has no wildcard positions.
func (p Pattern) Concrete() bool {
	for _, v := range p {
		if v == Wildcard {
			return false
		}
	}

	return true
}

// Signature converts a concrete pattern. It fails with ErrSyntax if p holds a wildcard.
func (p Pattern) Signature() (Signature, error) {
	if !p.Concrete() {
		return nil, fmt.Errorf("Signature(%s): pattern has wildcards: %w", p, ErrSyntax)
	}

	return Signature(append([]int(nil), p...)), nil
}

// Count returns how many concrete signatures Expand would produce for radix.
// It fails with ErrRange when the count does not fit in a uint64.
func (p Pattern) Count(radix []int) (uint64, error) {
	if err := p.check(radix); err != nil {
		return 0, err
	}
	total := uint64(1)
	for i, v := range p {
		if v != Wildcard {
			continue
		}
		r := uint64(radix[i])
		if total > math.MaxUint64/r {
			return 0, fmt.Errorf("Count(%s): exceeds %d at position %d: %w", p, uint64(math.MaxUint64), i+1, ErrRange)
		}
		total *= r
	}

	return total, nil
}

// Expand returns every concrete signature matching p, where radix[i] is the
// number of terms available at position i. Wildcard positions are iterated
// like an odometer: the last wildcard varies fastest, so the output is in
// ascending lexicographic order.
//
// Complexity: O(K·L) for K results of length L.
func (p Pattern) Expand(radix []int) ([]Signature, error) {
	if err := p.check(radix); err != nil {
		return nil, err
	}

	// Stage 1: collect wildcard positions and seed with index 1.
	var wild []int
	cur := make(Signature, len(p))
	for i, v := range p {
		if v == Wildcard {
			wild = append(wild, i)
			cur[i] = 1
		} else {
			cur[i] = v
		}
	}

	// Stage 2: odometer over wildcard positions.
	var out []Signature
	for {
		out = append(out, append(Signature(nil), cur...))

		k := len(wild) - 1
		for ; k >= 0; k-- {
			pos := wild[k]
			if cur[pos] < radix[pos] {
				cur[pos]++
				break
			}
			cur[pos] = 1
		}
		if k < 0 {
			return out, nil
		}
	}
}

func (p Pattern) check(radix []int) error {
	if len(p) != len(radix) {
		return fmt.Errorf("Expand(%s): %d positions, want %d: %w", p, len(p), len(radix), ErrLength)
	}
	for i, v := range p {
		if v != Wildcard && (v < 1 || v > radix[i]) {
			return fmt.Errorf("Expand(%s): position %d index %d not in [1,%d]: %w", p, i+1, v, radix[i], ErrRange)
		}
		if radix[i] < 1 {
			return fmt.Errorf("Expand(%s): position %d has no terms: %w", p, i+1, ErrRange)
		}
	}

	return nil
}

func writeElement(b *strings.Builder, v int) {
	switch {
	case v == Wildcard:
		b.WriteByte('*')
	case v < 10:
		b.WriteString(strconv.Itoa(v))
	default:
		b.WriteByte('(')
		b.WriteString(strconv.Itoa(v))
		b.WriteByte(')')
	}
}
