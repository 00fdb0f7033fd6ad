package gma

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/katalvlaran/dspace/oracle"
)

// ErrParse is returned for malformed equations, constraints and objectives.
// It matches oracle.ErrArgument.
var ErrParse = fmt.Errorf("gma: malformed expression: %w", oracle.ErrArgument)

// term is one power-law monomial coef·Π x^e.
type term struct {
	coef float64
	exps map[string]float64
}

// logCoef returns log10 of the coefficient.
func (t term) logCoef() float64 { return math.Log10(t.coef) }

// vars returns the variable names in ascending order.
func (t term) vars() []string {
	names := make([]string, 0, len(t.exps))
	for v := range t.exps {
		names = append(names, v)
	}
	sort.Strings(names)

	return names
}

// String renders the canonical form, which doubles as the flux key.
func (t term) String() string {
	var parts []string
	if t.coef != 1 || len(t.exps) == 0 {
		parts = append(parts, strconv.FormatFloat(t.coef, 'g', -1, 64))
	}
	for _, v := range t.vars() {
		e := t.exps[v]
		if e == 1 {
			parts = append(parts, v)
			continue
		}
		parts = append(parts, v+"^"+strconv.FormatFloat(e, 'g', -1, 64))
	}

	return strings.Join(parts, "*")
}

// scanner walks an expression byte by byte.
type scanner struct {
	src string
	pos int
}

func (sc *scanner) skip() {
	for sc.pos < len(sc.src) && (sc.src[sc.pos] == ' ' || sc.src[sc.pos] == '\t') {
		sc.pos++
	}
}

func (sc *scanner) eof() bool {
	sc.skip()

	return sc.pos >= len(sc.src)
}

func (sc *scanner) peek() byte {
	sc.skip()
	if sc.pos >= len(sc.src) {
		return 0
	}

	return sc.src[sc.pos]
}

func (sc *scanner) errorf(format string, args ...any) error {
	return fmt.Errorf("%q at %d: %s: %w", sc.src, sc.pos, fmt.Sprintf(format, args...), ErrParse)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

// number scans an unsigned decimal literal with optional exponent.
func (sc *scanner) number() (float64, error) {
	sc.skip()
	start := sc.pos
	for sc.pos < len(sc.src) && (isDigit(sc.src[sc.pos]) || sc.src[sc.pos] == '.') {
		sc.pos++
	}
	if sc.pos < len(sc.src) && (sc.src[sc.pos] == 'e' || sc.src[sc.pos] == 'E') {
		j := sc.pos + 1
		if j < len(sc.src) && (sc.src[j] == '+' || sc.src[j] == '-') {
			j++
		}
		if j < len(sc.src) && isDigit(sc.src[j]) {
			for j < len(sc.src) && isDigit(sc.src[j]) {
				j++
			}
			sc.pos = j
		}
	}
	if start == sc.pos {
		return 0, sc.errorf("expected number")
	}
	v, err := strconv.ParseFloat(sc.src[start:sc.pos], 64)
	if err != nil {
		return 0, sc.errorf("bad number %q", sc.src[start:sc.pos])
	}

	return v, nil
}

func (sc *scanner) ident() (string, error) {
	sc.skip()
	start := sc.pos
	if sc.pos >= len(sc.src) || !isIdentStart(sc.src[sc.pos]) {
		return "", sc.errorf("expected identifier")
	}
	for sc.pos < len(sc.src) && isIdentPart(sc.src[sc.pos]) {
		sc.pos++
	}

	return sc.src[start:sc.pos], nil
}

// exponent scans "2", "-0.5" or "(-1)".
func (sc *scanner) exponent() (float64, error) {
	paren := sc.peek() == '('
	if paren {
		sc.pos++
	}
	sign := 1.0
	switch sc.peek() {
	case '-':
		sign = -1
		sc.pos++
	case '+':
		sc.pos++
	}
	v, err := sc.number()
	if err != nil {
		return 0, err
	}
	if paren {
		if sc.peek() != ')' {
			return 0, sc.errorf("expected ')'")
		}
		sc.pos++
	}

	return sign * v, nil
}

// term scans factor (('*'|'/') factor)*.
func (sc *scanner) term() (term, error) {
	t := term{coef: 1, exps: make(map[string]float64)}
	div := false
	for {
		c := sc.peek()
		switch {
		case isDigit(c) || c == '.':
			v, err := sc.number()
			if err != nil {
				return term{}, err
			}
			if !(v > 0) || math.IsInf(v, 0) {
				return term{}, sc.errorf("coefficient must be positive and finite")
			}
			if div {
				t.coef /= v
			} else {
				t.coef *= v
			}
		case isIdentStart(c):
			name, err := sc.ident()
			if err != nil {
				return term{}, err
			}
			e := 1.0
			if sc.peek() == '^' {
				sc.pos++
				if e, err = sc.exponent(); err != nil {
					return term{}, err
				}
			}
			if div {
				e = -e
			}
			t.exps[name] += e
		default:
			return term{}, sc.errorf("expected factor")
		}

		switch sc.peek() {
		case '*':
			div = false
			sc.pos++
		case '/':
			div = true
			sc.pos++
		default:
			for v, e := range t.exps {
				if e == 0 {
					delete(t.exps, v)
				}
			}

			return t, nil
		}
	}
}

// parseSum splits a signed sum of terms into positive and negative parts.
func parseSum(src string) (pos, neg []term, err error) {
	sc := &scanner{src: src}
	if sc.eof() {
		return nil, nil, sc.errorf("empty expression")
	}
	positive := true
	switch sc.peek() {
	case '-':
		positive = false
		sc.pos++
	case '+':
		sc.pos++
	}
	for {
		t, err := sc.term()
		if err != nil {
			return nil, nil, err
		}
		if positive {
			pos = append(pos, t)
		} else {
			neg = append(neg, t)
		}
		if sc.eof() {
			return pos, neg, nil
		}
		switch sc.peek() {
		case '+':
			positive = true
		case '-':
			positive = false
		default:
			return nil, nil, sc.errorf("expected '+' or '-'")
		}
		sc.pos++
	}
}

// parseTerm parses exactly one positive monomial.
func parseTerm(src string) (term, error) {
	pos, neg, err := parseSum(src)
	if err != nil {
		return term{}, err
	}
	if len(pos) != 1 || len(neg) != 0 {
		return term{}, fmt.Errorf("%q: want a single positive term: %w", src, ErrParse)
	}

	return pos[0], nil
}

// equation is one parsed line. Algebraic equations X = f are stored as
// 0 = f − X, so X is appended to the negative terms.
type equation struct {
	lhs string
	ode bool
	pos []term
	neg []term
}

func parseEquation(src string) (equation, error) {
	lhs, rhs, ok := strings.Cut(src, "=")
	if !ok {
		return equation{}, fmt.Errorf("%q: missing '=': %w", src, ErrParse)
	}
	lhs = strings.TrimSpace(lhs)
	eq := equation{}
	if strings.HasSuffix(lhs, ".") {
		eq.ode = true
		lhs = strings.TrimSpace(strings.TrimSuffix(lhs, "."))
	}
	sc := &scanner{src: lhs}
	name, err := sc.ident()
	if err != nil || !sc.eof() {
		return equation{}, fmt.Errorf("%q: bad left-hand side: %w", src, ErrParse)
	}
	eq.lhs = name

	if eq.pos, eq.neg, err = parseSum(rhs); err != nil {
		return equation{}, err
	}
	if !eq.ode {
		eq.neg = append(eq.neg, term{coef: 1, exps: map[string]float64{name: 1}})
	}
	if len(eq.pos) == 0 || len(eq.neg) == 0 {
		return equation{}, fmt.Errorf("%q: needs at least one positive and one negative term: %w", src, ErrParse)
	}

	return eq, nil
}

// inequality is lhs > rhs between two monomials.
type inequality struct {
	lhs, rhs term
}

func (q inequality) String() string { return q.lhs.String() + " > " + q.rhs.String() }

// parseConstraint accepts "a > b", "a < b", "a >= b" and "a <= b".
// Strictness is decided per query, so both forms produce the same row.
func parseConstraint(src string) (inequality, error) {
	i := strings.IndexAny(src, "<>")
	if i < 0 {
		return inequality{}, fmt.Errorf("%q: missing comparison: %w", src, ErrParse)
	}
	op := src[i]
	rest := src[i+1:]
	if strings.HasPrefix(rest, "=") {
		rest = rest[1:]
	}
	lhs, err := parseTerm(src[:i])
	if err != nil {
		return inequality{}, err
	}
	rhs, err := parseTerm(rest)
	if err != nil {
		return inequality{}, err
	}
	if op == '<' {
		lhs, rhs = rhs, lhs
	}

	return inequality{lhs: lhs, rhs: rhs}, nil
}
