package caseid

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Separator is the canonical subcase separator used by String.
const Separator = "_"

var (
	// ErrEmpty is returned when Parse receives an empty identifier.
	ErrEmpty = errors.New("caseid: empty identifier")

	// ErrSyntax is returned when an identifier component is not a positive integer.
	ErrSyntax = errors.New("caseid: invalid identifier")
)

// ID addresses a case (Path empty) or a subcase of a cyclical case.
// Number and every Path element are 1-based.
type ID struct {
	Number uint64
	Path   []int
}

// New returns the ID of case number with an optional subcase path.
func New(number uint64, path ...int) ID {
	return ID{Number: number, Path: append([]int(nil), path...)}
}

// Parse converts "12", "12_3" or "12.3.1" into an ID.
// Every component must be a positive decimal integer.
func Parse(text string) (ID, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ID{}, ErrEmpty
	}

	parts := strings.FieldsFunc(text, func(r rune) bool { return r == '_' || r == '.' })
	// FieldsFunc swallows empty fields; "12__3" or "_12" must still fail.
	if len(parts) == 0 || strings.Count(text, "_")+strings.Count(text, ".") != len(parts)-1 {
		return ID{}, fmt.Errorf("Parse(%q): %w", text, ErrSyntax)
	}

	root, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || root == 0 {
		return ID{}, fmt.Errorf("Parse(%q): %w", text, ErrSyntax)
	}

	id := ID{Number: root}
	for _, p := range parts[1:] {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n <= 0 {
			return ID{}, fmt.Errorf("Parse(%q): %w", text, ErrSyntax)
		}
		id.Path = append(id.Path, n)
	}

	return id, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level tables.
func MustParse(text string) ID {
	id, err := Parse(text)
	if err != nil {
		panic(err)
	}

	return id
}

// String prints the canonical dotted form, e.g. "12_3_1".
func (id ID) String() string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(id.Number, 10))
	for _, p := range id.Path {
		b.WriteString(Separator)
		b.WriteString(strconv.Itoa(p))
	}

	return b.String()
}

// IsSubcase reports whether id addresses a subcase rather than a root case.
func (id ID) IsSubcase() bool {
	return len(id.Path) > 0
}

// Root returns the identifier of the root case of id.
func (id ID) Root() ID {
	return ID{Number: id.Number}
}

// Parent returns the identifier one level up. The parent of a root case is itself.
func (id ID) Parent() ID {
	if len(id.Path) == 0 {
		return id
	}

	return New(id.Number, id.Path[:len(id.Path)-1]...)
}

// Child returns the identifier of subcase index (1-based) of id.
func (id ID) Child(index int) ID {
	path := make([]int, 0, len(id.Path)+1)
	path = append(path, id.Path...)

	return ID{Number: id.Number, Path: append(path, index)}
}

// Equal reports whether two identifiers address the same case.
func (id ID) Equal(other ID) bool {
	return Compare(id, other) == 0
}

// Compare orders identifiers component-wise: the root number first, then
// each subcase index; when one path is a prefix of the other the shorter
// one sorts first. It returns -1, 0 or +1.
func Compare(a, b ID) int {
	switch {
	case a.Number < b.Number:
		return -1
	case a.Number > b.Number:
		return 1
	}

	for i := 0; i < len(a.Path) && i < len(b.Path); i++ {
		switch {
		case a.Path[i] < b.Path[i]:
			return -1
		case a.Path[i] > b.Path[i]:
			return 1
		}
	}

	switch {
	case len(a.Path) < len(b.Path):
		return -1
	case len(a.Path) > len(b.Path):
		return 1
	}

	return 0
}

// Sort orders ids in place with Compare.
func Sort(ids []ID) {
	sort.SliceStable(ids, func(i, j int) bool { return Compare(ids[i], ids[j]) < 0 })
}

// SortStrings orders dotted identifiers in place using the dotted-decimal
// comparator. Identifiers that fail to parse sort after valid ones, in
// lexical order among themselves.
func SortStrings(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, errA := Parse(ids[i])
		b, errB := Parse(ids[j])
		switch {
		case errA != nil && errB != nil:
			return ids[i] < ids[j]
		case errA != nil:
			return false
		case errB != nil:
			return true
		}

		return Compare(a, b) < 0
	})
}

// Strings prints every id.
func Strings(ids []ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}

	return out
}

// ParseAll parses every identifier, failing on the first malformed one.
func ParseAll(texts []string) ([]ID, error) {
	out := make([]ID, 0, len(texts))
	for _, t := range texts {
		id, err := Parse(t)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}

	return out, nil
}

// Key returns a string usable as a map key for a set of ids. The ids are
// sorted first, so the key is independent of input order.
func Key(ids []ID) string {
	sorted := append([]ID(nil), ids...)
	Sort(sorted)

	return strings.Join(Strings(sorted), ",")
}
