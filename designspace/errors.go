package designspace

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned for a case number or subcase path the system
	// does not have, and by Load for a key its Archive does not hold.
	ErrNotFound = errors.New("designspace: not found")

	// ErrNotCyclical is returned when a subcase is requested from a case that
	// is not cyclical. It matches ErrNotFound.
	ErrNotCyclical = fmt.Errorf("designspace: case is not cyclical: %w", ErrNotFound)

	// ErrSearchLimit is returned when a search would exceed Config.MaxSize
	// or Config.MaxCandidates.
	ErrSearchLimit = errors.New("designspace: search limit exceeded")

	// ErrVariableConsistency is matched by every *VariableConsistencyError.
	ErrVariableConsistency = errors.New("designspace: inconsistent variables")
)

// VariableConsistencyError reports a case whose dependent variables differ
// from the ones declared by its system.
type VariableConsistencyError struct {
	Case string
	Want []string
	Got  []string
}

func (e *VariableConsistencyError) Error() string {
	return fmt.Sprintf("designspace: case %s has dependent variables [%s], system declares [%s]",
		e.Case, strings.Join(e.Got, " "), strings.Join(e.Want, " "))
}

// Is makes errors.Is(err, ErrVariableConsistency) hold.
func (e *VariableConsistencyError) Is(target error) bool {
	return target == ErrVariableConsistency
}

func checkVariables(label string, want, got []string) error {
	if equalStrings(want, got) {
		return nil
	}

	return &VariableConsistencyError{
		Case: label,
		Want: append([]string(nil), want...),
		Got:  append([]string(nil), got...),
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
