package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against the final state and
// returns the failure messages.
func EvaluateAssertions(final FinalState, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(final, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(final FinalState, a Assertion) error {
	switch a.Type {
	case AssertSelected:
		return assertIDs(a.Type, a.IDs, final.Selected)
	case AssertExcluded:
		return assertIDs(a.Type, a.IDs, final.Excluded)
	case AssertPool:
		return assertIDs(a.Type, a.IDs, final.Pool)
	case AssertTotalPrice:
		if final.TotalPrice != a.Value {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Value), Actual: fmt.Sprint(final.TotalPrice)}
		}
	case AssertSubmissions:
		if final.Submissions != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Count), Actual: fmt.Sprint(final.Submissions)}
		}
	case AssertPending:
		if a.Pending == nil || final.Pending != *a.Pending {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Pending != nil && *a.Pending), Actual: fmt.Sprint(final.Pending)}
		}
	default:
		return &AssertionError{Type: a.Type, Expected: "known assertion type", Actual: a.Type}
	}
	return nil
}

func assertIDs(kind string, want, got []string) error {
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{Type: kind, Expected: fmt.Sprint(want), Actual: fmt.Sprint(got)}
}

// checkExpect compares a step's event with its expect clause.
func checkExpect(index int, step Step, event TraceEvent) []string {
	e := step.Expect
	if e == nil {
		return nil
	}
	var errs []string
	if e.OK != nil && *e.OK != event.OK {
		errs = append(errs, fmt.Sprintf("steps[%d] %s: expected ok=%t, got %t", index, step.Op, *e.OK, event.OK))
	}
	if e.Error != "" && e.Error != event.Error {
		errs = append(errs, fmt.Sprintf("steps[%d] %s: expected error %q, got %q", index, step.Op, e.Error, event.Error))
	}
	if e.Selected != nil && !slices.Equal(e.Selected, event.Selected) {
		errs = append(errs, fmt.Sprintf("steps[%d] %s: expected selected %v, got %v", index, step.Op, e.Selected, event.Selected))
	}
	return errs
}
