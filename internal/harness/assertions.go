package harness

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/roach88/envelope/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	State    []ir.Record // Stored rows for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.State) > 0 {
		fmt.Fprintf(&buf, "\nStored rows:\n")
		for i, r := range e.State {
			b, err := ir.MarshalCanonical(r)
			if err != nil {
				fmt.Fprintf(&buf, "  [%d] %v\n", i+1, map[string]any(r))
				continue
			}
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, b)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns
// the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertRowCount:
			err = assertRowCount(result.State, a)
		case AssertRowContains:
			err = assertRowContains(result.State, a)
		case AssertPlanCount:
			err = assertPlanCount(result.FlowSteps(), a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func assertRowCount(state []ir.Record, a Assertion) error {
	if len(state) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRowCount,
		Expected: fmt.Sprintf("%d rows", a.Count),
		Actual:   fmt.Sprintf("%d rows", len(state)),
		State:    state,
	}
}

// assertRowContains checks that some stored row holds every field in
// a.Where. Values are compared by canonical JSON, so 2, 2.0 and a decoded
// json.Number all match.
func assertRowContains(state []ir.Record, a Assertion) error {
	for _, r := range state {
		if matchFields(r, a.Where) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertRowContains,
		Expected: fmt.Sprintf("a row matching %v", a.Where),
		Actual:   "no matching row",
		State:    state,
	}
}

func assertPlanCount(flow []StepTrace, a Assertion) error {
	if a.Step >= len(flow) {
		return fmt.Errorf("flow step %d was not executed", a.Step)
	}
	got := flow[a.Step].Counts()[ir.OperationType(a.Op)]
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertPlanCount,
		Expected: fmt.Sprintf("%d %s in flow step %d", a.Count, a.Op, a.Step),
		Actual:   fmt.Sprintf("%d %s", got, a.Op),
	}
}

func matchFields(r ir.Record, where map[string]any) bool {
	for k, want := range where {
		if !r.Has(k) || !sameValue(r.Get(k), want) {
			return false
		}
	}
	return true
}

func sameValue(a, b any) bool {
	ab, err := ir.MarshalCanonical(a)
	if err != nil {
		return false
	}
	bb, err := ir.MarshalCanonical(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
