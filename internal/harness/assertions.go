package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/plcsim/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	// Signal changes only; notes are in the golden file.
	fmt.Fprintf(&buf, "\nSignal changes:\n")
	for _, event := range e.Trace {
		if isChange(event) {
			fmt.Fprintf(&buf, "  [tick %d] %s %s=%t\n", event.Tick, event.Kind, event.Name, *event.Value)
		}
	}

	return buf.String()
}

func isChange(e TraceEvent) bool {
	return (e.Kind == store.KindInput || e.Kind == store.KindOutput) && e.Value != nil
}

// assertTraceContains checks that the signal changed to the value at least once.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if isChange(event) && event.Name == assertion.Signal && *event.Value == *assertion.Value {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s changes to %t", assertion.Signal, *assertion.Value),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the signals first rose to true in the given
// order. Other changes may come in between.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// Step 1: Find the first rising edge of each expected signal
	positions := make(map[string]int)

	for i, event := range trace {
		if !isChange(event) || !*event.Value {
			continue
		}
		for _, signal := range assertion.Signals {
			if event.Name == signal && positions[signal] == 0 {
				positions[signal] = i + 1 // 1-indexed for readability
			}
		}
	}

	// Step 2: Verify all signals rose
	for _, signal := range assertion.Signals {
		if positions[signal] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all signals rise: %v", assertion.Signals),
				Actual:   fmt.Sprintf("%s never rose", signal),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Signals); i++ {
		prev := assertion.Signals[i-1]
		curr := assertion.Signals[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("signals rise in order: %v", assertion.Signals),
				Actual: fmt.Sprintf("%s (pos %d) should rise before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the signal changed to the value exactly
// Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if isChange(event) && event.Name == assertion.Signal && *event.Value == *assertion.Value {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d changes of %s to %t", assertion.Count, assertion.Signal, *assertion.Value),
			Actual:   fmt.Sprintf("%d changes", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState compares the state tag and outputs after the last tick.
// Outputs are a subset match.
func assertFinalState(final Final, trace []TraceEvent, assertion Assertion) error {
	var mismatches []string

	if assertion.State != "" && final.State != assertion.State {
		mismatches = append(mismatches, fmt.Sprintf("state=%q", final.State))
	}
	for _, name := range sortedKeys(assertion.Outputs) {
		got, ok := final.Outputs[name]
		switch {
		case !ok:
			mismatches = append(mismatches, fmt.Sprintf("%s not an output", name))
		case got != assertion.Outputs[name]:
			mismatches = append(mismatches, fmt.Sprintf("%s=%t", name, got))
		}
	}

	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: formatFinal(assertion.State, assertion.Outputs),
		Actual:   strings.Join(mismatches, ", "),
		Trace:    trace,
	}
}

func formatFinal(state string, outputs map[string]bool) string {
	var parts []string
	if state != "" {
		parts = append(parts, fmt.Sprintf("state=%q", state))
	}
	for _, name := range sortedKeys(outputs) {
		parts = append(parts, fmt.Sprintf("%s=%t", name, outputs[name]))
	}
	return strings.Join(parts, ", ")
}

// EvaluateAssertions runs every assertion against the result and returns
// the failure messages. An empty slice means all assertions passed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result.Final, result.Trace, assertion)
		default:
			err = fmt.Errorf("unknown assertion type: %s", assertion.Type)
		}

		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}

	return errs
}
