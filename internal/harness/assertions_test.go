package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func change(tick uint64, kind, name string, value bool) TraceEvent {
	return TraceEvent{Tick: tick, Kind: kind, Name: name, Value: &value}
}

func note(tick uint64, detail string) TraceEvent {
	return TraceEvent{Tick: tick, Kind: "note", Detail: detail}
}

func boolPtr(b bool) *bool { return &b }

var sampleTrace = []TraceEvent{
	change(1, "input", "START", true),
	change(1, "output", "MOTOR1", true),
	note(1, "MOTOR1 started"),
	change(2, "input", "START", false),
	change(5, "output", "MOTOR2", true),
	change(9, "output", "MOTOR1", false),
	change(12, "output", "MOTOR1", true),
}

func TestAssertTraceContains(t *testing.T) {
	assert.NoError(t, assertTraceContains(sampleTrace, Assertion{Signal: "MOTOR2", Value: boolPtr(true)}))
	assert.NoError(t, assertTraceContains(sampleTrace, Assertion{Signal: "START", Value: boolPtr(false)}))

	err := assertTraceContains(sampleTrace, Assertion{Signal: "MOTOR2", Value: boolPtr(false)})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceContains, ae.Type)
	assert.Equal(t, "MOTOR2 changes to false", ae.Expected)
}

func TestAssertTraceContains_IgnoresNotes(t *testing.T) {
	trace := []TraceEvent{note(1, "MOTOR1")}
	assert.Error(t, assertTraceContains(trace, Assertion{Signal: "MOTOR1", Value: boolPtr(true)}))
}

func TestAssertTraceOrder(t *testing.T) {
	tests := []struct {
		name    string
		signals []string
		wantErr string
	}{
		{"in order", []string{"START", "MOTOR1", "MOTOR2"}, ""},
		{"first rise counts", []string{"MOTOR1", "MOTOR2"}, ""},
		{"single", []string{"MOTOR2"}, ""},
		{"out of order", []string{"MOTOR2", "MOTOR1"}, "MOTOR2 (pos 5) should rise before MOTOR1 (pos 2)"},
		{"never rose", []string{"MOTOR1", "LAMP"}, "LAMP never rose"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceOrder(sampleTrace, Assertion{Type: AssertTraceOrder, Signals: tt.signals})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertTraceCount(t *testing.T) {
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Signal: "MOTOR1", Value: boolPtr(true), Count: 2}))
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Signal: "MOTOR1", Value: boolPtr(false), Count: 1}))
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Signal: "LAMP", Value: boolPtr(true), Count: 0}))

	err := assertTraceCount(sampleTrace, Assertion{Signal: "MOTOR1", Value: boolPtr(true), Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 3 changes of MOTOR1 to true")
	assert.Contains(t, err.Error(), "Actual: 2 changes")
}

func TestAssertFinalState(t *testing.T) {
	final := Final{Tick: 12, State: "running", Outputs: map[string]bool{"MOTOR1": true, "MOTOR2": false}}

	assert.NoError(t, assertFinalState(final, nil, Assertion{State: "running"}))
	assert.NoError(t, assertFinalState(final, nil, Assertion{Outputs: map[string]bool{"MOTOR2": false}}))

	err := assertFinalState(final, nil, Assertion{
		State:   "idle",
		Outputs: map[string]bool{"MOTOR1": false, "LAMP": true},
	})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, `state="idle", LAMP=true, MOTOR1=false`, ae.Expected)
	assert.Equal(t, `state="running", LAMP not an output, MOTOR1=true`, ae.Actual)
}

func TestAssertionError_ListsSignalChanges(t *testing.T) {
	err := &AssertionError{Type: AssertTraceCount, Expected: "x", Actual: "y", Trace: sampleTrace}
	msg := err.Error()

	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "[tick 5] output MOTOR2=true")
	assert.NotContains(t, msg, "MOTOR1 started", "notes are left out")
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace
	result.Final = Final{State: "running", Outputs: map[string]bool{"MOTOR1": true}}

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceContains, Signal: "MOTOR1", Value: boolPtr(true)},
		{Type: AssertTraceCount, Signal: "MOTOR2", Value: boolPtr(true), Count: 2},
		{Type: AssertFinalState, State: "running"},
		{Type: "trace_magic"},
	})

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertion[1]:")
	assert.Equal(t, "assertion[3]: unknown assertion type: trace_magic", errs[1])
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	assert.NotNil(t, r.Trace)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
