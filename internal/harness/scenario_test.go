package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "Hold START for a second"
program: hold-to-run
steps:
  - at: 0s
    set: { START: true }
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, "hold-to-run", s.Program)
	assert.Equal(t, 10*time.Millisecond, s.period(), "default period")
	assert.Equal(t, time.Duration(0), s.until())
	require.Len(t, s.Steps, 1)
	assert.Equal(t, map[string]bool{"START": true}, s.Steps[0].Set)
}

func TestParseScenario_Durations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: durations
description: "Durations parse"
program: chase-light
period: 250ms
until: 1m30s
steps:
  - at: 2.5s
    set: { START: true }
`))
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, s.period())
	assert.Equal(t, 90*time.Second, s.Until.Std())
	assert.Equal(t, 2500*time.Millisecond, s.Steps[0].At.Std())
}

func TestParseScenario_UntilCoversLastStep(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: until
description: "until is at least the last step"
program: chase-light
until: 1s
steps:
  - at: 3s
    set: { START: true }
`))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, s.until())
}

func TestParseScenario_NormalizesAndSorts(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: normalize
description: "Names are canonicalized and steps sorted"
program: Chase_Light
steps:
  - at: 2s
    expect:
      outputs: { led1: true }
      timers: { t1: { timing: true } }
  - at: 0s
    set: { start: true }
  - at: 2s
    set: { " stop ": true }
assertions:
  - type: trace_order
    signals: [led1, led2]
  - type: final_state
    outputs: { led2: true }
`))
	require.NoError(t, err)

	require.Len(t, s.Steps, 3)
	assert.Equal(t, time.Duration(0), s.Steps[0].At.Std())
	assert.Equal(t, map[string]bool{"START": true}, s.Steps[0].Set)
	assert.Contains(t, s.Steps[1].Expect.Outputs, "LED1", "steps at the same time keep file order")
	assert.Contains(t, s.Steps[1].Expect.Timers, "T1")
	assert.Equal(t, map[string]bool{"STOP": true}, s.Steps[2].Set)
	assert.Equal(t, []string{"LED1", "LED2"}, s.Assertions[0].Signals)
	assert.Equal(t, map[string]bool{"LED2": true}, s.Assertions[1].Outputs)
}

func TestParseScenario_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", `
description: d
program: chase-light
steps: [{at: 0s, set: {START: true}}]`, "name is required"},
		{"missing description", `
name: n
program: chase-light
steps: [{at: 0s, set: {START: true}}]`, "description is required"},
		{"missing program", `
name: n
description: d
steps: [{at: 0s, set: {START: true}}]`, "program is required"},
		{"unknown program", `
name: n
description: d
program: question-6
steps: [{at: 0s, set: {START: true}}]`, "unknown program"},
		{"no steps", `
name: n
description: d
program: chase-light`, "steps list is required"},
		{"empty step", `
name: n
description: d
program: chase-light
steps: [{at: 1s}]`, "set or expect is required"},
		{"negative at", `
name: n
description: d
program: chase-light
steps: [{at: -1s, set: {START: true}}]`, "must not be negative"},
		{"negative period", `
name: n
description: d
program: chase-light
period: -10ms
steps: [{at: 0s, set: {START: true}}]`, "period must not be negative"},
		{"bad duration", `
name: n
description: d
program: chase-light
period: fast
steps: [{at: 0s, set: {START: true}}]`, "failed to parse YAML"},
		{"unknown field", `
name: n
description: d
program: chase-light
steps:
  - at: 0s
    sets: {START: true}`, "field sets not found"},
		{"unknown expect field", `
name: n
description: d
program: chase-light
steps:
  - at: 0s
    expect: {output: {LED1: true}}`, "field output not found"},
		{"malformed", `name: [unclosed`, "failed to parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateAssertion(t *testing.T) {
	yes := true
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"contains ok", Assertion{Type: AssertTraceContains, Signal: "LED1", Value: &yes}, ""},
		{"contains needs value", Assertion{Type: AssertTraceContains, Signal: "LED1"}, "signal and value are required"},
		{"order ok", Assertion{Type: AssertTraceOrder, Signals: []string{"LED1"}}, ""},
		{"order needs signals", Assertion{Type: AssertTraceOrder}, "signals list is required"},
		{"count zero ok", Assertion{Type: AssertTraceCount, Signal: "LED1", Value: &yes}, ""},
		{"count negative", Assertion{Type: AssertTraceCount, Signal: "LED1", Value: &yes, Count: -1}, "count must be non-negative"},
		{"final ok", Assertion{Type: AssertFinalState, State: "idle"}, ""},
		{"final empty", Assertion{Type: AssertFinalState}, "state or outputs is required"},
		{"missing type", Assertion{}, "type is required"},
		{"unknown type", Assertion{Type: "trace_magic"}, "unknown assertion type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAssertion(0, &tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestAssertionConstants(t *testing.T) {
	assert.Equal(t, "trace_contains", AssertTraceContains)
	assert.Equal(t, "trace_order", AssertTraceOrder)
	assert.Equal(t, "trace_count", AssertTraceCount)
	assert.Equal(t, "final_state", AssertFinalState)
}
