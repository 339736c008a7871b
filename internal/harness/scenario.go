package harness

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/plcsim/internal/engine"
	"github.com/roach88/plcsim/internal/plc"
	"github.com/roach88/plcsim/internal/program"
)

// Scenario defines a scan test: a program, a timed input script and the
// expectations checked along the way.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the catalogue kind under test.
	Program string `yaml:"program"`

	// Period is the scan period. Zero or absent means engine.DefaultPeriod.
	Period Duration `yaml:"period,omitempty"`

	// Until is how long to run. The run always lasts at least until the last
	// step has been applied.
	Until Duration `yaml:"until,omitempty"`

	// RunID is an optional fixed run id for the stored trace.
	// If empty, defaults to testutil.DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`

	// Steps are applied in At order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the whole trace and the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step sets inputs and checks expectations at a point in virtual time.
type Step struct {
	At     Duration        `yaml:"at"`
	Set    map[string]bool `yaml:"set,omitempty"`
	Expect *Expect         `yaml:"expect,omitempty"`
}

// Expect is checked after the scan a step applies to. Only the listed
// fields are compared.
type Expect struct {
	Outputs  map[string]bool          `yaml:"outputs,omitempty"`
	State    string                   `yaml:"state,omitempty"`
	Timers   map[string]TimerExpect   `yaml:"timers,omitempty"`
	Counters map[string]CounterExpect `yaml:"counters,omitempty"`
}

// TimerExpect lists the timer fields to compare.
type TimerExpect struct {
	Timing *bool `yaml:"timing,omitempty"`
	Done   *bool `yaml:"done,omitempty"`
}

// CounterExpect lists the counter fields to compare.
type CounterExpect struct {
	Current *int  `yaml:"current,omitempty"`
	Done    *bool `yaml:"done,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Signal changed to Value at some tick
	// - "trace_order": Signals rose to true in order
	// - "trace_count": Signal changed to Value exactly Count times
	// - "final_state": State and Outputs after the last tick
	Type string `yaml:"type"`

	// Signal names the input or output (trace_contains, trace_count).
	Signal string `yaml:"signal,omitempty"`

	// Value is the value changed to (trace_contains, trace_count).
	Value *bool `yaml:"value,omitempty"`

	// Count is the expected number of changes (trace_count).
	Count int `yaml:"count,omitempty"`

	// Signals is the expected rising-edge order (trace_order).
	Signals []string `yaml:"signals,omitempty"`

	// State is the expected final state tag (final_state).
	State string `yaml:"state,omitempty"`

	// Outputs are the expected final outputs (final_state).
	Outputs map[string]bool `yaml:"outputs,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

// UnmarshalYAML parses strings such as "250ms" or "1m30s".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string", value.Line)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// period returns the scan period, applying the default.
func (s *Scenario) period() time.Duration {
	if s.Period == 0 {
		return engine.DefaultPeriod
	}
	return s.Period.Std()
}

// until returns how long to run: Until, or the last step if that is later.
func (s *Scenario) until() time.Duration {
	until := s.Until.Std()
	for _, step := range s.Steps {
		if step.At.Std() > until {
			until = step.At.Std()
		}
	}
	return until
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "expects:" vs "expect:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	normalizeScenario(&scenario)

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := program.Parse(s.Program); err != nil {
		return err
	}

	if s.Period < 0 {
		return fmt.Errorf("period must not be negative, got %s", s.Period.Std())
	}
	if s.Until < 0 {
		return fmt.Errorf("until must not be negative, got %s", s.Until.Std())
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.At < 0 {
			return fmt.Errorf("steps[%d]: at must not be negative, got %s", i, step.At.Std())
		}
		if len(step.Set) == 0 && step.Expect == nil {
			return fmt.Errorf("steps[%d]: set or expect is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Signal == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: signal and value are required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Signals) == 0 {
			return fmt.Errorf("assertions[%d]: signals list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Signal == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: signal and value are required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.State == "" && len(a.Outputs) == 0 {
			return fmt.Errorf("assertions[%d]: state or outputs is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// normalizeScenario canonicalizes signal, timer and counter names and sorts
// steps by time. Steps at the same time keep file order.
func normalizeScenario(s *Scenario) {
	if kind, err := program.Parse(s.Program); err == nil {
		s.Program = kind.String()
	}
	for i := range s.Steps {
		s.Steps[i].Set = normalizeKeys(s.Steps[i].Set)
		if e := s.Steps[i].Expect; e != nil {
			e.Outputs = normalizeKeys(e.Outputs)
			e.Timers = normalizeKeys(e.Timers)
			e.Counters = normalizeKeys(e.Counters)
		}
	}
	sort.SliceStable(s.Steps, func(i, j int) bool { return s.Steps[i].At < s.Steps[j].At })

	for i := range s.Assertions {
		a := &s.Assertions[i]
		a.Signal = plc.NormalizeName(a.Signal)
		for j, name := range a.Signals {
			a.Signals[j] = plc.NormalizeName(name)
		}
		a.Outputs = normalizeKeys(a.Outputs)
	}
}

func normalizeKeys[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[plc.NormalizeName(k)] = v
	}
	return out
}
