package harness

import "time"

// TraceEvent is one stored trace row, timed from the start of the run.
type TraceEvent struct {
	Tick   uint64        `json:"tick"`
	At     time.Duration `json:"at"`
	State  string        `json:"state"`
	Kind   string        `json:"kind"` // "input", "output", "note" or "fault"
	Name   string        `json:"name,omitempty"`
	Value  *bool         `json:"value,omitempty"`
	Detail string        `json:"detail,omitempty"`
}

// Final is the engine state after the last tick.
type Final struct {
	Tick    uint64          `json:"tick"`
	State   string          `json:"state"`
	Outputs map[string]bool `json:"outputs"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every stored row in tick order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the state after the last tick.
	Final Final `json:"final"`

	// Digest is the store.Digest of the stored trace.
	Digest string `json:"digest"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
