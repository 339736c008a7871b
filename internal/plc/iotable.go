package plc

import (
	"sync/atomic"
)

// Direction tells inputs from outputs.
type Direction int

const (
	// DirectionInput marks a signal written by observers and read by programs.
	DirectionInput Direction = iota + 1
	// DirectionOutput marks a signal written by programs and read by observers.
	DirectionOutput
)

// String returns "input" or "output".
func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "input"
	case DirectionOutput:
		return "output"
	default:
		return "unknown"
	}
}

// SignalChange records one signal changing value between two commits.
type SignalChange struct {
	Direction Direction `json:"direction"`
	Name      string    `json:"name"`
	Value     bool      `json:"value"`
}

// image is a complete set of signal values. Committed images are never
// mutated after publication.
type image map[string]bool

func (m image) clone() image {
	c := make(image, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// IOTable stores a program's declared inputs and outputs.
//
// The name sets are fixed at construction. Observers may call GetInput,
// SetInput, GetOutput, Inputs and Outputs from any goroutine. BeginScan and
// Commit belong to the scan loop and must not run concurrently with
// themselves; the engine serializes them under its tick lock.
type IOTable struct {
	inputNames  []string
	outputNames []string

	inputs  map[string]*atomic.Bool // keys immutable after construction
	outputs atomic.Pointer[image]   // committed output image

	lastInputs image // inputs latched by the previous commit (scan loop only)
}

// NewIOTable creates a table with the given declarations. initial sets the
// starting value of outputs; absent outputs start false.
//
// Returns a configuration error for empty or duplicate names, a name declared
// as both input and output, or an initial value for an undeclared output.
func NewIOTable(inputs, outputs []string, initial map[string]bool) (*IOTable, error) {
	seen := make(map[string]Direction, len(inputs)+len(outputs))
	declare := func(name string, dir Direction) error {
		if name == "" {
			return NewConfigurationError("%s name must not be empty", dir)
		}
		if prev, ok := seen[name]; ok {
			if prev == dir {
				return NewConfigurationError("%s %q declared twice", dir, name)
			}
			return NewConfigurationError("signal %q declared as both input and output", name)
		}
		seen[name] = dir
		return nil
	}

	t := &IOTable{
		inputNames:  make([]string, 0, len(inputs)),
		outputNames: make([]string, 0, len(outputs)),
		inputs:      make(map[string]*atomic.Bool, len(inputs)),
		lastInputs:  make(image, len(inputs)),
	}

	for _, name := range inputs {
		if err := declare(name, DirectionInput); err != nil {
			return nil, err
		}
		t.inputNames = append(t.inputNames, name)
		t.inputs[name] = new(atomic.Bool)
		t.lastInputs[name] = false
	}

	out := make(image, len(outputs))
	for _, name := range outputs {
		if err := declare(name, DirectionOutput); err != nil {
			return nil, err
		}
		t.outputNames = append(t.outputNames, name)
		out[name] = false
	}
	for name, v := range initial {
		if _, ok := out[name]; !ok {
			return nil, NewConfigurationError("initial value for undeclared output %q", name)
		}
		out[name] = v
	}
	t.outputs.Store(&out)

	return t, nil
}

// InputNames returns the input names in declaration order.
func (t *IOTable) InputNames() []string {
	return append([]string(nil), t.inputNames...)
}

// OutputNames returns the output names in declaration order.
func (t *IOTable) OutputNames() []string {
	return append([]string(nil), t.outputNames...)
}

// GetInput returns the current value of an input.
func (t *IOTable) GetInput(name string) (bool, error) {
	v, ok := t.inputs[name]
	if !ok {
		return false, NewUnknownSignal(DirectionInput, name)
	}
	return v.Load(), nil
}

// SetInput writes an input. The next scan latches the new value.
func (t *IOTable) SetInput(name string, value bool) error {
	v, ok := t.inputs[name]
	if !ok {
		return NewUnknownSignal(DirectionInput, name)
	}
	v.Store(value)
	return nil
}

// GetOutput returns the value of an output as of the last committed scan.
func (t *IOTable) GetOutput(name string) (bool, error) {
	out := *t.outputs.Load()
	v, ok := out[name]
	if !ok {
		return false, NewUnknownSignal(DirectionOutput, name)
	}
	return v, nil
}

// Inputs returns a copy of every input. Each value is read atomically; the
// set as a whole is not a transaction.
func (t *IOTable) Inputs() map[string]bool {
	in := make(map[string]bool, len(t.inputs))
	for name, v := range t.inputs {
		in[name] = v.Load()
	}
	return in
}

// Outputs returns a copy of the last committed output image. All values come
// from the same scan.
func (t *IOTable) Outputs() map[string]bool {
	return (*t.outputs.Load()).clone()
}

// BeginScan latches the inputs and copies the committed outputs into a new
// working Scan.
func (t *IOTable) BeginScan() *Scan {
	in := make(image, len(t.inputs))
	for name, v := range t.inputs {
		in[name] = v.Load()
	}
	return &Scan{
		inputs:  in,
		outputs: (*t.outputs.Load()).clone(),
	}
}

// Commit publishes the scan's outputs and returns the input and output
// changes since the previous commit, inputs first, each in declaration order.
// A scan that recorded an error is not committed and Commit returns its error.
func (t *IOTable) Commit(s *Scan) ([]SignalChange, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.committed {
		return nil, NewConfigurationError("scan already committed")
	}

	var changes []SignalChange
	for _, name := range t.inputNames {
		if v := s.inputs[name]; v != t.lastInputs[name] {
			changes = append(changes, SignalChange{Direction: DirectionInput, Name: name, Value: v})
		}
	}
	prev := *t.outputs.Load()
	for _, name := range t.outputNames {
		if v := s.outputs[name]; v != prev[name] {
			changes = append(changes, SignalChange{Direction: DirectionOutput, Name: name, Value: v})
		}
	}

	t.lastInputs = s.inputs
	out := s.outputs
	t.outputs.Store(&out)
	s.committed = true

	return changes, nil
}
