package plc

import "fmt"

// Scan is the working image of one tick.
//
// Inputs are latched when the scan begins, so every read of a signal within a
// tick sees the same value. Output writes are visible to later reads in the
// same scan and to nobody else until the engine commits the scan.
//
// Access to an undeclared signal records an UnknownSignal error. The first
// error sticks: the engine checks Err after the program returns and discards
// the scan instead of committing it.
type Scan struct {
	inputs    image
	outputs   image
	notes     []string
	err       error
	committed bool
}

// NewScan builds a detached scan from explicit values. Programs are normally
// scanned through IOTable.BeginScan; NewScan exists for unit tests of step
// logic.
func NewScan(inputs, outputs map[string]bool) *Scan {
	return &Scan{
		inputs:  image(inputs).clone(),
		outputs: image(outputs).clone(),
	}
}

// Input returns a latched input value.
func (s *Scan) Input(name string) bool {
	v, ok := s.inputs[name]
	if !ok {
		s.Fail(NewUnknownSignal(DirectionInput, name))
		return false
	}
	return v
}

// Output returns the working value of an output, including writes made
// earlier in this scan.
func (s *Scan) Output(name string) bool {
	v, ok := s.outputs[name]
	if !ok {
		s.Fail(NewUnknownSignal(DirectionOutput, name))
		return false
	}
	return v
}

// SetOutput writes an output in the working image.
func (s *Scan) SetOutput(name string, value bool) {
	if _, ok := s.outputs[name]; !ok {
		s.Fail(NewUnknownSignal(DirectionOutput, name))
		return
	}
	s.outputs[name] = value
}

// Notef attaches a transition note to the scan. The engine logs notes and
// hands them to the recorder once the scan commits.
func (s *Scan) Notef(format string, args ...any) {
	s.notes = append(s.notes, fmt.Sprintf(format, args...))
}

// Notes returns the notes attached so far.
func (s *Scan) Notes() []string {
	return s.notes
}

// Fail records err unless an earlier error is already recorded.
func (s *Scan) Fail(err error) {
	if s.err == nil && err != nil {
		s.err = err
	}
}

// Err returns the first error recorded on the scan.
func (s *Scan) Err() error {
	return s.err
}

// Outputs returns a copy of the working output image.
func (s *Scan) Outputs() map[string]bool {
	return s.outputs.clone()
}
