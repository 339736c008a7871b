package plc

// Observation is a program's internal state as observers see it: the
// discrete state tag and a snapshot of every owned timer and counter.
type Observation struct {
	State    string                     `json:"state"`
	Timers   map[string]TimerSnapshot   `json:"timers,omitempty"`
	Counters map[string]CounterSnapshot `json:"counters,omitempty"`
}

// Timer returns the named timer snapshot.
func (o Observation) Timer(name string) (TimerSnapshot, error) {
	snap, ok := o.Timers[name]
	if !ok {
		return TimerSnapshot{}, NewUnknownTimer(name)
	}
	return snap, nil
}

// Counter returns the named counter snapshot.
func (o Observation) Counter(name string) (CounterSnapshot, error) {
	snap, ok := o.Counters[name]
	if !ok {
		return CounterSnapshot{}, NewUnknownCounter(name)
	}
	return snap, nil
}
