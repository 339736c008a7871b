package plc

// CounterSnapshot is a point-in-time copy of a Counter's observable state.
type CounterSnapshot struct {
	Current int  `json:"current"`
	Preset  int  `json:"preset"`
	Done    bool `json:"done"`
}

// Counter is a rising-edge up-counter (CTU).
//
// Current increases by exactly one per false→true transition of the input
// passed to CountUp. Done latches once Current reaches Preset and stays set
// until the counter is reset.
//
// A Counter is owned by one program and is not safe for concurrent use.
type Counter struct {
	preset    int
	current   int
	done      bool
	lastInput bool
}

// NewCounter creates a counter with the given preset.
// Returns a configuration error if preset is not positive.
func NewCounter(preset int) (*Counter, error) {
	if preset <= 0 {
		return nil, NewConfigurationError("counter preset must be positive, got %d", preset)
	}
	return &Counter{preset: preset}, nil
}

// CountUp samples the count input for this scan.
//
// When reset is true the count and done flag clear and the call returns
// without touching the edge memory, so an input held high across a reset
// does not count again.
func (c *Counter) CountUp(input, reset bool) {
	if reset {
		c.current = 0
		c.done = false
		return
	}

	if input && !c.lastInput {
		c.current++
		if c.current >= c.preset {
			c.done = true
		}
	}
	c.lastInput = input
}

// Reset returns the counter to its freshly constructed state, edge memory
// included.
func (c *Counter) Reset() {
	c.current = 0
	c.done = false
	c.lastInput = false
}

// Current returns the count.
func (c *Counter) Current() int { return c.current }

// Preset returns the target count.
func (c *Counter) Preset() int { return c.preset }

// Done reports whether the count has reached the preset.
func (c *Counter) Done() bool { return c.done }

// Snapshot copies the observable state.
func (c *Counter) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		Current: c.current,
		Preset:  c.preset,
		Done:    c.done,
	}
}
