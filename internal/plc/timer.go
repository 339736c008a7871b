package plc

import "time"

// TimerSnapshot is a point-in-time copy of a Timer's observable state.
type TimerSnapshot struct {
	Elapsed time.Duration `json:"elapsed"`
	Preset  time.Duration `json:"preset"`
	Timing  bool          `json:"timing"`
	Done    bool          `json:"done"`
}

// Timer is an on-delay timer (TON).
//
// Update is called once per scan. While enabled, Elapsed grows with the
// injected clock and Done reports Elapsed >= Preset. Disabling clears
// Timing, Elapsed and Done immediately; Done is not latched.
//
// A Timer is owned by one program and is not safe for concurrent use.
type Timer struct {
	clock   Clock
	preset  time.Duration
	elapsed time.Duration
	timing  bool
	done    bool
	start   time.Time
}

// NewTimer creates a timer with the given preset.
// Returns a configuration error if preset is not positive.
// A nil clock defaults to SystemClock.
func NewTimer(clock Clock, preset time.Duration) (*Timer, error) {
	if preset <= 0 {
		return nil, NewConfigurationError("timer preset must be positive, got %s", preset)
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Timer{clock: clock, preset: preset}, nil
}

// Update samples the enable condition for this scan.
func (t *Timer) Update(enable bool) {
	if !enable {
		t.timing = false
		t.elapsed = 0
		t.done = false
		return
	}

	now := t.clock.Now()
	if !t.timing {
		t.start = now
		t.timing = true
	}

	t.elapsed = now.Sub(t.start)
	if t.elapsed >= t.preset {
		t.done = true
	}
}

// Reset returns the timer to its freshly constructed state.
func (t *Timer) Reset() {
	t.elapsed = 0
	t.timing = false
	t.done = false
	t.start = time.Time{}
}

// Done reports whether the enabled time has reached the preset.
func (t *Timer) Done() bool { return t.done }

// Timing reports whether the timer is currently enabled.
func (t *Timer) Timing() bool { return t.timing }

// Elapsed returns the enabled time measured at the last Update.
func (t *Timer) Elapsed() time.Duration { return t.elapsed }

// Preset returns the configured delay.
func (t *Timer) Preset() time.Duration { return t.preset }

// Snapshot copies the observable state.
func (t *Timer) Snapshot() TimerSnapshot {
	return TimerSnapshot{
		Elapsed: t.elapsed,
		Preset:  t.preset,
		Timing:  t.timing,
		Done:    t.done,
	}
}
