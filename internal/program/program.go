package program

import (
	"fmt"
	"time"

	"github.com/roach88/plcsim/internal/plc"
)

// State is the discrete state tag of a program.
type State string

// Discrete states shared across the catalogue. Each kind uses a subset.
const (
	StateIdle         State = "idle"
	StateRunning      State = "running"
	StateActive       State = "active"
	StateDelay        State = "delay"
	StateRun          State = "run"
	StateWait         State = "wait"
	StatePause        State = "pause"
	StateMotor1       State = "motor1"
	StateBoth         State = "both"
	StateMotor2       State = "motor2"
	StateNone         State = "none"
	StateWater        State = "water"
	StateDetergent    State = "detergent"
	StateBrushForward State = "brush-forward"
	StateBrushReverse State = "brush-reverse"
	StateSteam        State = "steam"
	StateDry          State = "dry"
	StateRed          State = "red"
	StateYellow       State = "yellow"
	StateGreen        State = "green"
	StateBlink        State = "blink"
	StateClearance    State = "clearance"
	StateHalted       State = "halted"
)

type timerSpec struct {
	name   string
	preset time.Duration
}

type counterSpec struct {
	name   string
	preset int
}

// definition is the static description of one kind.
type definition struct {
	title       string
	description string
	inputs      []string
	outputs     []string
	initial     map[string]bool
	timers      []timerSpec
	counters    []counterSpec
	start       State
	step        func(p *Program, s *plc.Scan)
}

// Program is one catalogue state machine.
//
// A Program is owned by the engine that scans it and is not safe for
// concurrent use; observers read its state through the engine's published
// observations.
type Program struct {
	kind     Kind
	def      *definition
	state    State
	timers   map[string]*plc.Timer
	counters map[string]*plc.Counter

	// started is set once START has been accepted and cleared by STOP or
	// release. Used by hold-to-run and chase-light.
	started bool

	// blinks counts VEHICLE_GREEN toggles in the traffic light blink state.
	blinks int

	// led is the next LED the chase light will light, 1..6.
	led int
}

// New creates a program of the given kind. Timers sample clock; a nil clock
// defaults to the system clock.
func New(kind Kind, clock plc.Clock) (*Program, error) {
	def, ok := catalog[kind]
	if !ok {
		return nil, plc.NewConfigurationError("unknown program kind %d", int(kind))
	}

	p := &Program{
		kind:     kind,
		def:      def,
		state:    def.start,
		timers:   make(map[string]*plc.Timer, len(def.timers)),
		counters: make(map[string]*plc.Counter, len(def.counters)),
	}
	for _, ts := range def.timers {
		t, err := plc.NewTimer(clock, ts.preset)
		if err != nil {
			return nil, fmt.Errorf("%s timer %s: %w", kind, ts.name, err)
		}
		p.timers[ts.name] = t
	}
	for _, cs := range def.counters {
		c, err := plc.NewCounter(cs.preset)
		if err != nil {
			return nil, fmt.Errorf("%s counter %s: %w", kind, cs.name, err)
		}
		p.counters[cs.name] = c
	}
	return p, nil
}

// Kind returns the program's kind.
func (p *Program) Kind() Kind { return p.kind }

// Name returns the kind's kebab-case name.
func (p *Program) Name() string { return p.kind.String() }

// Inputs returns the declared input names.
func (p *Program) Inputs() []string { return append([]string(nil), p.def.inputs...) }

// Outputs returns the declared output names.
func (p *Program) Outputs() []string { return append([]string(nil), p.def.outputs...) }

// InitialOutputs returns the outputs that start true.
func (p *Program) InitialOutputs() map[string]bool {
	out := make(map[string]bool, len(p.def.initial))
	for k, v := range p.def.initial {
		out[k] = v
	}
	return out
}

// TimerNames returns the owned timer names in declaration order.
func (p *Program) TimerNames() []string {
	names := make([]string, len(p.def.timers))
	for i, ts := range p.def.timers {
		names[i] = ts.name
	}
	return names
}

// CounterNames returns the owned counter names in declaration order.
func (p *Program) CounterNames() []string {
	names := make([]string, len(p.def.counters))
	for i, cs := range p.def.counters {
		names[i] = cs.name
	}
	return names
}

// State returns the current discrete state tag.
func (p *Program) State() string { return string(p.state) }

// Step runs one scan of the program's logic.
// Returns the first error recorded on the scan, if any.
func (p *Program) Step(s *plc.Scan) error {
	p.def.step(p, s)
	return s.Err()
}

// Observe snapshots the state tag, timers and counters.
func (p *Program) Observe() plc.Observation {
	obs := plc.Observation{State: string(p.state)}
	if len(p.timers) > 0 {
		obs.Timers = make(map[string]plc.TimerSnapshot, len(p.timers))
		for name, t := range p.timers {
			obs.Timers[name] = t.Snapshot()
		}
	}
	if len(p.counters) > 0 {
		obs.Counters = make(map[string]plc.CounterSnapshot, len(p.counters))
		for name, c := range p.counters {
			obs.Counters[name] = c.Snapshot()
		}
	}
	return obs
}

func (p *Program) timer(name string) *plc.Timer {
	t, ok := p.timers[name]
	if !ok {
		panic(fmt.Sprintf("program %s: timer %s not declared", p.kind, name))
	}
	return t
}

func (p *Program) counter(name string) *plc.Counter {
	c, ok := p.counters[name]
	if !ok {
		panic(fmt.Sprintf("program %s: counter %s not declared", p.kind, name))
	}
	return c
}

func (p *Program) resetTimers() {
	for _, t := range p.timers {
		t.Reset()
	}
}

// setAll writes value to every named output.
func setAll(s *plc.Scan, names []string, value bool) {
	for _, name := range names {
		s.SetOutput(name, value)
	}
}

// anyOn reports whether any named output is on in the working image.
func anyOn(s *plc.Scan, names []string) bool {
	for _, name := range names {
		if s.Output(name) {
			return true
		}
	}
	return false
}

// expired enables the named timer for this scan. When the timer completes
// it is reset and expired reports true.
func (p *Program) expired(name string) bool {
	t := p.timer(name)
	t.Update(true)
	if !t.Done() {
		return false
	}
	t.Reset()
	return true
}

// enter moves to next and notes the transition.
func (p *Program) enter(s *plc.Scan, next State, format string, args ...any) {
	p.state = next
	s.Notef(format, args...)
}
