package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/plcsim/internal/plc"
)

// DefaultPeriod is the scan period used when WithPeriod is not given.
const DefaultPeriod = 10 * time.Millisecond

// Program is the logic an engine scans. *program.Program implements it.
type Program interface {
	Name() string
	Inputs() []string
	Outputs() []string
	InitialOutputs() map[string]bool
	Step(s *plc.Scan) error
	Observe() plc.Observation
}

// Observation is the state published after a tick.
type Observation struct {
	Tick uint64    `json:"tick"`
	At   time.Time `json:"at"`
	plc.Observation
}

// loaded pairs a program with the IO table built from its declarations.
type loaded struct {
	program Program
	io      *plc.IOTable
}

// Engine scans one program at a fixed period.
//
// Thread-safety model:
//   - SetInput, GetInput, GetOutput and the other accessors: any goroutine
//   - Start, Stop, Run, Load: any goroutine
//   - Tick: any goroutine, serialized with the loop by tickMu
type Engine struct {
	period   time.Duration
	clock    plc.Clock
	logger   *slog.Logger
	recorder Recorder
	runIDs   RunIDGenerator

	tickMu sync.Mutex // serializes Tick and Load

	active      atomic.Pointer[loaded]
	observation atomic.Pointer[Observation]
	lastErr     atomic.Pointer[plc.Error]
	ticks       atomic.Uint64
	faults      atomic.Uint64

	mu      sync.Mutex // guards cancel, done and run
	cancel  context.CancelFunc
	done    chan struct{}
	run     *RunInfo
	running atomic.Bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPeriod sets the scan period. Default: DefaultPeriod.
// New rejects non-positive periods.
func WithPeriod(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.period = d
	}
}

// WithClock sets the clock driving the loop. Programs should sample the same
// clock. Default: plc.SystemClock.
func WithClock(c plc.Clock) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder sets a recorder for runs started with Start.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		if g != nil {
			e.runIDs = g
		}
	}
}

// New creates a stopped engine with p loaded.
func New(p Program, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		period: DefaultPeriod,
		clock:  plc.SystemClock{},
		logger: slog.Default(),
		runIDs: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.period <= 0 {
		return nil, plc.NewConfigurationError("scan period must be positive, got %s", e.period)
	}
	if err := e.Load(p); err != nil {
		return nil, err
	}
	return e, nil
}

// Load replaces the active program between ticks. The new program gets a
// fresh IO table with its declared initial outputs.
func (e *Engine) Load(p Program) error {
	if p == nil {
		return plc.NewConfigurationError("no program")
	}
	io, err := plc.NewIOTable(p.Inputs(), p.Outputs(), p.InitialOutputs())
	if err != nil {
		return fmt.Errorf("load %s: %w", p.Name(), err)
	}

	e.tickMu.Lock()
	e.active.Store(&loaded{program: p, io: io})
	e.observation.Store(&Observation{
		Tick:        e.ticks.Load(),
		At:          e.clock.Now(),
		Observation: p.Observe(),
	})
	e.tickMu.Unlock()

	e.logger.Info("program loaded",
		"program", p.Name(),
		"inputs", len(p.Inputs()),
		"outputs", len(p.Outputs()),
	)
	return nil
}

// Start begins ticking on a new goroutine under a new run id.
// Calling Start on a running engine is a logged no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done != nil {
		e.logger.Debug("start ignored",
			"code", plc.ErrCodeAlreadyRunning,
			"run_id", e.run.ID,
		)
		return
	}

	run := &RunInfo{
		ID:        e.runIDs.Generate(),
		Program:   e.Program().Name(),
		Period:    e.period,
		StartedAt: e.clock.Now(),
	}
	loopCtx, cancel := context.WithCancel(ctx)
	ticker := e.clock.NewTicker(e.period)
	done := make(chan struct{})

	e.run, e.cancel, e.done = run, cancel, done
	e.running.Store(true)
	if e.recorder != nil {
		e.recorder.BeginRun(*run)
	}

	e.logger.Info("engine started",
		"run_id", run.ID,
		"program", run.Program,
		"period", e.period,
	)

	go e.loop(loopCtx, ticker, done)
}

// loop ticks until ctx is cancelled. Cancellation is checked at every tick
// boundary, never inside a tick.
func (e *Engine) loop(ctx context.Context, ticker plc.Ticker, done chan struct{}) {
	defer close(done)
	defer e.finish(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			e.Tick()
		}
	}
}

// finish clears the lifecycle state of the run that owned done.
func (e *Engine) finish(done chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done != done {
		return
	}
	e.cancel()
	e.cancel, e.done = nil, nil
	e.running.Store(false)

	if e.recorder != nil {
		e.recorder.EndRun(e.run.ID, e.clock.Now())
	}
	e.logger.Info("engine stopped",
		"run_id", e.run.ID,
		"ticks", e.ticks.Load(),
		"faults", e.faults.Load(),
	)
}

// Stop cancels the loop and blocks until it has exited.
// Calling Stop on a stopped engine is a logged no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	if done == nil {
		e.logger.Debug("stop ignored", "code", plc.ErrCodeNotRunning)
		return
	}
	cancel()
	<-done
}

// Run starts the engine and blocks until ctx is done or the engine is stopped
// elsewhere. Returns ctx.Err() in the first case and nil in the second.
func (e *Engine) Run(ctx context.Context) error {
	e.Start(ctx)

	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		e.Stop()
		return ctx.Err()
	case <-done:
		return nil
	}
}

// IsRunning reports whether the loop is running.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// Tick runs exactly one scan of the active program and returns what it
// changed. The returned record has no RunID; ticks are sent to the recorder
// only while the engine is running.
func (e *Engine) Tick() ScanRecord {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	a := e.active.Load()
	tick := e.ticks.Add(1)
	at := e.clock.Now()

	scan := a.io.BeginScan()
	err := step(a.program, scan)
	var changes []plc.SignalChange
	if err == nil {
		changes, err = a.io.Commit(scan)
	}

	obs := &Observation{Tick: tick, At: at, Observation: a.program.Observe()}
	e.observation.Store(obs)

	if err != nil {
		return e.fault(a.program, obs, err)
	}

	for _, note := range scan.Notes() {
		e.logger.Debug("transition",
			"program", a.program.Name(),
			"tick", tick,
			"state", obs.State,
			"note", note,
		)
	}

	rec := ScanRecord{
		Program: a.program.Name(),
		Tick:    tick,
		At:      at,
		State:   obs.State,
		Changes: changes,
		Notes:   scan.Notes(),
	}
	if len(changes) > 0 || len(rec.Notes) > 0 {
		e.record(rec)
	}
	return rec
}

// step runs p.Step, turning a panic into an error.
func step(p Program, s *plc.Scan) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Step(s)
}

// fault handles a failed tick. The scan was not committed, so the previous
// outputs stay published.
//
// Only the outputs are rolled back. Anything the step changed inside the
// program before failing (its state, timers, counters) stays changed, and
// obs reports it, so after a fault the published state may run ahead of the
// published outputs until a later scan commits.
func (e *Engine) fault(p Program, obs *Observation, cause error) ScanRecord {
	fault := plc.NewStepFault(p.Name(), obs.Tick, cause)
	e.lastErr.Store(fault)
	e.faults.Add(1)

	e.logger.Error("step fault",
		"program", p.Name(),
		"tick", obs.Tick,
		"state", obs.State,
		"code", fault.Code,
		"error", cause,
	)

	rec := ScanRecord{
		Program: p.Name(),
		Tick:    obs.Tick,
		At:      obs.At,
		State:   obs.State,
		Fault:   fault.Error(),
	}
	e.record(rec)
	return rec
}

// record forwards rec to the recorder while a run is active.
func (e *Engine) record(rec ScanRecord) {
	if e.recorder == nil || !e.running.Load() {
		return
	}
	e.mu.Lock()
	run := e.run
	e.mu.Unlock()
	if run == nil {
		return
	}
	rec.RunID = run.ID
	e.recorder.Record(rec)
}

// SetInput writes a declared input. The next tick latches it.
func (e *Engine) SetInput(name string, value bool) error {
	return e.active.Load().io.SetInput(name, value)
}

// GetInput reads a declared input.
func (e *Engine) GetInput(name string) (bool, error) {
	return e.active.Load().io.GetInput(name)
}

// GetOutput reads a committed output.
func (e *Engine) GetOutput(name string) (bool, error) {
	return e.active.Load().io.GetOutput(name)
}

// InputNames returns the declared inputs in declaration order.
func (e *Engine) InputNames() []string {
	return e.active.Load().io.InputNames()
}

// OutputNames returns the declared outputs in declaration order.
func (e *Engine) OutputNames() []string {
	return e.active.Load().io.OutputNames()
}

// Inputs returns a copy of the current inputs.
func (e *Engine) Inputs() map[string]bool {
	return e.active.Load().io.Inputs()
}

// Outputs returns a copy of the committed outputs.
func (e *Engine) Outputs() map[string]bool {
	return e.active.Load().io.Outputs()
}

// Observation returns the state published by the latest tick.
func (e *Engine) Observation() Observation {
	return *e.observation.Load()
}

// State returns the program's discrete state as of the latest tick.
func (e *Engine) State() string {
	return e.observation.Load().State
}

// TimerSnapshot returns the named timer as of the latest tick.
func (e *Engine) TimerSnapshot(name string) (plc.TimerSnapshot, error) {
	return e.observation.Load().Timer(name)
}

// CounterSnapshot returns the named counter as of the latest tick.
func (e *Engine) CounterSnapshot(name string) (plc.CounterSnapshot, error) {
	return e.observation.Load().Counter(name)
}

// LastError returns the most recent step fault, or nil.
func (e *Engine) LastError() error {
	if err := e.lastErr.Load(); err != nil {
		return err
	}
	return nil
}

// Ticks returns the number of ticks run so far.
func (e *Engine) Ticks() uint64 {
	return e.ticks.Load()
}

// Faults returns the number of ticks that faulted.
func (e *Engine) Faults() uint64 {
	return e.faults.Load()
}

// Period returns the scan period.
func (e *Engine) Period() time.Duration {
	return e.period
}

// Clock returns the clock driving the engine.
func (e *Engine) Clock() plc.Clock {
	return e.clock
}

// RunID returns the id of the current or most recent run, or "" if the
// engine was never started.
func (e *Engine) RunID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run == nil {
		return ""
	}
	return e.run.ID
}

// Program returns the active program.
func (e *Engine) Program() Program {
	return e.active.Load().program
}
