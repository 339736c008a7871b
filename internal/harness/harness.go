package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/plcsim/internal/engine"
	"github.com/roach88/plcsim/internal/program"
	"github.com/roach88/plcsim/internal/store"
	"github.com/roach88/plcsim/internal/testutil"
)

// Harness is the test execution engine.
// It runs one scenario on a virtual clock and stores the trace.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	driver *testutil.ScanDriver
	runID  string
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and a virtual-clock engine
// 2. Tick, applying each step's inputs before its scan
// 3. Check each step's expectations after its scan
// 4. Read the trace back from the store
// 5. Evaluate assertions and return the result
//
// A returned error means the scenario could not be executed (for example an
// unknown signal); failed expectations are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	kind, err := program.Parse(scenario.Program)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewClock()
	prog, err := program.New(kind, clock)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(prog,
		engine.WithClock(clock),
		engine.WithPeriod(scenario.period()),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:  st,
		engine: eng,
		driver: testutil.NewScanDriver(clock, eng),
		runID:  testutil.NewFixedRunIDGenerator(scenario.RunID).Generate(),
	}

	ctx := context.Background()
	start := clock.Now()
	if err := st.BeginRun(ctx, engine.RunInfo{
		ID:        h.runID,
		Program:   prog.Name(),
		Period:    eng.Period(),
		StartedAt: start,
	}); err != nil {
		return nil, err
	}

	result := NewResult()
	if err := h.execute(ctx, scenario, result); err != nil {
		return nil, err
	}

	if err := st.EndRun(ctx, h.runID, clock.Now()); err != nil {
		return nil, err
	}
	run, entries, err := st.ReadRun(ctx, h.runID)
	if err != nil {
		return nil, err
	}
	if result.Digest, err = store.Digest(run, entries); err != nil {
		return nil, err
	}
	for _, e := range entries {
		result.Trace = append(result.Trace, TraceEvent{
			Tick:   e.Tick,
			At:     e.At.Sub(start),
			State:  e.State,
			Kind:   e.Kind,
			Name:   e.Name,
			Value:  e.Value,
			Detail: e.Detail,
		})
	}
	result.Final = Final{
		Tick:    eng.Ticks(),
		State:   eng.State(),
		Outputs: eng.Outputs(),
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// execute ticks until the scenario's end, applying steps as they fall due.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) error {
	steps := scenario.Steps
	until := scenario.until()
	period := h.engine.Period()

	next := 0
	for {
		// Steps due at the time of the upcoming tick.
		at := h.driver.Elapsed() + period
		first := next
		for next < len(steps) && steps[next].At.Std() <= at {
			next++
		}
		due := steps[first:next]

		for i, step := range due {
			if err := h.applySet(step.Set); err != nil {
				return fmt.Errorf("steps[%d]: %w", first+i, err)
			}
		}

		rec := h.driver.Next()
		if rec.Fault != "" {
			result.AddError(fmt.Sprintf("tick %d: %s", rec.Tick, rec.Fault))
		}
		if len(rec.Changes) > 0 || len(rec.Notes) > 0 || rec.Fault != "" {
			rec.RunID = h.runID
			if err := h.store.WriteScan(ctx, rec); err != nil {
				return err
			}
		}

		for i, step := range due {
			if step.Expect != nil {
				h.check(first+i, step, rec.Tick, result)
			}
		}

		if next == len(steps) && h.driver.Elapsed() >= until {
			return nil
		}
	}
}

// applySet writes inputs in name order so traces are stable.
func (h *Harness) applySet(set map[string]bool) error {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := h.engine.SetInput(name, set[name]); err != nil {
			return err
		}
	}
	return nil
}

// check compares a step's expectations with the engine after tick.
func (h *Harness) check(index int, step Step, tick uint64, result *Result) {
	where := fmt.Sprintf("steps[%d] at %s (tick %d)", index, step.At.Std(), tick)
	e := step.Expect

	for _, name := range sortedKeys(e.Outputs) {
		got, err := h.engine.GetOutput(name)
		if err != nil {
			result.AddError(fmt.Sprintf("%s: %v", where, err))
			continue
		}
		if want := e.Outputs[name]; got != want {
			result.AddError(fmt.Sprintf("%s: output %s = %t, want %t", where, name, got, want))
		}
	}

	if e.State != "" {
		if got := h.engine.State(); got != e.State {
			result.AddError(fmt.Sprintf("%s: state = %q, want %q", where, got, e.State))
		}
	}

	for _, name := range sortedKeys(e.Timers) {
		want := e.Timers[name]
		snap, err := h.engine.TimerSnapshot(name)
		if err != nil {
			result.AddError(fmt.Sprintf("%s: %v", where, err))
			continue
		}
		if want.Timing != nil && snap.Timing != *want.Timing {
			result.AddError(fmt.Sprintf("%s: timer %s timing = %t, want %t", where, name, snap.Timing, *want.Timing))
		}
		if want.Done != nil && snap.Done != *want.Done {
			result.AddError(fmt.Sprintf("%s: timer %s done = %t, want %t", where, name, snap.Done, *want.Done))
		}
	}

	for _, name := range sortedKeys(e.Counters) {
		want := e.Counters[name]
		snap, err := h.engine.CounterSnapshot(name)
		if err != nil {
			result.AddError(fmt.Sprintf("%s: %v", where, err))
			continue
		}
		if want.Current != nil && snap.Current != *want.Current {
			result.AddError(fmt.Sprintf("%s: counter %s current = %d, want %d", where, name, snap.Current, *want.Current))
		}
		if want.Done != nil && snap.Done != *want.Done {
			result.AddError(fmt.Sprintf("%s: counter %s done = %t, want %t", where, name, snap.Done, *want.Done))
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
