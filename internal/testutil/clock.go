package testutil

import (
	"sync"
	"time"

	"github.com/roach88/plcsim/internal/engine"
	"github.com/roach88/plcsim/internal/plc"
)

// Epoch is the instant every deterministic clock starts at.
var Epoch = time.Unix(0, 0).UTC()

// NewClock returns a virtual clock reading Epoch.
func NewClock() *plc.VirtualClock {
	return plc.NewVirtualClock(Epoch)
}

// ScanDriver ticks an engine by hand on a virtual clock.
//
// Each Next advances the clock by one scan period and then runs one tick, the
// same order the engine's own loop observes. Two drivers fed the same inputs
// produce identical records.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type ScanDriver struct {
	mu     sync.Mutex
	clock  *plc.VirtualClock
	engine *engine.Engine
	start  time.Time
}

// NewScanDriver wraps e, which must have been built WithClock(clock).
func NewScanDriver(clock *plc.VirtualClock, e *engine.Engine) *ScanDriver {
	return &ScanDriver{clock: clock, engine: e, start: clock.Now()}
}

// Next advances one period and runs one tick.
func (d *ScanDriver) Next() engine.ScanRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock.Advance(d.engine.Period())
	return d.engine.Tick()
}

// Run calls Next until at least dur of virtual time has passed and returns
// every record that changed something.
func (d *ScanDriver) Run(dur time.Duration) []engine.ScanRecord {
	var out []engine.ScanRecord
	for deadline := d.Elapsed() + dur; d.Elapsed() < deadline; {
		rec := d.Next()
		if len(rec.Changes) > 0 || len(rec.Notes) > 0 || rec.Fault != "" {
			out = append(out, rec)
		}
	}
	return out
}

// Elapsed returns the virtual time since the driver was created.
func (d *ScanDriver) Elapsed() time.Duration {
	return d.clock.Now().Sub(d.start)
}

// Engine returns the driven engine.
func (d *ScanDriver) Engine() *engine.Engine {
	return d.engine
}
