// Package plc implements the primitives a simulated controller scans with.
//
// The package contains:
//   - Timer: on-delay timer (TON) sampled once per scan
//   - Counter: rising-edge up-counter (CTU)
//   - IOTable: named boolean inputs and outputs shared with observers
//   - Scan: the per-tick working image handed to a program
//   - Clock: wall-clock and virtual time sources
//
// TIMING MODEL:
//
// Timers are plain data. They are not scheduled; they compute elapsed time
// from the injected Clock each time Update is called. A VirtualClock makes
// every timer in a program advance only when the caller says so, which keeps
// scenario runs and tests deterministic.
//
// Timer.done is NOT latched. It clears on the first Update(false) whether or
// not anyone observed it. Several catalogue programs rely on that.
//
// CONCURRENCY:
//
// Inputs are stored one atomic.Bool per signal, so a reader never sees a torn
// value and an edge is never lost or duplicated. Outputs are published as an
// immutable image swapped once per committed scan; observers always see the
// complete result of one tick.
//
// Program code never touches the IOTable directly. It reads latched inputs and
// writes outputs through a Scan, and only the engine commits a Scan.
package plc
