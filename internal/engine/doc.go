// Package engine runs a program in fixed-period scan cycles.
//
// An Engine owns one loaded program and its IO table. Each tick:
//
//  1. latches the inputs into a plc.Scan
//  2. runs Program.Step on the scan
//  3. commits the scan's outputs, or discards them if the step failed
//  4. publishes an Observation of the program's state, timers and counters
//  5. hands a ScanRecord to the Recorder when anything changed
//
// Ticks are serialized. The loop started by Start is the only caller of Tick
// while the engine runs; tests and the scenario harness call Tick directly on
// a stopped engine driven by a plc.VirtualClock.
//
// ERROR HANDLING: a step that returns an error or panics becomes a STEP_FAULT.
// The fault is logged, kept as LastError and recorded, the previous outputs
// stay committed, and ticking continues. Start on a running engine and Stop on
// a stopped one are logged no-ops.
package engine
