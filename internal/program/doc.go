// Package program contains the catalogue of training programs the simulator
// can scan.
//
// Every program is the same Program struct tagged with a Kind. The kind
// selects a static definition (declared signals, timer and counter presets,
// initial outputs) and a step function. Per-kind state lives in explicit,
// always-initialized fields of Program rather than in per-kind types.
//
// A step function runs once per scan. It reads latched inputs and writes
// outputs through the plc.Scan, updates the timers and counters the program
// owns, and moves the discrete state. Step functions never block, sleep or
// perform I/O; transitions are reported with Scan.Notef and logged by the
// engine.
package program
