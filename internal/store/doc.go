// Package store provides the SQLite scan-trace store.
//
// The trace is an append-only diagnostic log of engine runs:
//   - runs: one row per Engine.Start, closed when the loop exits
//   - scan_records: one row per input change, output change, transition
//     note or step fault of a recorded tick
//
// Nothing in the trace is ever loaded back into a program.
//
// # Ordering
//
// Reads of a run's records use ORDER BY tick ASC, id ASC, which is the
// order the engine produced them in.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The engine never writes to the store directly: Recorder queues records and
// writes them on its own goroutine so a slow disk cannot stretch a tick.
package store
