package engine

import (
	"time"

	"github.com/roach88/plcsim/internal/plc"
)

// RunInfo describes one engine run, from Start until the loop exits.
type RunInfo struct {
	ID        string
	Program   string
	Period    time.Duration
	StartedAt time.Time
}

// ScanRecord is what a tick hands to the Recorder. Ticks that changed no
// signal, added no note and did not fault produce no record.
type ScanRecord struct {
	RunID   string
	Program string
	Tick    uint64
	At      time.Time
	State   string
	Changes []plc.SignalChange
	Notes   []string

	// Fault is the STEP_FAULT message when the tick failed.
	Fault string
}

// Recorder receives run boundaries and scan records.
//
// Methods are called from the tick goroutine and must not block; the store
// package's Recorder queues records and writes them on its own goroutine.
type Recorder interface {
	BeginRun(run RunInfo)
	Record(rec ScanRecord)
	EndRun(id string, at time.Time)
}
