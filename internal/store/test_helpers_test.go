package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/plcsim/internal/engine"
	"github.com/roach88/plcsim/internal/plc"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// createTestRun creates run info with minimal required fields.
func createTestRun(id string) engine.RunInfo {
	return engine.RunInfo{
		ID:        id,
		Program:   "chase-light",
		Period:    10 * time.Millisecond,
		StartedAt: testEpoch,
	}
}

// createTestScan creates a record with one output change at tick.
func createTestScan(runID string, tick uint64, output string, value bool) engine.ScanRecord {
	return engine.ScanRecord{
		RunID:   runID,
		Program: "chase-light",
		Tick:    tick,
		At:      testEpoch.Add(time.Duration(tick) * 10 * time.Millisecond),
		State:   "running",
		Changes: []plc.SignalChange{{Direction: plc.DirectionOutput, Name: output, Value: value}},
	}
}
