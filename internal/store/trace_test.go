package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roach88/plcsim/internal/engine"
	"github.com/roach88/plcsim/internal/plc"
)

func TestBeginRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1")
	if err := s.BeginRun(ctx, run); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	run.Program = "other"
	if err := s.BeginRun(ctx, run); err != nil {
		t.Fatalf("second BeginRun() failed: %v", err)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].Program != "chase-light" {
		t.Errorf("Program = %q, first write should win", runs[0].Program)
	}
	if runs[0].Period != 10*time.Millisecond {
		t.Errorf("Period = %s, want 10ms", runs[0].Period)
	}
	if !runs[0].StartedAt.Equal(testEpoch) {
		t.Errorf("StartedAt = %s, want %s", runs[0].StartedAt, testEpoch)
	}
	if runs[0].StoppedAt != nil {
		t.Errorf("StoppedAt = %v, want nil for an open run", runs[0].StoppedAt)
	}
}

func TestEndRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.BeginRun(ctx, createTestRun("run-1")); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	stop := testEpoch.Add(3 * time.Second)
	if err := s.EndRun(ctx, "run-1", stop); err != nil {
		t.Fatalf("EndRun() failed: %v", err)
	}

	run, _, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if run.StoppedAt == nil || !run.StoppedAt.Equal(stop) {
		t.Errorf("StoppedAt = %v, want %s", run.StoppedAt, stop)
	}

	if err := s.EndRun(ctx, "missing", stop); err == nil {
		t.Error("EndRun() on unknown run should fail")
	}
}

func TestWriteScan_RowsPerEvent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.BeginRun(ctx, createTestRun("run-1")); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	rec := engine.ScanRecord{
		RunID: "run-1",
		Tick:  7,
		At:    testEpoch.Add(70 * time.Millisecond),
		State: "running",
		Changes: []plc.SignalChange{
			{Direction: plc.DirectionInput, Name: "START", Value: true},
			{Direction: plc.DirectionOutput, Name: "LED1", Value: true},
		},
		Notes: []string{"chase started"},
	}
	if err := s.WriteScan(ctx, rec); err != nil {
		t.Fatalf("WriteScan() failed: %v", err)
	}

	_, entries, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	want := []struct {
		kind, name string
		value      *bool
		detail     string
	}{
		{KindInput, "START", boolPtr(true), ""},
		{KindOutput, "LED1", boolPtr(true), ""},
		{KindNote, "", nil, "chase started"},
	}
	for i, w := range want {
		e := entries[i]
		if e.Tick != 7 || e.State != "running" || !e.At.Equal(rec.At) {
			t.Errorf("entry %d: tick=%d state=%q at=%s", i, e.Tick, e.State, e.At)
		}
		if e.Kind != w.kind || e.Name != w.name || e.Detail != w.detail {
			t.Errorf("entry %d = %+v, want kind=%s name=%s detail=%q", i, e, w.kind, w.name, w.detail)
		}
		if (e.Value == nil) != (w.value == nil) || (e.Value != nil && *e.Value != *w.value) {
			t.Errorf("entry %d value = %v, want %v", i, e.Value, w.value)
		}
	}
}

func TestWriteScan_Fault(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.BeginRun(ctx, createTestRun("run-1")); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	fault := plc.NewStepFault("chase-light", 3, errors.New("boom")).Error()
	if err := s.WriteScan(ctx, engine.ScanRecord{RunID: "run-1", Tick: 3, At: testEpoch, State: "running", Fault: fault}); err != nil {
		t.Fatalf("WriteScan() failed: %v", err)
	}

	_, entries, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != KindFault || entries[0].Detail != fault {
		t.Errorf("entries = %+v, want one fault entry", entries)
	}
}

func TestWriteScan_UnknownRunRollsBack(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteScan(context.Background(), createTestScan("missing", 1, "LED1", true))
	if err == nil {
		t.Fatal("WriteScan() for unknown run should fail")
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM scan_records").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("got %d rows after failed write, want 0", count)
	}
}

func TestReadRun_OrderedByTick(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.BeginRun(ctx, createTestRun("run-1")); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	// Written out of order.
	for _, tick := range []uint64{30, 10, 20} {
		if err := s.WriteScan(ctx, createTestScan("run-1", tick, "LED1", tick != 20)); err != nil {
			t.Fatalf("WriteScan(%d) failed: %v", tick, err)
		}
	}

	_, entries, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	var ticks []uint64
	for _, e := range entries {
		ticks = append(ticks, e.Tick)
	}
	if len(ticks) != 3 || ticks[0] != 10 || ticks[1] != 20 || ticks[2] != 30 {
		t.Errorf("ticks = %v, want [10 20 30]", ticks)
	}
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, _, err := s.ReadRun(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("runs = %v, want empty non-nil slice", runs)
	}
}

func TestListRuns_OldestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	later := createTestRun("run-b")
	later.StartedAt = testEpoch.Add(time.Hour)
	for _, run := range []engine.RunInfo{later, createTestRun("run-a")} {
		if err := s.BeginRun(ctx, run); err != nil {
			t.Fatalf("BeginRun() failed: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-a" || runs[1].ID != "run-b" {
		t.Errorf("runs = %+v, want run-a then run-b", runs)
	}
}

func boolPtr(v bool) *bool { return &v }
