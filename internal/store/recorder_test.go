package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plcsim/internal/engine"
	"github.com/roach88/plcsim/internal/plc"
	"github.com/roach88/plcsim/internal/program"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorder_FlushesOnClose(t *testing.T) {
	s := createTestStore(t)
	r := NewRecorder(s, WithRecorderLogger(quietLogger()))

	r.BeginRun(createTestRun("run-1"))
	for tick := uint64(1); tick <= 50; tick++ {
		r.Record(createTestScan("run-1", tick, "LED1", tick%2 == 1))
	}
	r.EndRun("run-1", testEpoch.Add(time.Second))
	require.NoError(t, r.Close())

	run, entries, err := s.ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.NotNil(t, run.StoppedAt)
	require.Len(t, entries, 50)
	for i, e := range entries {
		assert.Equal(t, uint64(i+1), e.Tick)
	}
	assert.Zero(t, r.Dropped())
}

func TestRecorder_CloseTwice(t *testing.T) {
	r := NewRecorder(createTestStore(t), WithRecorderLogger(quietLogger()))
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	r.Record(createTestScan("run-1", 1, "LED1", true))
	r.BeginRun(createTestRun("run-1"))
}

func TestRecorder_ReportsWriteFailure(t *testing.T) {
	r := NewRecorder(createTestStore(t), WithRecorderLogger(quietLogger()))

	r.Record(createTestScan("never-begun", 1, "LED1", true))
	err := r.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write scan 1")
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	s := createTestStore(t)
	r := &Recorder{
		store:  s,
		logger: quietLogger(),
		ops:    make(chan op, 2),
		done:   make(chan struct{}),
	}

	// No writer yet, so the queue fills.
	for tick := uint64(1); tick <= 5; tick++ {
		r.Record(createTestScan("run-1", tick, "LED1", true))
	}
	assert.Equal(t, uint64(3), r.Dropped())

	go r.write()
	_ = r.Close()
}

func TestRecorder_WithEngine(t *testing.T) {
	s := createTestStore(t)
	r := NewRecorder(s, WithRecorderLogger(quietLogger()), WithBuffer(4096))

	clock := plc.NewVirtualClock(testEpoch)
	p, err := program.New(program.KindChaseLight, clock)
	require.NoError(t, err)
	e, err := engine.New(p,
		engine.WithClock(clock),
		engine.WithLogger(quietLogger()),
		engine.WithRecorder(r),
		engine.WithRunIDGenerator(engine.NewFixedGenerator("run-1")),
	)
	require.NoError(t, err)

	e.Start(context.Background())
	require.NoError(t, e.SetInput("START", true))
	for i := 1; i <= 110; i++ {
		clock.Advance(e.Period())
		want := uint64(i)
		require.Eventually(t, func() bool { return e.Ticks() == want }, time.Second, 100*time.Microsecond)
	}
	e.Stop()
	require.NoError(t, r.Close())

	run, entries, err := s.ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "chase-light", run.Program)
	require.NotNil(t, run.StoppedAt)

	var lit bool
	for _, en := range entries {
		if en.Kind == KindOutput && en.Name == "LED1" && en.Value != nil && *en.Value {
			lit = true
			assert.Equal(t, uint64(101), en.Tick, "LED1 lights one second after START")
		}
	}
	assert.True(t, lit)
}
