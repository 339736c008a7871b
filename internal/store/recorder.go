package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/plcsim/internal/engine"
)

// DefaultRecorderBuffer is the number of scan records a Recorder queues
// before it starts dropping them.
const DefaultRecorderBuffer = 1024

var _ engine.Recorder = (*Recorder)(nil)

// op is one queued write. Exactly one field is set.
type op struct {
	begin *engine.RunInfo
	scan  *engine.ScanRecord
	end   *endRun
}

type endRun struct {
	id string
	at time.Time
}

// Recorder implements engine.Recorder on top of a Store.
//
// Calls from the engine only enqueue; a single writer goroutine drains the
// queue into SQLite. BeginRun and EndRun wait for queue space. Record never
// waits: when the queue is full the record is dropped, counted and logged.
//
// ERROR HANDLING: write failures are logged and the writer continues with
// the next record. Close returns the first failure.
type Recorder struct {
	store  *Store
	logger *slog.Logger
	ops    chan op

	mu     sync.RWMutex // guards closed against sends on a closed channel
	closed bool

	done     chan struct{}
	dropped  atomic.Uint64
	firstErr error // written by the writer goroutine, read after done
}

// RecorderOption configures a Recorder.
type RecorderOption func(*recorderConfig)

type recorderConfig struct {
	buffer int
	logger *slog.Logger
}

// WithBuffer sets the queue length. Default: DefaultRecorderBuffer.
func WithBuffer(n int) RecorderOption {
	return func(c *recorderConfig) {
		if n > 0 {
			c.buffer = n
		}
	}
}

// WithRecorderLogger sets the logger. Default: slog.Default().
func WithRecorderLogger(l *slog.Logger) RecorderOption {
	return func(c *recorderConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewRecorder starts a recorder writing to s. Close it to flush.
func NewRecorder(s *Store, opts ...RecorderOption) *Recorder {
	cfg := recorderConfig{buffer: DefaultRecorderBuffer, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Recorder{
		store:  s,
		logger: cfg.logger,
		ops:    make(chan op, cfg.buffer),
		done:   make(chan struct{}),
	}
	go r.write()
	return r
}

// BeginRun queues the run row.
func (r *Recorder) BeginRun(run engine.RunInfo) {
	r.send(op{begin: &run}, true)
}

// Record queues rec, or drops it when the queue is full.
func (r *Recorder) Record(rec engine.ScanRecord) {
	r.send(op{scan: &rec}, false)
}

// EndRun queues the run's stop time.
func (r *Recorder) EndRun(id string, at time.Time) {
	r.send(op{end: &endRun{id: id, at: at}}, true)
}

// Dropped returns the number of scan records dropped on a full queue.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *Recorder) send(o op, wait bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.logger.Warn("recorder closed, write ignored")
		return
	}
	if wait {
		r.ops <- o
		return
	}
	select {
	case r.ops <- o:
	default:
		n := r.dropped.Add(1)
		if n == 1 || n%1000 == 0 {
			r.logger.Warn("recorder queue full, scan record dropped",
				"tick", o.scan.Tick,
				"dropped", n,
			)
		}
	}
}

// write drains the queue until Close.
func (r *Recorder) write() {
	defer close(r.done)

	ctx := context.Background()
	for o := range r.ops {
		var err error
		switch {
		case o.begin != nil:
			err = r.store.BeginRun(ctx, *o.begin)
		case o.scan != nil:
			err = r.store.WriteScan(ctx, *o.scan)
		case o.end != nil:
			err = r.store.EndRun(ctx, o.end.id, o.end.at)
		}
		if err != nil {
			r.logger.Error("trace write failed", "error", err)
			if r.firstErr == nil {
				r.firstErr = err
			}
		}
	}
}

// Close flushes queued writes and stops the writer. It does not close the
// store. Safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.ops)
	}
	r.mu.Unlock()

	<-r.done
	if n := r.dropped.Load(); n > 0 {
		r.logger.Warn("scan records dropped", "dropped", n)
	}
	return r.firstErr
}
