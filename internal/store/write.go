package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/plcsim/internal/engine"
)

// BeginRun inserts a run row.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a run begun twice keeps
// its first row.
func (s *Store) BeginRun(ctx context.Context, run engine.RunInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, program, period_ns, started_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Program,
		run.Period.Nanoseconds(),
		encodeTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", run.ID, err)
	}
	return nil
}

// EndRun sets the stop time of a run. Unknown ids are an error.
func (s *Store) EndRun(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET stopped_at = ? WHERE id = ?
	`, encodeTime(at), id)
	if err != nil {
		return fmt.Errorf("end run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("end run %s: run not found", id)
	}
	return nil
}

// WriteScan writes one row per change, note and fault of rec in a single
// transaction: input and output changes first, then notes, then the fault.
//
// Note: the run referenced by rec.RunID must exist (foreign key constraint).
func (s *Store) WriteScan(ctx context.Context, rec engine.ScanRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write scan %d: %w", rec.Tick, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scan_records (run_id, tick, at_ns, state, kind, name, value, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write scan %d: %w", rec.Tick, err)
	}
	defer stmt.Close()

	insert := func(kind, name string, value any, detail string) error {
		_, err := stmt.ExecContext(ctx,
			rec.RunID,
			rec.Tick,
			encodeTime(rec.At),
			rec.State,
			kind,
			name,
			value,
			detail,
		)
		return err
	}

	for _, c := range rec.Changes {
		if err = insert(c.Direction.String(), c.Name, encodeBool(c.Value), ""); err != nil {
			return fmt.Errorf("write scan %d change %s: %w", rec.Tick, c.Name, err)
		}
	}
	for _, note := range rec.Notes {
		if err = insert(KindNote, "", nil, note); err != nil {
			return fmt.Errorf("write scan %d note: %w", rec.Tick, err)
		}
	}
	if rec.Fault != "" {
		if err = insert(KindFault, "", nil, rec.Fault); err != nil {
			return fmt.Errorf("write scan %d fault: %w", rec.Tick, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("write scan %d: commit: %w", rec.Tick, err)
	}
	return nil
}
