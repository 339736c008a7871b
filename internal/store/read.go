package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned by ReadRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Run is one row of the runs table.
type Run struct {
	ID        string        `json:"id"`
	Program   string        `json:"program"`
	Period    time.Duration `json:"period"`
	StartedAt time.Time     `json:"started_at"`
	StoppedAt *time.Time    `json:"stopped_at,omitempty"`
}

// Entry is one row of the scan_records table.
type Entry struct {
	Tick   uint64    `json:"tick"`
	At     time.Time `json:"at"`
	State  string    `json:"state"`
	Kind   string    `json:"kind"`
	Name   string    `json:"name,omitempty"`
	Value  *bool     `json:"value,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// ListRuns returns every run, oldest first.
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, program, period_ns, started_at, stopped_at
		FROM runs
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns a run and its entries ordered by tick, then insertion.
// Returns ErrRunNotFound (wrapped) for an unknown id.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, []Entry, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `
		SELECT id, program, period_ns, started_at, stopped_at
		FROM runs
		WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tick, at_ns, state, kind, name, value, detail
		FROM scan_records
		WHERE run_id = ?
		ORDER BY tick ASC, id ASC
	`, id)
	if err != nil {
		return Run{}, nil, fmt.Errorf("query scan records: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e     Entry
			atNs  int64
			value sql.NullInt64
		)
		if err := rows.Scan(&e.Tick, &atNs, &e.State, &e.Kind, &e.Name, &value, &e.Detail); err != nil {
			return Run{}, nil, fmt.Errorf("scan record: %w", err)
		}
		e.At = decodeTime(atNs)
		e.Value = decodeNullBool(value)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, fmt.Errorf("iterate scan records: %w", err)
	}
	return run, entries, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(r rowScanner) (Run, error) {
	var (
		run       Run
		periodNs  int64
		startedAt int64
		stoppedAt sql.NullInt64
	)
	if err := r.Scan(&run.ID, &run.Program, &periodNs, &startedAt, &stoppedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Period = time.Duration(periodNs)
	run.StartedAt = decodeTime(startedAt)
	run.StoppedAt = decodeNullTime(stoppedAt)
	return run, nil
}
