package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Run modes.
const (
	ModeLive   = "live"
	ModeReplay = "replay"
)

// Run summarises one pass over a frame stream.
type Run struct {
	ID        string     `json:"id"`
	Mode      string     `json:"mode"`
	Variant   string     `json:"variant"`
	Source    string     `json:"source"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Frames    int        `json:"frames"`
	Skipped   int        `json:"skipped"`
	Gated     int        `json:"gated"`
	Regressed int        `json:"regressed"`
	Events    int        `json:"events"`
}

// RunCounters are the totals recorded when a run finishes.
type RunCounters struct {
	Frames    int
	Skipped   int
	Gated     int
	Regressed int
	Events    int
}

// RunRepository records run summaries.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a lexically sortable run identifier. IDs created within the
// same millisecond still sort in creation order.
func NewRunID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Start inserts an open run. ID and StartedAt are filled when empty.
func (r *RunRepository) Start(ctx context.Context, run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.ID == "" {
		run.ID = NewRunID(run.StartedAt)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, variant, source, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Mode, run.Variant, run.Source, run.StartedAt,
	)
	return err
}

// Finish closes a run with its final counters.
func (r *RunRepository) Finish(ctx context.Context, id string, endedAt time.Time, c RunCounters) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = ?, frames = ?, skipped = ?, gated = ?, regressed = ?, events = ?
		 WHERE id = ?`,
		endedAt, c.Frames, c.Skipped, c.Gated, c.Regressed, c.Events, id,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const runColumns = `id, mode, variant, source, started_at, ended_at, frames, skipped, gated, regressed, events`

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var ended sql.NullTime
	err := row.Scan(&run.ID, &run.Mode, &run.Variant, &run.Source, &run.StartedAt, &ended,
		&run.Frames, &run.Skipped, &run.Gated, &run.Regressed, &run.Events)
	if err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		run.EndedAt = &t
	}
	return run, nil
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// List returns up to limit runs, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
