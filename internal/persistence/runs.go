package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aristath/stepsched/internal/scheduler"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunRecord is a stored scheduling run: its inputs and both answers.
type RunRecord struct {
	ID        string
	CreatedAt time.Time
	Alphabet  scheduler.Alphabet
	Workers   int
	BaseCost  int
	Makespan  int
	Order     string              // Sequential order, e.g. "CABDFE"
	Edges     []scheduler.Edge    // Sorted by (Before, After)
	Timeline  []scheduler.TaskRun // Sorted by (Start, Worker)
}

// NewRunRecord captures a finished run of d.
func NewRunRecord(d *scheduler.DAG, seq *scheduler.SequentialResult, par *scheduler.ParallelResult) *RunRecord {
	return &RunRecord{
		Alphabet: d.Alphabet(),
		Workers:  par.Workers,
		BaseCost: par.BaseCost,
		Makespan: par.Makespan,
		Order:    seq.String(),
		Edges:    d.Edges(),
		Timeline: append([]scheduler.TaskRun(nil), par.Timeline...),
	}
}

// SaveRun stores run and returns its id. A missing id is generated and a zero
// CreatedAt is set to now; both are written back to run.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *RunRecord) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	err := withRetry(ctx, s.retry, func() error {
		return s.saveRunTx(ctx, run)
	})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func (s *SQLiteStore) saveRunTx(ctx context.Context, run *RunRecord) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, alphabet, workers, base_cost, makespan, seq_order)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			alphabet = excluded.alphabet,
			workers = excluded.workers,
			base_cost = excluded.base_cost,
			makespan = excluded.makespan,
			seq_order = excluded.seq_order
	`, run.ID, run.CreatedAt.UTC().Format(timeLayout), string(run.Alphabet),
		run.Workers, run.BaseCost, run.Makespan, run.Order)
	if err != nil {
		return fmt.Errorf("failed to upsert run: %w", err)
	}

	// Replace children so re-saving a run is idempotent
	if _, err := tx.ExecContext(ctx, `DELETE FROM run_edges WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to delete old edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM run_tasks WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to delete old tasks: %w", err)
	}

	for _, e := range run.Edges {
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO run_edges (run_id, before_id, after_id)
			VALUES (?, ?, ?)
		`, run.ID, e.Before, e.After)
		if err != nil {
			return fmt.Errorf("failed to insert edge %s -> %s: %w", e.Before, e.After, err)
		}
	}

	for _, tr := range run.Timeline {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_tasks (run_id, task_id, worker, start_at, finish_at)
			VALUES (?, ?, ?, ?, ?)
		`, run.ID, tr.ID, tr.Worker, tr.Start, tr.Finish)
		if err != nil {
			return fmt.Errorf("failed to insert task %s: %w", tr.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetRun retrieves a run with its edges and timeline.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `
		SELECT id, created_at, alphabet, workers, base_cost, makespan, seq_order
		FROM runs WHERE id = ?
	`, runID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if run.Edges, err = s.loadEdges(ctx, runID); err != nil {
		return nil, err
	}
	if run.Timeline, err = s.loadTimeline(ctx, runID); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns run headers, newest first, without edges or timelines.
// A non-positive limit returns every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	query := `
		SELECT id, created_at, alphabet, workers, base_cost, makespan, seq_order
		FROM runs ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run; its edges and tasks cascade.
func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) error {
	return withRetry(ctx, s.retry, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
		if err != nil {
			return fmt.Errorf("failed to delete run: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check deleted rows: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		run       RunRecord
		createdAt string
		alphabet  string
	)
	if err := row.Scan(&run.ID, &createdAt, &alphabet, &run.Workers, &run.BaseCost, &run.Makespan, &run.Order); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	run.CreatedAt = t
	run.Alphabet = scheduler.Alphabet(alphabet)
	return &run, nil
}

func (s *SQLiteStore) loadEdges(ctx context.Context, runID string) ([]scheduler.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT before_id, after_id FROM run_edges
		WHERE run_id = ? ORDER BY before_id, after_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}
	defer rows.Close()

	var edges []scheduler.Edge
	for rows.Next() {
		var e scheduler.Edge
		if err := rows.Scan(&e.Before, &e.After); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *SQLiteStore) loadTimeline(ctx context.Context, runID string) ([]scheduler.TaskRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, worker, start_at, finish_at FROM run_tasks
		WHERE run_id = ? ORDER BY start_at, worker
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}
	defer rows.Close()

	var timeline []scheduler.TaskRun
	for rows.Next() {
		var tr scheduler.TaskRun
		if err := rows.Scan(&tr.ID, &tr.Worker, &tr.Start, &tr.Finish); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		timeline = append(timeline, tr)
	}
	return timeline, rows.Err()
}

// Graph rebuilds the stored graph so the run can be replayed.
func (r *RunRecord) Graph() (*scheduler.DAG, error) {
	d := scheduler.NewDAG(r.Alphabet)
	if err := d.AddEdges(r.Edges); err != nil {
		return nil, fmt.Errorf("rebuilding run %s: %w", r.ID, err)
	}
	return d, nil
}

// Summary is a one-line description for listings.
func (r *RunRecord) Summary() string {
	return fmt.Sprintf("%s  %s  order=%s  workers=%d  base=%d  makespan=%d",
		r.ID, r.CreatedAt.Format(time.RFC3339), r.Order, r.Workers, r.BaseCost, r.Makespan)
}
