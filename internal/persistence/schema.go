package persistence

import (
	"context"
)

// initSchema creates all required tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		alphabet TEXT NOT NULL,
		workers INTEGER NOT NULL,
		base_cost INTEGER NOT NULL,
		makespan INTEGER NOT NULL,
		seq_order TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

	CREATE TABLE IF NOT EXISTS run_edges (
		run_id TEXT NOT NULL,
		before_id TEXT NOT NULL,
		after_id TEXT NOT NULL,
		PRIMARY KEY (run_id, before_id, after_id),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS run_tasks (
		run_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		worker INTEGER NOT NULL,
		start_at INTEGER NOT NULL,
		finish_at INTEGER NOT NULL,
		PRIMARY KEY (run_id, task_id),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_run_tasks_run_start ON run_tasks(run_id, start_at, worker);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
