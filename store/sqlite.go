package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a single-file Store on the pure-Go modernc.org/sqlite
// driver, with zero setup for development or single-process workflows.
// Same schema shape as MySQLStore over database/sql.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) path and enables WAL mode for
// concurrent reads.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: single writer connection avoids SQLITE_BUSY

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stepflow_executions (
			execution_id TEXT NOT NULL PRIMARY KEY,
			in_progress INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS stepflow_tasks (
			execution_id TEXT NOT NULL,
			task_path TEXT NOT NULL,
			in_progress INTEGER NOT NULL DEFAULT 0,
			has_value INTEGER NOT NULL DEFAULT 0,
			value TEXT,
			PRIMARY KEY (execution_id, task_path)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) BeginExecution(ctx context.Context, executionID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stepflow_executions (execution_id, in_progress) VALUES (?, 1)
		 ON CONFLICT(execution_id) DO UPDATE SET in_progress = 1`, executionID)
	if err != nil {
		return fmt.Errorf("sqlite begin execution: %w", err)
	}
	return nil
}

func (s *SQLiteStore) IsExecutionInProgress(ctx context.Context, executionID string) (bool, error) {
	var inProgress bool
	err := s.db.QueryRowContext(ctx,
		`SELECT in_progress FROM stepflow_executions WHERE execution_id = ?`, executionID).Scan(&inProgress)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite is execution in progress: %w", err)
	}
	return inProgress, nil
}

func (s *SQLiteStore) BeginExecutionTask(ctx context.Context, executionID, taskPath string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stepflow_tasks (execution_id, task_path, in_progress, has_value)
		 VALUES (?, ?, 1, 0)
		 ON CONFLICT(execution_id, task_path) DO UPDATE SET
			in_progress = CASE WHEN has_value THEN in_progress ELSE 1 END`,
		executionID, taskPath)
	if err != nil {
		return fmt.Errorf("sqlite begin execution task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) IsExecutionTaskInProgress(ctx context.Context, executionID, taskPath string) (bool, error) {
	var inProgress, hasValue bool
	err := s.db.QueryRowContext(ctx,
		`SELECT in_progress, has_value FROM stepflow_tasks WHERE execution_id = ? AND task_path = ?`,
		executionID, taskPath).Scan(&inProgress, &hasValue)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite is execution task in progress: %w", err)
	}
	return inProgress && !hasValue, nil
}

func (s *SQLiteStore) GetExecutionTaskResult(ctx context.Context, executionID, taskPath string) (string, bool, error) {
	var hasValue bool
	var value sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT has_value, value FROM stepflow_tasks WHERE execution_id = ? AND task_path = ?`,
		executionID, taskPath).Scan(&hasValue, &value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite get execution task result: %w", err)
	}
	if !hasValue {
		return "", false, nil
	}
	return value.String, true, nil
}

func (s *SQLiteStore) CommitExecutionTaskResult(ctx context.Context, executionID, taskPath, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stepflow_tasks (execution_id, task_path, in_progress, has_value, value)
		 VALUES (?, ?, 0, 1, ?)
		 ON CONFLICT(execution_id, task_path) DO UPDATE SET
			in_progress = 0, has_value = 1, value = excluded.value`,
		executionID, taskPath, value)
	if err != nil {
		return fmt.Errorf("sqlite commit execution task result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DisposeExecution(ctx context.Context, executionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite dispose execution: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stepflow_tasks WHERE execution_id = ?`, executionID); err != nil {
		return fmt.Errorf("sqlite dispose execution tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM stepflow_executions WHERE execution_id = ?`, executionID); err != nil {
		return fmt.Errorf("sqlite dispose execution flag: %w", err)
	}
	return tx.Commit()
}

// GetExecutionTaskResults implements BulkPrefetcher.
func (s *SQLiteStore) GetExecutionTaskResults(ctx context.Context, executionID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_path, value FROM stepflow_tasks WHERE execution_id = ? AND has_value = 1`, executionID)
	if err != nil {
		return nil, fmt.Errorf("sqlite get execution task results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var path string
		var value sql.NullString
		if err := rows.Scan(&path, &value); err != nil {
			return nil, fmt.Errorf("sqlite scan execution task result: %w", err)
		}
		out[path] = value.String
	}
	return out, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
var _ BulkPrefetcher = (*SQLiteStore)(nil)
