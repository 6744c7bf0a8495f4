package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a relational Store: one row per execution flag, one row
// per task path carrying the in-progress marker and the committed value.
// The schema is created at construction time if it doesn't exist.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens dsn, configures the connection pool, and creates
// the schema if it doesn't exist.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	executionsTable := `
		CREATE TABLE IF NOT EXISTS stepflow_executions (
			execution_id VARCHAR(255) NOT NULL PRIMARY KEY,
			in_progress BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := s.db.ExecContext(ctx, executionsTable); err != nil {
		return fmt.Errorf("failed to create stepflow_executions table: %w", err)
	}

	tasksTable := `
		CREATE TABLE IF NOT EXISTS stepflow_tasks (
			execution_id VARCHAR(255) NOT NULL,
			task_path VARCHAR(1024) NOT NULL,
			in_progress BOOLEAN NOT NULL DEFAULT FALSE,
			has_value BOOLEAN NOT NULL DEFAULT FALSE,
			value LONGTEXT,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			PRIMARY KEY (execution_id, task_path(255))
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := s.db.ExecContext(ctx, tasksTable); err != nil {
		return fmt.Errorf("failed to create stepflow_tasks table: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *MySQLStore) Close() error { return s.db.Close() }

func (s *MySQLStore) BeginExecution(ctx context.Context, executionID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stepflow_executions (execution_id, in_progress) VALUES (?, TRUE)
		 ON DUPLICATE KEY UPDATE in_progress = TRUE`, executionID)
	if err != nil {
		return fmt.Errorf("mysql begin execution: %w", err)
	}
	return nil
}

func (s *MySQLStore) IsExecutionInProgress(ctx context.Context, executionID string) (bool, error) {
	var inProgress bool
	err := s.db.QueryRowContext(ctx,
		`SELECT in_progress FROM stepflow_executions WHERE execution_id = ?`, executionID).Scan(&inProgress)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mysql is execution in progress: %w", err)
	}
	return inProgress, nil
}

func (s *MySQLStore) BeginExecutionTask(ctx context.Context, executionID, taskPath string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stepflow_tasks (execution_id, task_path, in_progress, has_value)
		 VALUES (?, ?, TRUE, FALSE)
		 ON DUPLICATE KEY UPDATE in_progress = IF(has_value, in_progress, TRUE)`,
		executionID, taskPath)
	if err != nil {
		return fmt.Errorf("mysql begin execution task: %w", err)
	}
	return nil
}

func (s *MySQLStore) IsExecutionTaskInProgress(ctx context.Context, executionID, taskPath string) (bool, error) {
	var inProgress, hasValue bool
	err := s.db.QueryRowContext(ctx,
		`SELECT in_progress, has_value FROM stepflow_tasks WHERE execution_id = ? AND task_path = ?`,
		executionID, taskPath).Scan(&inProgress, &hasValue)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mysql is execution task in progress: %w", err)
	}
	return inProgress && !hasValue, nil
}

func (s *MySQLStore) GetExecutionTaskResult(ctx context.Context, executionID, taskPath string) (string, bool, error) {
	var hasValue bool
	var value sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT has_value, value FROM stepflow_tasks WHERE execution_id = ? AND task_path = ?`,
		executionID, taskPath).Scan(&hasValue, &value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("mysql get execution task result: %w", err)
	}
	if !hasValue {
		return "", false, nil
	}
	return value.String, true, nil
}

func (s *MySQLStore) CommitExecutionTaskResult(ctx context.Context, executionID, taskPath, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stepflow_tasks (execution_id, task_path, in_progress, has_value, value)
		 VALUES (?, ?, FALSE, TRUE, ?)
		 ON DUPLICATE KEY UPDATE in_progress = FALSE, has_value = TRUE, value = VALUES(value)`,
		executionID, taskPath, value)
	if err != nil {
		return fmt.Errorf("mysql commit execution task result: %w", err)
	}
	return nil
}

func (s *MySQLStore) DisposeExecution(ctx context.Context, executionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mysql dispose execution: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stepflow_tasks WHERE execution_id = ?`, executionID); err != nil {
		return fmt.Errorf("mysql dispose execution tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM stepflow_executions WHERE execution_id = ?`, executionID); err != nil {
		return fmt.Errorf("mysql dispose execution flag: %w", err)
	}
	return tx.Commit()
}

// GetExecutionTaskResults implements BulkPrefetcher.
func (s *MySQLStore) GetExecutionTaskResults(ctx context.Context, executionID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_path, value FROM stepflow_tasks WHERE execution_id = ? AND has_value = TRUE`, executionID)
	if err != nil {
		return nil, fmt.Errorf("mysql get execution task results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var path string
		var value sql.NullString
		if err := rows.Scan(&path, &value); err != nil {
			return nil, fmt.Errorf("mysql scan execution task result: %w", err)
		}
		out[path] = value.String
	}
	return out, rows.Err()
}

var _ Store = (*MySQLStore)(nil)
var _ BulkPrefetcher = (*MySQLStore)(nil)
