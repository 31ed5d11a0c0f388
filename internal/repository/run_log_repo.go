package repository

import (
	"context"
	"database/sql"
	"fmt"

	"carbonstream/internal/models"
)

// RunLogRepository appends pipeline invocation outcomes to the audit table.
type RunLogRepository struct {
	db *sql.DB
}

// NewRunLogRepository returns repository.
func NewRunLogRepository(db *sql.DB) *RunLogRepository {
	return &RunLogRepository{db: db}
}

// EnsureSchema creates the run-log table when absent.
func (r *RunLogRepository) EnsureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS etl_runs (
			id BIGSERIAL PRIMARY KEY,
			run_timestamp TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			rows_inserted INT NOT NULL,
			execution_time_ms BIGINT NOT NULL,
			error_message TEXT
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure etl_runs schema: %w", err)
	}
	return nil
}

// Insert appends one run-log entry. error_message stays NULL for statuses
// without an error.
func (r *RunLogRepository) Insert(ctx context.Context, entry *models.RunLog) error {
	const query = `
		INSERT INTO etl_runs (run_timestamp, status, rows_inserted, execution_time_ms, error_message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	errMsg := sql.NullString{String: entry.ErrorMessage, Valid: entry.ErrorMessage != ""}
	err := r.db.QueryRowContext(ctx, query,
		entry.RunTimestamp,
		string(entry.Status),
		entry.RowsInserted,
		entry.ExecutionTimeMs,
		errMsg,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}
	return nil
}
