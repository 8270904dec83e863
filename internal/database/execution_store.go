package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/SanathAishu/clinic-administration-sub006/internal/archival"
)

// pqUniqueViolation is the PostgreSQL error code for a unique constraint
// violation, raised by the (policy_id, execution_date) index when two
// scheduler instances race to start the same run.
const pqUniqueViolation = "23505"

// ExecutionStore persists archival execution logs in PostgreSQL. It
// implements archival.Store.
type ExecutionStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewExecutionStore creates a new execution log repository
func NewExecutionStore(db *sqlx.DB, logger *zap.Logger) *ExecutionStore {
	return &ExecutionStore{db: db, logger: logger}
}

// Insert creates a RUNNING log. The unique index on
// (policy_id, execution_date) enforces at most one run per policy per
// day across all scheduler instances.
func (s *ExecutionStore) Insert(ctx context.Context, log *archival.ExecutionLog) error {
	query := `
		INSERT INTO archival_execution_logs (
			id, policy_id, execution_date, entity_type,
			records_processed, records_archived, records_failed,
			start_time, end_time, duration_seconds, status, error_message,
			created_at, updated_at
		) VALUES (
			:id, :policy_id, :execution_date, :entity_type,
			:records_processed, :records_archived, :records_failed,
			:start_time, :end_time, :duration_seconds, :status, :error_message,
			:created_at, :updated_at
		)`

	_, err := s.db.NamedExecContext(ctx, query, log)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return archival.ErrDuplicateExecution
		}
		s.logger.Error("Failed to insert execution log",
			zap.String("log_id", log.ID), zap.Error(err))
		return fmt.Errorf("failed to insert execution log: %w", err)
	}

	return nil
}

// Get retrieves an execution log by ID
func (s *ExecutionStore) Get(ctx context.Context, id string) (*archival.ExecutionLog, error) {
	query := `SELECT * FROM archival_execution_logs WHERE id = $1`

	var log archival.ExecutionLog
	err := s.db.GetContext(ctx, &log, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, archival.ErrExecutionNotFound
		}
		s.logger.Error("Failed to get execution log", zap.String("log_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get execution log: %w", err)
	}

	return &log, nil
}

// UpdateProgress persists partial counts while the run is still RUNNING
func (s *ExecutionStore) UpdateProgress(ctx context.Context, log *archival.ExecutionLog) error {
	query := `
		UPDATE archival_execution_logs SET
			records_processed = :records_processed,
			records_archived = :records_archived,
			records_failed = :records_failed,
			updated_at = :updated_at
		WHERE id = :id AND status = 'RUNNING'`

	result, err := s.db.NamedExecContext(ctx, query, log)
	if err != nil {
		s.logger.Error("Failed to update execution progress",
			zap.String("log_id", log.ID), zap.Error(err))
		return fmt.Errorf("failed to update execution progress: %w", err)
	}

	return s.requireRunningRow(ctx, result, log.ID)
}

// Finalize commits the terminal transition. The status guard in the
// WHERE clause makes the transition race-safe: the first terminal write
// wins and any later one affects zero rows.
func (s *ExecutionStore) Finalize(ctx context.Context, log *archival.ExecutionLog) error {
	query := `
		UPDATE archival_execution_logs SET
			records_processed = :records_processed,
			records_archived = :records_archived,
			records_failed = :records_failed,
			end_time = :end_time,
			duration_seconds = :duration_seconds,
			status = :status,
			error_message = :error_message,
			updated_at = :updated_at
		WHERE id = :id AND status = 'RUNNING'`

	result, err := s.db.NamedExecContext(ctx, query, log)
	if err != nil {
		s.logger.Error("Failed to finalize execution log",
			zap.String("log_id", log.ID), zap.Error(err))
		return fmt.Errorf("failed to finalize execution log: %w", err)
	}

	return s.requireRunningRow(ctx, result, log.ID)
}

// requireRunningRow distinguishes a missing log from one that already
// reached a terminal status when a guarded update affected no rows
func (s *ExecutionStore) requireRunningRow(ctx context.Context, result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return archival.ErrAlreadyFinalized
}
