package archival

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists execution logs. Implementations must enforce uniqueness
// of (policy_id, execution_date) on insert and at-most-one terminal
// transition on finalize, since concurrent runs may originate from
// different scheduler instances.
type Store interface {
	// Insert creates a RUNNING log; a (policy_id, execution_date)
	// conflict yields ErrDuplicateExecution.
	Insert(ctx context.Context, log *ExecutionLog) error
	// Get returns the log by ID or ErrExecutionNotFound.
	Get(ctx context.Context, id string) (*ExecutionLog, error)
	// UpdateProgress persists counts for a log that is still RUNNING;
	// a terminal log yields ErrAlreadyFinalized.
	UpdateProgress(ctx context.Context, log *ExecutionLog) error
	// Finalize commits a terminal transition conditional on the stored
	// status still being RUNNING; otherwise ErrAlreadyFinalized.
	Finalize(ctx context.Context, log *ExecutionLog) error
}

// StartParams describe a new archival run
type StartParams struct {
	PolicyID      string
	EntityType    string
	ExecutionDate time.Time
	StartTime     time.Time
}

// Tracker records retention-policy runs through their lifecycle. All
// timestamps are supplied by the caller so tests and schedulers control
// the clock; the tracker itself never reads wall-clock time.
type Tracker struct {
	store  Store
	logger *zap.Logger
}

// NewTracker creates an execution tracker
func NewTracker(store Store, logger *zap.Logger) *Tracker {
	return &Tracker{store: store, logger: logger}
}

// Start records the beginning of a run in RUNNING state with all counts
// at zero. A run already recorded for the same policy and day is a
// conflict (ErrDuplicateExecution), not an overwrite.
func (t *Tracker) Start(ctx context.Context, params StartParams) (*ExecutionLog, error) {
	if params.PolicyID == "" {
		return nil, &InvariantViolationError{Invariant: "policy_id_required", Detail: "empty policy id"}
	}
	if params.EntityType == "" {
		return nil, &InvariantViolationError{Invariant: "entity_type_required", Detail: "empty entity type"}
	}

	now := params.StartTime
	log := &ExecutionLog{
		ID:            uuid.New().String(),
		PolicyID:      params.PolicyID,
		ExecutionDate: ExecutionDay(params.ExecutionDate),
		EntityType:    params.EntityType,
		StartTime:     params.StartTime,
		Status:        StatusRunning,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := log.Validate(); err != nil {
		return nil, err
	}

	if err := t.store.Insert(ctx, log); err != nil {
		return nil, fmt.Errorf("recording execution start: %w", err)
	}

	t.logger.Info("Archival execution started",
		zap.String("log_id", log.ID),
		zap.String("policy_id", log.PolicyID),
		zap.String("entity_type", log.EntityType),
		zap.Time("execution_date", log.ExecutionDate),
	)

	return log, nil
}

// RecordProgress updates partial counts while the run is in flight. The
// counts must already satisfy the accounting invariants; they are kept
// verbatim if the run later fails.
func (t *Tracker) RecordProgress(ctx context.Context, logID string, processed, archived, failed int64) (*ExecutionLog, error) {
	log, err := t.store.Get(ctx, logID)
	if err != nil {
		return nil, err
	}
	if log.Status.Terminal() {
		return nil, ErrAlreadyFinalized
	}

	updated := log.Clone()
	updated.RecordsProcessed = processed
	updated.RecordsArchived = archived
	updated.RecordsFailed = failed

	if err := updated.Validate(); err != nil {
		return nil, err
	}

	if err := t.store.UpdateProgress(ctx, updated); err != nil {
		return nil, fmt.Errorf("recording execution progress: %w", err)
	}

	return updated, nil
}

// Complete finalizes a run as COMPLETED. recordsProcessed is derived as
// archived + failed, so the accounting invariant holds by construction;
// the remaining invariants are still checked before the store commit.
func (t *Tracker) Complete(ctx context.Context, logID string, archived, failed int64, endTime time.Time) (*ExecutionLog, error) {
	log, err := t.store.Get(ctx, logID)
	if err != nil {
		return nil, err
	}
	if log.Status.Terminal() {
		return nil, ErrAlreadyFinalized
	}

	updated := log.Clone()
	updated.RecordsArchived = archived
	updated.RecordsFailed = failed
	updated.RecordsProcessed = archived + failed
	updated.Status = StatusCompleted
	updated.EndTime = &endTime
	duration := int64(endTime.Sub(log.StartTime).Seconds())
	updated.DurationSeconds = &duration
	updated.UpdatedAt = endTime

	if err := updated.Validate(); err != nil {
		return nil, err
	}

	if err := t.store.Finalize(ctx, updated); err != nil {
		return nil, fmt.Errorf("finalizing execution: %w", err)
	}

	t.logger.Info("Archival execution completed",
		zap.String("log_id", updated.ID),
		zap.String("policy_id", updated.PolicyID),
		zap.Int64("records_processed", updated.RecordsProcessed),
		zap.Int64("records_archived", updated.RecordsArchived),
		zap.Int64("records_failed", updated.RecordsFailed),
		zap.Int64p("duration_seconds", updated.DurationSeconds),
	)

	return updated, nil
}

// Fail finalizes a run as FAILED with a required error message. Counts
// recorded before the failure are retained and must still satisfy the
// accounting invariants.
func (t *Tracker) Fail(ctx context.Context, logID string, errorMessage string, endTime time.Time) (*ExecutionLog, error) {
	if errorMessage == "" {
		return nil, &InvariantViolationError{Invariant: "failed_has_error_message", Detail: logID}
	}

	log, err := t.store.Get(ctx, logID)
	if err != nil {
		return nil, err
	}
	if log.Status.Terminal() {
		return nil, ErrAlreadyFinalized
	}

	updated := log.Clone()
	updated.Status = StatusFailed
	updated.ErrorMessage = &errorMessage
	updated.EndTime = &endTime
	duration := int64(endTime.Sub(log.StartTime).Seconds())
	updated.DurationSeconds = &duration
	updated.UpdatedAt = endTime

	if err := updated.Validate(); err != nil {
		return nil, err
	}

	if err := t.store.Finalize(ctx, updated); err != nil {
		return nil, fmt.Errorf("finalizing execution: %w", err)
	}

	t.logger.Warn("Archival execution failed",
		zap.String("log_id", updated.ID),
		zap.String("policy_id", updated.PolicyID),
		zap.String("error_message", errorMessage),
	)

	return updated, nil
}

// Get returns the execution log by ID
func (t *Tracker) Get(ctx context.Context, logID string) (*ExecutionLog, error) {
	return t.store.Get(ctx, logID)
}
