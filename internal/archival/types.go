// Package archival tracks retention-policy execution runs as an
// invariant-checked lifecycle: RUNNING, then exactly one transition to
// COMPLETED or FAILED. At most one run is recorded per policy per day.
package archival

import (
	"fmt"
	"time"
)

// ExecutionStatus is the lifecycle state of an archival run
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "RUNNING"
	StatusCompleted ExecutionStatus = "COMPLETED"
	StatusFailed    ExecutionStatus = "FAILED"
)

// ParseExecutionStatus parses a status from its string form; unknown
// values are rejected
func ParseExecutionStatus(s string) (ExecutionStatus, error) {
	switch ExecutionStatus(s) {
	case StatusRunning, StatusCompleted, StatusFailed:
		return ExecutionStatus(s), nil
	}
	return "", fmt.Errorf("unknown execution status: %q", s)
}

// Terminal reports whether the status admits no further transitions
func (s ExecutionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RetentionPolicy governs how long records of an entity type are kept
// before being archived, and accumulates execution bookkeeping.
type RetentionPolicy struct {
	ID              string     `json:"id" gorm:"primarykey" db:"id"`
	EntityType      string     `json:"entity_type" gorm:"not null;uniqueIndex" db:"entity_type"`
	RetentionDays   int        `json:"retention_days" gorm:"not null" db:"retention_days"`
	GracePeriodDays int        `json:"grace_period_days" gorm:"not null" db:"grace_period_days"`
	ArchivalAction  string     `json:"archival_action" gorm:"not null" db:"archival_action"`
	Enabled         bool       `json:"enabled" gorm:"not null;default:true" db:"enabled"`
	LastExecution   *time.Time `json:"last_execution,omitempty" db:"last_execution"`
	RecordsArchived int64      `json:"records_archived" gorm:"not null;default:0" db:"records_archived"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName sets the gorm table name for retention policies
func (RetentionPolicy) TableName() string {
	return "retention_policies"
}

// ExecutionLog is the audited record of one archival run. It is created
// RUNNING and mutated exactly once to a terminal status.
type ExecutionLog struct {
	ID               string          `json:"id" db:"id"`
	PolicyID         string          `json:"policy_id" db:"policy_id"`
	ExecutionDate    time.Time       `json:"execution_date" db:"execution_date"`
	EntityType       string          `json:"entity_type" db:"entity_type"`
	RecordsProcessed int64           `json:"records_processed" db:"records_processed"`
	RecordsArchived  int64           `json:"records_archived" db:"records_archived"`
	RecordsFailed    int64           `json:"records_failed" db:"records_failed"`
	StartTime        time.Time       `json:"start_time" db:"start_time"`
	EndTime          *time.Time      `json:"end_time,omitempty" db:"end_time"`
	DurationSeconds  *int64          `json:"duration_seconds,omitempty" db:"duration_seconds"`
	Status           ExecutionStatus `json:"status" db:"status"`
	ErrorMessage     *string         `json:"error_message,omitempty" db:"error_message"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate checks the log's invariants. Every mutation is validated
// before being committed; a violation rejects the transition and leaves
// the stored log in its prior state.
func (l *ExecutionLog) Validate() error {
	if l.RecordsProcessed < 0 || l.RecordsArchived < 0 || l.RecordsFailed < 0 {
		return &InvariantViolationError{
			Invariant: "non_negative_counts",
			Detail: fmt.Sprintf("processed=%d archived=%d failed=%d",
				l.RecordsProcessed, l.RecordsArchived, l.RecordsFailed),
		}
	}
	if l.RecordsArchived > l.RecordsProcessed {
		return &InvariantViolationError{
			Invariant: "archived_within_processed",
			Detail:    fmt.Sprintf("archived=%d processed=%d", l.RecordsArchived, l.RecordsProcessed),
		}
	}
	if l.RecordsProcessed != l.RecordsArchived+l.RecordsFailed {
		return &InvariantViolationError{
			Invariant: "processed_accounts_for_all",
			Detail: fmt.Sprintf("processed=%d archived=%d failed=%d",
				l.RecordsProcessed, l.RecordsArchived, l.RecordsFailed),
		}
	}
	if _, err := ParseExecutionStatus(string(l.Status)); err != nil {
		return &InvariantViolationError{Invariant: "known_status", Detail: string(l.Status)}
	}
	switch {
	case l.Status == StatusRunning && l.EndTime != nil:
		return &InvariantViolationError{Invariant: "running_has_no_end_time", Detail: l.ID}
	case l.Status.Terminal() && l.EndTime == nil:
		return &InvariantViolationError{Invariant: "terminal_has_end_time", Detail: l.ID}
	}
	if l.EndTime != nil && l.EndTime.Before(l.StartTime) {
		return &InvariantViolationError{
			Invariant: "end_after_start",
			Detail:    fmt.Sprintf("start=%s end=%s", l.StartTime, l.EndTime),
		}
	}
	if l.Status == StatusFailed && (l.ErrorMessage == nil || *l.ErrorMessage == "") {
		return &InvariantViolationError{Invariant: "failed_has_error_message", Detail: l.ID}
	}
	return nil
}

// Clone returns a deep copy of the log
func (l *ExecutionLog) Clone() *ExecutionLog {
	clone := *l
	if l.EndTime != nil {
		end := *l.EndTime
		clone.EndTime = &end
	}
	if l.DurationSeconds != nil {
		duration := *l.DurationSeconds
		clone.DurationSeconds = &duration
	}
	if l.ErrorMessage != nil {
		message := *l.ErrorMessage
		clone.ErrorMessage = &message
	}
	return &clone
}

// ExecutionDay normalizes a timestamp to its UTC calendar day, the
// granularity at which runs are deduplicated
func ExecutionDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
