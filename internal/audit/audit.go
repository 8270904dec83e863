// Package audit writes structured audit events for compliance-relevant
// actions. Events are emitted as structured log entries so they can be
// shipped to the same sink as ordinary logs and filtered by the
// audit marker field.
package audit

import (
	"time"

	"go.uber.org/zap"
)

// Event types recorded by the service
const (
	EventArchivalStarted   = "archival.execution.started"
	EventArchivalCompleted = "archival.execution.completed"
	EventArchivalFailed    = "archival.execution.failed"
	EventArchivalSkipped   = "archival.execution.skipped"
	EventViolationDetected = "compliance.violation.detected"
	EventClassificationRun = "inventory.classification.run"
)

// Logger emits audit events
type Logger struct {
	log *zap.Logger
}

// NewLogger wraps a zap logger with the audit marker
func NewLogger(log *zap.Logger) *Logger {
	return &Logger{log: log.With(zap.String("log_type", "audit"))}
}

// ArchivalStarted records the beginning of an archival execution
func (a *Logger) ArchivalStarted(executionID, policyID, entityType string, executionDate time.Time) {
	a.log.Info(EventArchivalStarted,
		zap.String("execution_id", executionID),
		zap.String("policy_id", policyID),
		zap.String("entity_type", entityType),
		zap.Time("execution_date", executionDate),
	)
}

// ArchivalCompleted records a successful archival execution
func (a *Logger) ArchivalCompleted(executionID string, archived, failed int64, duration int64) {
	a.log.Info(EventArchivalCompleted,
		zap.String("execution_id", executionID),
		zap.Int64("records_archived", archived),
		zap.Int64("records_failed", failed),
		zap.Int64("duration_seconds", duration),
	)
}

// ArchivalFailed records a failed archival execution
func (a *Logger) ArchivalFailed(executionID, reason string) {
	a.log.Warn(EventArchivalFailed,
		zap.String("execution_id", executionID),
		zap.String("reason", reason),
	)
}

// ArchivalSkipped records a run suppressed by the duplicate guard
func (a *Logger) ArchivalSkipped(policyID string, executionDate time.Time) {
	a.log.Info(EventArchivalSkipped,
		zap.String("policy_id", policyID),
		zap.Time("execution_date", executionDate),
	)
}

// ViolationDetected records a compliance rate falling below its control limit
func (a *Logger) ViolationDetected(violationID, metricName, severity string, value, lcl float64, date time.Time) {
	a.log.Warn(EventViolationDetected,
		zap.String("violation_id", violationID),
		zap.String("metric_name", metricName),
		zap.String("severity", severity),
		zap.Float64("value", value),
		zap.Float64("lower_control_limit", lcl),
		zap.Time("violation_date", date),
	)
}

// ClassificationRun records an ABC classification pass
func (a *Logger) ClassificationRun(items, moved int) {
	a.log.Info(EventClassificationRun,
		zap.Int("items_classified", items),
		zap.Int("classification_changes", moved),
	)
}
