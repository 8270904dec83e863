// Package scheduler runs retention policies on a cron schedule. Each
// enabled policy gets at most one run per calendar day; the execution
// tracker's uniqueness guarantee makes overlapping scheduler instances
// safe, the loser of the insert race simply skips.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/SanathAishu/clinic-administration-sub006/internal/archival"
	"github.com/SanathAishu/clinic-administration-sub006/internal/audit"
	"github.com/SanathAishu/clinic-administration-sub006/internal/metrics"
)

// Archiver moves expired rows of an entity type and reports counts
type Archiver interface {
	Archive(ctx context.Context, entityType string, cutoff time.Time) (archived, failed int64, err error)
}

// PolicySource yields the policies to run and records their outcomes
type PolicySource interface {
	ListEnabled(ctx context.Context) ([]archival.RetentionPolicy, error)
	RecordExecution(ctx context.Context, policyID string, executedAt time.Time, archived int64) error
}

// Scheduler drives retention runs via cron
type Scheduler struct {
	cron      *cron.Cron
	policies  PolicySource
	archiver  Archiver
	tracker   *archival.Tracker
	audit     *audit.Logger
	collector *metrics.Collector
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a scheduler. The clock defaults to time.Now and is
// overridable for tests.
func New(policies PolicySource, archiver Archiver, tracker *archival.Tracker, auditLog *audit.Logger, collector *metrics.Collector, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		policies:  policies,
		archiver:  archiver,
		tracker:   tracker,
		audit:     auditLog,
		collector: collector,
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers the retention job under the given cron expression and
// starts the cron loop
func (s *Scheduler) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		s.RunAll(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Retention scheduler started", zap.String("schedule", schedule))
	return nil
}

// Stop halts the cron loop and waits for in-flight jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Retention scheduler stopped")
}

// RunAll executes every enabled policy once. One policy failing does
// not stop the others; each run is tracked and audited independently.
func (s *Scheduler) RunAll(ctx context.Context) {
	policies, err := s.policies.ListEnabled(ctx)
	if err != nil {
		s.logger.Error("Failed to list retention policies", zap.Error(err))
		return
	}

	for _, policy := range policies {
		s.runPolicy(ctx, policy)
	}
}

func (s *Scheduler) runPolicy(ctx context.Context, policy archival.RetentionPolicy) {
	startTime := s.now()

	log, err := s.tracker.Start(ctx, archival.StartParams{
		PolicyID:      policy.ID,
		EntityType:    policy.EntityType,
		ExecutionDate: startTime,
		StartTime:     startTime,
	})
	if errors.Is(err, archival.ErrDuplicateExecution) {
		s.audit.ArchivalSkipped(policy.ID, archival.ExecutionDay(startTime))
		s.logger.Info("Skipping policy already executed today",
			zap.String("policy_id", policy.ID))
		return
	}
	if err != nil {
		s.logger.Error("Failed to start archival execution",
			zap.String("policy_id", policy.ID), zap.Error(err))
		return
	}

	s.audit.ArchivalStarted(log.ID, policy.ID, policy.EntityType, log.ExecutionDate)

	// Rows older than retention plus grace are eligible
	cutoff := startTime.AddDate(0, 0, -(policy.RetentionDays + policy.GracePeriodDays))

	archived, failed, archiveErr := s.archiver.Archive(ctx, policy.EntityType, cutoff)
	endTime := s.now()

	if archiveErr != nil {
		failedLog, failErr := s.tracker.Fail(ctx, log.ID, archiveErr.Error(), endTime)
		if failErr != nil {
			s.logger.Error("Failed to record archival failure",
				zap.String("log_id", log.ID), zap.Error(failErr))
			return
		}
		s.audit.ArchivalFailed(failedLog.ID, archiveErr.Error())
		s.collector.RecordArchivalRun(string(archival.StatusFailed), 0, endTime.Sub(startTime))
		return
	}

	completed, err := s.tracker.Complete(ctx, log.ID, archived, failed, endTime)
	if err != nil {
		s.logger.Error("Failed to record archival completion",
			zap.String("log_id", log.ID), zap.Error(err))
		return
	}

	s.audit.ArchivalCompleted(completed.ID, completed.RecordsArchived,
		completed.RecordsFailed, *completed.DurationSeconds)
	s.collector.RecordArchivalRun(string(archival.StatusCompleted), archived, endTime.Sub(startTime))

	if err := s.policies.RecordExecution(ctx, policy.ID, endTime, archived); err != nil {
		s.logger.Error("Failed to update policy bookkeeping",
			zap.String("policy_id", policy.ID), zap.Error(err))
	}
}
