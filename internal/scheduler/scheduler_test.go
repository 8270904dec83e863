package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SanathAishu/clinic-administration-sub006/internal/archival"
	"github.com/SanathAishu/clinic-administration-sub006/internal/audit"
	"github.com/SanathAishu/clinic-administration-sub006/internal/metrics"
)

type stubPolicies struct {
	policies []archival.RetentionPolicy
	recorded map[string]int64
}

func (s *stubPolicies) ListEnabled(_ context.Context) ([]archival.RetentionPolicy, error) {
	return s.policies, nil
}

func (s *stubPolicies) RecordExecution(_ context.Context, policyID string, _ time.Time, archived int64) error {
	if s.recorded == nil {
		s.recorded = make(map[string]int64)
	}
	s.recorded[policyID] += archived
	return nil
}

type stubArchiver struct {
	archived int64
	err      error
	cutoffs  map[string]time.Time
}

func (s *stubArchiver) Archive(_ context.Context, entityType string, cutoff time.Time) (int64, int64, error) {
	if s.cutoffs == nil {
		s.cutoffs = make(map[string]time.Time)
	}
	s.cutoffs[entityType] = cutoff
	if s.err != nil {
		return 0, 0, s.err
	}
	return s.archived, 0, nil
}

func newTestScheduler(t *testing.T, policies *stubPolicies, archiver *stubArchiver, store archival.Store, now time.Time) *Scheduler {
	t.Helper()
	logger := zap.NewNop()
	sched := New(policies, archiver, archival.NewTracker(store, logger),
		audit.NewLogger(logger), metrics.NewCollector(), logger)
	sched.now = func() time.Time { return now }
	return sched
}

func testPolicy(entityType string, retentionDays, graceDays int) archival.RetentionPolicy {
	return archival.RetentionPolicy{
		ID:              uuid.New().String(),
		EntityType:      entityType,
		RetentionDays:   retentionDays,
		GracePeriodDays: graceDays,
		ArchivalAction:  "ARCHIVE",
		Enabled:         true,
	}
}

func TestSchedulerRunAll(t *testing.T) {
	now := time.Date(2025, 6, 15, 2, 0, 0, 0, time.UTC)

	t.Run("successful run completes the execution log", func(t *testing.T) {
		policy := testPolicy("appointments", 365, 30)
		policies := &stubPolicies{policies: []archival.RetentionPolicy{policy}}
		archiver := &stubArchiver{archived: 120}
		store := archival.NewMemoryStore()

		sched := newTestScheduler(t, policies, archiver, store, now)
		sched.RunAll(context.Background())

		logs := store.All()
		require.Len(t, logs, 1)
		log := logs[0]
		assert.Equal(t, archival.StatusCompleted, log.Status)
		assert.Equal(t, int64(120), log.RecordsArchived)
		assert.Equal(t, int64(0), log.RecordsFailed)
		assert.Equal(t, int64(120), log.RecordsProcessed)
		require.NotNil(t, log.EndTime)

		assert.Equal(t, int64(120), policies.recorded[policy.ID])
	})

	t.Run("cutoff includes the grace period", func(t *testing.T) {
		policy := testPolicy("invoices", 365, 30)
		policies := &stubPolicies{policies: []archival.RetentionPolicy{policy}}
		archiver := &stubArchiver{}
		store := archival.NewMemoryStore()

		sched := newTestScheduler(t, policies, archiver, store, now)
		sched.RunAll(context.Background())

		expected := now.AddDate(0, 0, -395)
		assert.Equal(t, expected, archiver.cutoffs["invoices"])
	})

	t.Run("archive failure records a failed execution", func(t *testing.T) {
		policy := testPolicy("lab_results", 180, 0)
		policies := &stubPolicies{policies: []archival.RetentionPolicy{policy}}
		archiver := &stubArchiver{err: errors.New("archive table missing")}
		store := archival.NewMemoryStore()

		sched := newTestScheduler(t, policies, archiver, store, now)
		sched.RunAll(context.Background())

		logs := store.All()
		require.Len(t, logs, 1)
		assert.Equal(t, archival.StatusFailed, logs[0].Status)
		require.NotNil(t, logs[0].ErrorMessage)
		assert.Equal(t, "archive table missing", *logs[0].ErrorMessage)

		assert.Empty(t, policies.recorded)
	})

	t.Run("second run on the same day is skipped", func(t *testing.T) {
		policy := testPolicy("appointments", 365, 30)
		policies := &stubPolicies{policies: []archival.RetentionPolicy{policy}}
		archiver := &stubArchiver{archived: 10}
		store := archival.NewMemoryStore()

		sched := newTestScheduler(t, policies, archiver, store, now)
		sched.RunAll(context.Background())
		sched.RunAll(context.Background())

		assert.Len(t, store.All(), 1)
		assert.Equal(t, int64(10), policies.recorded[policy.ID])
	})

	t.Run("one failing policy does not stop the rest", func(t *testing.T) {
		broken := testPolicy("unknown_entity", 90, 0)
		healthy := testPolicy("appointments", 365, 30)
		policies := &stubPolicies{policies: []archival.RetentionPolicy{broken, healthy}}
		store := archival.NewMemoryStore()

		// Archiver fails only for the unknown entity
		archiver := &selectiveArchiver{failFor: "unknown_entity", archived: 7}
		logger := zap.NewNop()
		sched := New(policies, archiver, archival.NewTracker(store, logger),
			audit.NewLogger(logger), metrics.NewCollector(), logger)
		sched.now = func() time.Time { return now }

		sched.RunAll(context.Background())

		logs := store.All()
		require.Len(t, logs, 2)
		statuses := map[string]archival.ExecutionStatus{}
		for _, log := range logs {
			statuses[log.EntityType] = log.Status
		}
		assert.Equal(t, archival.StatusFailed, statuses["unknown_entity"])
		assert.Equal(t, archival.StatusCompleted, statuses["appointments"])
	})
}

type selectiveArchiver struct {
	failFor  string
	archived int64
}

func (s *selectiveArchiver) Archive(_ context.Context, entityType string, _ time.Time) (int64, int64, error) {
	if entityType == s.failFor {
		return 0, 0, errors.New("no archive table configured")
	}
	return s.archived, 0, nil
}
