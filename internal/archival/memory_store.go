package archival

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store. It mirrors the semantics of the
// SQL store — key uniqueness on insert, conditional terminal transition —
// and backs unit tests and embedded deployments without a database.
type MemoryStore struct {
	mu    sync.Mutex
	logs  map[string]*ExecutionLog
	byKey map[string]string
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs:  make(map[string]*ExecutionLog),
		byKey: make(map[string]string),
	}
}

func executionKey(policyID string, log *ExecutionLog) string {
	return fmt.Sprintf("%s@%s", policyID, log.ExecutionDate.Format("2006-01-02"))
}

// Insert creates a RUNNING log, enforcing one run per policy per day
func (s *MemoryStore) Insert(ctx context.Context, log *ExecutionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := executionKey(log.PolicyID, log)
	if _, exists := s.byKey[key]; exists {
		return ErrDuplicateExecution
	}

	s.logs[log.ID] = log.Clone()
	s.byKey[key] = log.ID
	return nil
}

// Get returns a copy of the log by ID
func (s *MemoryStore) Get(ctx context.Context, id string) (*ExecutionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, exists := s.logs[id]
	if !exists {
		return nil, ErrExecutionNotFound
	}
	return log.Clone(), nil
}

// UpdateProgress persists counts for a still-RUNNING log
func (s *MemoryStore) UpdateProgress(ctx context.Context, log *ExecutionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.logs[log.ID]
	if !exists {
		return ErrExecutionNotFound
	}
	if stored.Status.Terminal() {
		return ErrAlreadyFinalized
	}

	s.logs[log.ID] = log.Clone()
	return nil
}

// All returns copies of every log, ordered by start time then ID
func (s *MemoryStore) All() []*ExecutionLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs := make([]*ExecutionLog, 0, len(s.logs))
	for _, log := range s.logs {
		logs = append(logs, log.Clone())
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].StartTime.Equal(logs[j].StartTime) {
			return logs[i].StartTime.Before(logs[j].StartTime)
		}
		return logs[i].ID < logs[j].ID
	})
	return logs
}

// Finalize commits a terminal transition only if the stored log is still
// RUNNING
func (s *MemoryStore) Finalize(ctx context.Context, log *ExecutionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.logs[log.ID]
	if !exists {
		return ErrExecutionNotFound
	}
	if stored.Status.Terminal() {
		return ErrAlreadyFinalized
	}

	s.logs[log.ID] = log.Clone()
	return nil
}
