package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SanathAishu/clinic-administration-sub006/internal/archival"
)

// ErrPolicyNotFound reports an unknown retention policy ID
var ErrPolicyNotFound = errors.New("retention policy not found")

// PolicyStore persists retention policies and their cumulative
// execution bookkeeping
type PolicyStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPolicyStore creates a new retention policy store
func NewPolicyStore(db *gorm.DB, logger *zap.Logger) *PolicyStore {
	return &PolicyStore{db: db, logger: logger}
}

// Create inserts a new retention policy
func (s *PolicyStore) Create(ctx context.Context, policy *archival.RetentionPolicy) error {
	policy.CreatedAt = time.Now()
	policy.UpdatedAt = policy.CreatedAt

	if err := s.db.WithContext(ctx).Create(policy).Error; err != nil {
		return fmt.Errorf("failed to create retention policy: %w", err)
	}

	s.logger.Info("Retention policy created",
		zap.String("policy_id", policy.ID),
		zap.String("entity_type", policy.EntityType),
		zap.Int("retention_days", policy.RetentionDays),
	)
	return nil
}

// Get retrieves a retention policy by ID
func (s *PolicyStore) Get(ctx context.Context, id string) (*archival.RetentionPolicy, error) {
	var policy archival.RetentionPolicy
	if err := s.db.WithContext(ctx).First(&policy, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to get retention policy: %w", err)
	}
	return &policy, nil
}

// ListEnabled returns all enabled retention policies
func (s *PolicyStore) ListEnabled(ctx context.Context) ([]archival.RetentionPolicy, error) {
	var policies []archival.RetentionPolicy
	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Order("entity_type").Find(&policies).Error; err != nil {
		return nil, fmt.Errorf("failed to list retention policies: %w", err)
	}
	return policies, nil
}

// RecordExecution updates a policy's bookkeeping after a completed run:
// last execution timestamp and the cumulative archived count
func (s *PolicyStore) RecordExecution(ctx context.Context, policyID string, executedAt time.Time, archived int64) error {
	result := s.db.WithContext(ctx).Model(&archival.RetentionPolicy{}).
		Where("id = ?", policyID).
		Updates(map[string]interface{}{
			"last_execution":   executedAt,
			"records_archived": gorm.Expr("records_archived + ?", archived),
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to record policy execution: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPolicyNotFound
	}
	return nil
}
