// Package cache provides a Redis-backed cache for expensive analytics
// results, primarily the compliance dashboard.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics/spc"
)

// ErrMiss is returned when the requested key is not cached
var ErrMiss = errors.New("cache: miss")

// DashboardCache stores serialized compliance dashboards with a TTL
type DashboardCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewDashboardCache creates a cache over an existing Redis client
func NewDashboardCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *DashboardCache {
	return &DashboardCache{client: client, ttl: ttl, logger: logger}
}

func dashboardKey(scope string, daysAnalyzed int) string {
	return fmt.Sprintf("compliance:dashboard:%s:%d", scope, daysAnalyzed)
}

// Get retrieves a cached dashboard, returning ErrMiss when absent
func (c *DashboardCache) Get(ctx context.Context, scope string, daysAnalyzed int) (*spc.Dashboard, error) {
	payload, err := c.client.Get(ctx, dashboardKey(scope, daysAnalyzed)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get dashboard: %w", err)
	}

	var dashboard spc.Dashboard
	if err := json.Unmarshal(payload, &dashboard); err != nil {
		// Treat corrupt entries as misses so the caller recomputes
		c.logger.Warn("discarding corrupt dashboard cache entry",
			zap.String("scope", scope), zap.Error(err))
		return nil, ErrMiss
	}
	return &dashboard, nil
}

// Set stores a dashboard under the scope key with the configured TTL
func (c *DashboardCache) Set(ctx context.Context, scope string, daysAnalyzed int, dashboard *spc.Dashboard) error {
	payload, err := json.Marshal(dashboard)
	if err != nil {
		return fmt.Errorf("cache: marshal dashboard: %w", err)
	}
	if err := c.client.Set(ctx, dashboardKey(scope, daysAnalyzed), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set dashboard: %w", err)
	}
	return nil
}

// Invalidate removes the cached dashboard for a scope
func (c *DashboardCache) Invalidate(ctx context.Context, scope string, daysAnalyzed int) error {
	if err := c.client.Del(ctx, dashboardKey(scope, daysAnalyzed)).Err(); err != nil {
		return fmt.Errorf("cache: invalidate dashboard: %w", err)
	}
	return nil
}
