package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/plant-scanner/internal/models"
)

// leaderboardKey is the single cache slot for the ranked standings snapshot
const leaderboardKey = "leaderboard:standings"

// CacheService provides the leaderboard snapshot cache. The leaderboard
// is a read-only aggregate, so serving a snapshot up to one TTL old is
// acceptable staleness.
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{
		redis: redis,
		ttl:   ttl,
	}
}

// GetLeaderboard returns the cached standings if present. A miss or a
// cache failure returns (nil, false): callers fall back to the live query.
func (c *CacheService) GetLeaderboard(ctx context.Context) ([]*models.Standing, bool) {
	data, found, err := c.redis.Get(ctx, leaderboardKey)
	if err != nil || !found {
		return nil, false
	}

	var standings []*models.Standing
	if err := json.Unmarshal([]byte(data), &standings); err != nil {
		return nil, false
	}

	return standings, true
}

// SetLeaderboard stores a standings snapshot under the configured TTL
func (c *CacheService) SetLeaderboard(ctx context.Context, standings []*models.Standing) error {
	data, err := json.Marshal(standings)
	if err != nil {
		return fmt.Errorf("failed to marshal standings: %w", err)
	}

	return c.redis.Set(ctx, leaderboardKey, data, c.ttl)
}

// InvalidateLeaderboard drops the cached snapshot
func (c *CacheService) InvalidateLeaderboard(ctx context.Context) error {
	return c.redis.Del(ctx, leaderboardKey)
}
