package service

import (
	"context"

	"github.com/plant-scanner/internal/logging"
	"github.com/plant-scanner/internal/models"
)

// StandingsRepository computes the ranked aggregate from the datastore
type StandingsRepository interface {
	Standings(ctx context.Context) ([]*models.Standing, error)
}

// LeaderboardCache caches computed standings snapshots
type LeaderboardCache interface {
	GetLeaderboard(ctx context.Context) ([]*models.Standing, bool)
	SetLeaderboard(ctx context.Context, standings []*models.Standing) error
}

// LeaderboardService derives ranked standings from all users' collection
// sizes. The computation is a read-only snapshot: it runs concurrently
// with ingestion without locking, and a scan committed mid-computation
// may or may not be reflected.
type LeaderboardService struct {
	standings StandingsRepository
	cache     LeaderboardCache
}

// NewLeaderboardService creates a new leaderboard service. The cache is
// optional; pass nil to always compute live.
func NewLeaderboardService(standings StandingsRepository, cache LeaderboardCache) *LeaderboardService {
	return &LeaderboardService{standings: standings, cache: cache}
}

// Compute returns the users ranked by distinct species collected,
// largest collection first. Results may be served from a short-lived
// cache; cache failures degrade to the live aggregate.
func (s *LeaderboardService) Compute(ctx context.Context) ([]*models.Standing, error) {
	if s.cache != nil {
		if standings, ok := s.cache.GetLeaderboard(ctx); ok {
			return standings, nil
		}
	}

	standings, err := s.standings.Standings(ctx)
	if err != nil {
		return nil, upstream(err)
	}
	if standings == nil {
		standings = []*models.Standing{}
	}

	if s.cache != nil {
		if err := s.cache.SetLeaderboard(ctx, standings); err != nil {
			logging.FromContext(ctx).WithError(err).Warn("Failed to cache leaderboard snapshot")
		}
	}

	return standings, nil
}
