package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepmind/prepmind-backend/internal/config"
	"github.com/prepmind/prepmind-backend/internal/model"
	"github.com/prepmind/prepmind-backend/internal/repository"
)

// LeaderboardService serves the ranked top-N through a short-lived Redis
// cache. The underlying collection is append-only, so a stale read is only
// ever missing the newest entries.
type LeaderboardService struct {
	repo     *repository.LeaderboardRepository
	rdb      *redis.Client
	cacheTTL time.Duration
	limit    int
	log      zerolog.Logger
}

// NewLeaderboardService creates a new LeaderboardService. rdb may be nil in
// tests to disable caching.
func NewLeaderboardService(repo *repository.LeaderboardRepository, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *LeaderboardService {
	return &LeaderboardService{
		repo:     repo,
		rdb:      rdb,
		cacheTTL: cfg.LeaderboardCacheTTL,
		limit:    cfg.LeaderboardLimit,
		log:      log.With().Str("component", "leaderboard_service").Logger(),
	}
}

// Top returns the highest-scoring entries, cache-first.
func (s *LeaderboardService) Top(ctx context.Context) ([]model.LeaderboardEntry, error) {
	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, config.CacheKey.LeaderboardKey(s.limit)).Bytes()
		if err == nil {
			var entries []model.LeaderboardEntry
			if json.Unmarshal(data, &entries) == nil {
				return entries, nil
			}
		}
	}

	entries, err := s.repo.Top(ctx, s.limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}

	if s.rdb != nil {
		if data, err := json.Marshal(entries); err == nil {
			if err := s.rdb.Set(ctx, config.CacheKey.LeaderboardKey(s.limit), data, s.cacheTTL).Err(); err != nil {
				s.log.Debug().Err(err).Msg("Leaderboard cache write failed")
			}
		}
	}
	return entries, nil
}

// Invalidate drops the cached top-N after a new entry is appended.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, config.CacheKey.LeaderboardKey(s.limit)).Err(); err != nil {
		s.log.Debug().Err(err).Msg("Leaderboard cache invalidation failed")
	}
}
