package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepmind/prepmind-backend/internal/config"
	"github.com/prepmind/prepmind-backend/internal/model"
	"github.com/prepmind/prepmind-backend/internal/repository"
)

// ResultService is the result persistence gateway: it writes finished
// attempts (result + leaderboard copy) and serves them back for review,
// history and dashboard views.
type ResultService struct {
	resultRepo  *repository.ResultRepository
	leaderboard *LeaderboardService
	rdb         *redis.Client
	cacheTTL    time.Duration
	log         zerolog.Logger
}

// NewResultService creates a new ResultService. rdb may be nil in tests to
// disable the stats cache.
func NewResultService(resultRepo *repository.ResultRepository, leaderboard *LeaderboardService, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *ResultService {
	return &ResultService{
		resultRepo:  resultRepo,
		leaderboard: leaderboard,
		rdb:         rdb,
		cacheTTL:    cfg.LeaderboardCacheTTL,
		log:         log.With().Str("component", "result_service").Logger(),
	}
}

// SaveResult persists a finished attempt and its leaderboard entry
// atomically, then invalidates the caches the new row makes stale.
// Implements the SessionService gateway.
func (s *ResultService) SaveResult(ctx context.Context, result *model.ExamResult, entry *model.LeaderboardEntry) (uuid.UUID, error) {
	id, err := s.resultRepo.SaveWithEntry(ctx, result, entry)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save result: %w", err)
	}
	s.leaderboard.Invalidate(ctx)
	s.invalidateStats(ctx, result.UserID)
	return id, nil
}

// GetForUser returns a full result for the review page, owner-checked.
func (s *ResultService) GetForUser(ctx context.Context, id uuid.UUID, userID string) (*model.ExamResult, error) {
	return s.resultRepo.GetByID(ctx, id, userID)
}

// ListForUser returns the user's attempt history, newest first.
func (s *ResultService) ListForUser(ctx context.Context, userID string, page, perPage int) ([]model.ResultSummary, int64, error) {
	return s.resultRepo.ListByUser(ctx, userID, page, perPage)
}

// StatsForUser aggregates the user's history for the dashboard, cache-first.
// The cache is invalidated whenever the user submits a new attempt.
func (s *ResultService) StatsForUser(ctx context.Context, userID string) (*model.UserStats, error) {
	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, config.CacheKey.UserStatsKey(userID)).Bytes()
		if err == nil {
			stats := &model.UserStats{}
			if json.Unmarshal(data, stats) == nil {
				return stats, nil
			}
		}
	}

	stats, err := s.resultRepo.StatsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(stats); err == nil {
			if err := s.rdb.Set(ctx, config.CacheKey.UserStatsKey(userID), data, s.cacheTTL).Err(); err != nil {
				s.log.Debug().Err(err).Msg("Stats cache write failed")
			}
		}
	}
	return stats, nil
}

func (s *ResultService) invalidateStats(ctx context.Context, userID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, config.CacheKey.UserStatsKey(userID)).Err(); err != nil {
		s.log.Debug().Err(err).Msg("Stats cache invalidation failed")
	}
}
