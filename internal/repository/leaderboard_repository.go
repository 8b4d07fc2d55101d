package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepmind/prepmind-backend/internal/model"
)

// LeaderboardRepository reads the append-only leaderboard collection.
// Writes happen alongside result inserts in ResultRepository.SaveWithEntry.
type LeaderboardRepository struct {
	pool *pgxpool.Pool
}

// NewLeaderboardRepository creates a new LeaderboardRepository.
func NewLeaderboardRepository(pool *pgxpool.Pool) *LeaderboardRepository {
	return &LeaderboardRepository{pool: pool}
}

// Top returns the highest-scoring entries, ties broken by recency.
func (r *LeaderboardRepository) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, name, avatar, score, topic, created_at
		 FROM leaderboard_entries
		 ORDER BY score DESC, created_at DESC
		 LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.Avatar, &e.Score, &e.Topic, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
