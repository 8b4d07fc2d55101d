package model

import (
	"time"

	"github.com/google/uuid"
)

// LeaderboardEntry is an append-only reduced copy of an exam result used for
// ranking display. Independent record, not a reference to the user's result.
type LeaderboardEntry struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	Score     float64   `json:"score"`
	Topic     string    `json:"topic"`
	CreatedAt time.Time `json:"created_at"`
}
