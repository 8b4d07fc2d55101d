package config

import (
	"fmt"
	"strings"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuestionSetKey returns the cache key for a generated question set.
// Topic is lowercased so "C Pointers" and "c pointers" share one entry.
func (r *CacheKeyStruct) QuestionSetKey(topic string, count int) string {
	return fmt.Sprintf("questions:%s:%d", strings.ToLower(strings.TrimSpace(topic)), count)
}

// LeaderboardKey returns the cache key for the rendered leaderboard top-N.
func (r *CacheKeyStruct) LeaderboardKey(limit int) string {
	return fmt.Sprintf("leaderboard:top:%d", limit)
}

// UserStatsKey returns the cache key for a user's dashboard statistics.
func (r *CacheKeyStruct) UserStatsKey(uid string) string {
	return fmt.Sprintf("user:%s:stats", uid)
}

var CacheKey = NewCacheKeyStruct()
