package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamResult is a persisted record of one finished exam attempt.
// Created once at submission time, never mutated afterward.
type ExamResult struct {
	ID             uuid.UUID        `json:"id"`
	UserID         string           `json:"user_id"`
	Topic          string           `json:"topic"`
	Score          float64          `json:"score"`
	TotalQuestions int              `json:"total_questions"`
	CorrectAnswers int              `json:"correct_answers"`
	AIFeedback     string           `json:"ai_feedback"`
	WeakAreas      []string         `json:"weak_areas"`
	Questions      []GradedQuestion `json:"questions"`
	CreatedAt      time.Time        `json:"created_at"`
}

// ResultSummary is a reduced listing row for history/dashboard views.
type ResultSummary struct {
	ID             uuid.UUID `json:"id"`
	Topic          string    `json:"topic"`
	Score          float64   `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	CorrectAnswers int       `json:"correct_answers"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserStats aggregates a user's attempt history for the dashboard.
type UserStats struct {
	Attempts     int          `json:"attempts"`
	AverageScore float64      `json:"average_score"`
	BestScore    float64      `json:"best_score"`
	Topics       []TopicStats `json:"topics"`
}

// TopicStats is the per-topic aggregate inside UserStats.
type TopicStats struct {
	Topic        string  `json:"topic"`
	Attempts     int     `json:"attempts"`
	AverageScore float64 `json:"average_score"`
}
