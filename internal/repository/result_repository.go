package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepmind/prepmind-backend/internal/model"
)

// ResultRepository handles exam result data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// SaveWithEntry inserts the exam result and its reduced leaderboard copy in
// one transaction, so a submission is either fully recorded or not at all.
func (r *ResultRepository) SaveWithEntry(ctx context.Context, result *model.ExamResult, entry *model.LeaderboardEntry) (uuid.UUID, error) {
	questions, err := json.Marshal(result.Questions)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal questions: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO exam_results
		   (user_id, topic, score, total_questions, correct_answers, ai_feedback, weak_areas, questions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		result.UserID, result.Topic, result.Score, result.TotalQuestions,
		result.CorrectAnswers, result.AIFeedback, result.WeakAreas, questions,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert result: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO leaderboard_entries (user_id, name, avatar, score, topic)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		entry.UserID, entry.Name, entry.Avatar, entry.Score, entry.Topic,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert leaderboard entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit tx: %w", err)
	}
	return result.ID, nil
}

// GetByID retrieves a full result owned by the given user.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID, userID string) (*model.ExamResult, error) {
	res := &model.ExamResult{}
	var questions []byte

	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, topic, score, total_questions, correct_answers,
		        ai_feedback, weak_areas, questions, created_at
		 FROM exam_results
		 WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&res.ID, &res.UserID, &res.Topic, &res.Score, &res.TotalQuestions,
		&res.CorrectAnswers, &res.AIFeedback, &res.WeakAreas, &questions, &res.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(questions, &res.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return res, nil
}

// ListByUser retrieves a user's attempt history, newest first, paginated.
func (r *ResultRepository) ListByUser(ctx context.Context, userID string, page, perPage int) ([]model.ResultSummary, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_results WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT id, topic, score, total_questions, correct_answers, created_at
		 FROM exam_results
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, userID, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var summaries []model.ResultSummary
	for rows.Next() {
		var sum model.ResultSummary
		if err := rows.Scan(&sum.ID, &sum.Topic, &sum.Score, &sum.TotalQuestions,
			&sum.CorrectAnswers, &sum.CreatedAt); err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, total, rows.Err()
}

// StatsByUser aggregates a user's history for the dashboard and analytics
// views: attempt count, average/best score, and per-topic breakdown.
func (r *ResultRepository) StatsByUser(ctx context.Context, userID string) (*model.UserStats, error) {
	stats := &model.UserStats{}

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(AVG(score), 0),
		        COALESCE(MAX(score), 0)
		 FROM exam_results
		 WHERE user_id = $1`, userID,
	).Scan(&stats.Attempts, &stats.AverageScore, &stats.BestScore)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT topic, COUNT(*), AVG(score)
		 FROM exam_results
		 WHERE user_id = $1
		 GROUP BY topic
		 ORDER BY COUNT(*) DESC, topic ASC
		 LIMIT 20`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ts model.TopicStats
		if err := rows.Scan(&ts.Topic, &ts.Attempts, &ts.AverageScore); err != nil {
			return nil, err
		}
		stats.Topics = append(stats.Topics, ts)
	}
	return stats, rows.Err()
}
