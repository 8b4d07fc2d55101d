package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepmind/prepmind-backend/internal/ai"
	"github.com/prepmind/prepmind-backend/internal/config"
	"github.com/prepmind/prepmind-backend/internal/model"
)

// Completer is the slice of the AI client the generator needs.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Configured() bool
}

// GeneratorService turns a topic into a list of multiple-choice questions.
// The remote model is untrusted: its output is fence-stripped, parsed and
// shape-validated, and its ids (if any) are discarded.
type GeneratorService struct {
	ai       Completer
	rdb      *redis.Client
	cacheTTL time.Duration
	timeout  time.Duration
	log      zerolog.Logger

	// idSeq hands out locally-unique question ids across the process.
	idSeq atomic.Int64
}

// NewGeneratorService creates a new GeneratorService. rdb may be nil in tests
// to disable the question-set cache.
func NewGeneratorService(completer Completer, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *GeneratorService {
	return &GeneratorService{
		ai:       completer,
		rdb:      rdb,
		cacheTTL: cfg.QuestionCacheTTL,
		timeout:  cfg.GenerateTimeout,
		log:      log.With().Str("component", "generator_service").Logger(),
	}
}

// rawQuestion is the untrusted wire shape coming back from the model.
// A model-supplied id field, if present, is ignored.
type rawQuestion struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Generate produces exactly count questions about topic, or fails.
// Used by the raw proxy endpoint, which mirrors upstream failures as 500s.
func (s *GeneratorService) Generate(ctx context.Context, topic string, count int) ([]model.Question, error) {
	if !s.ai.Configured() {
		return nil, ai.ErrNotConfigured
	}

	if cached := s.cacheGet(ctx, topic, count); cached != nil {
		return s.assignIDs(cached), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := buildGeneratePrompt(topic, count)
	text, err := s.ai.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	var raw []rawQuestion
	if err := json.Unmarshal([]byte(ai.StripCodeFences(text)), &raw); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("model returned no questions")
	}

	questions := make([]model.Question, 0, count)
	for _, r := range raw {
		q := model.Question{
			Text:          r.Text,
			Options:       r.Options,
			CorrectAnswer: r.CorrectAnswer,
			Explanation:   r.Explanation,
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("model output failed validation: %w", err)
		}
		questions = append(questions, q)
		if len(questions) == count {
			break
		}
	}
	if len(questions) < count {
		return nil, fmt.Errorf("model returned %d questions, want %d", len(questions), count)
	}

	s.cacheSet(ctx, topic, count, questions)
	return s.assignIDs(questions), nil
}

// GenerateOrFallback never fails: any upstream or validation failure degrades
// to the bundled fallback bank so callers always receive a usable list.
func (s *GeneratorService) GenerateOrFallback(ctx context.Context, topic string, count int) []model.Question {
	questions, err := s.Generate(ctx, topic, count)
	if err != nil {
		s.log.Warn().Err(err).Str("topic", topic).Int("count", count).
			Msg("Generation failed, serving fallback bank")
		return s.assignIDs(fallbackQuestions(count))
	}
	return questions
}

// assignIDs stamps fresh locally-unique ids onto a copy of the question list.
func (s *GeneratorService) assignIDs(questions []model.Question) []model.Question {
	out := make([]model.Question, len(questions))
	for i, q := range questions {
		q.ID = int(s.idSeq.Add(1))
		out[i] = q
	}
	return out
}

func buildGeneratePrompt(topic string, count int) string {
	return fmt.Sprintf(`Generate %d multiple choice questions about %q.
Return ONLY a raw JSON array. Do not use Markdown notation.
Each object should have:
- text: string (the question)
- options: string[] (array of 4 options)
- correctAnswer: number (0-3 index of the correct option)
- explanation: string (brief explanation)
`, count, topic)
}

// ─── Question-set cache ─────────────────────────────────────────────────────
// Generated sets are cached per (topic, count) so repeated attempts on a hot
// topic do not burn model calls. Ids are stamped after cache retrieval, so
// every session still gets unique ids.

func (s *GeneratorService) cacheGet(ctx context.Context, topic string, count int) []model.Question {
	if s.rdb == nil {
		return nil
	}
	data, err := s.rdb.Get(ctx, config.CacheKey.QuestionSetKey(topic, count)).Bytes()
	if err != nil {
		return nil
	}
	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil
	}
	return questions
}

func (s *GeneratorService) cacheSet(ctx context.Context, topic string, count int, questions []model.Question) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(questions)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.QuestionSetKey(topic, count), data, s.cacheTTL).Err(); err != nil {
		s.log.Debug().Err(err).Msg("Question cache write failed")
	}
}
