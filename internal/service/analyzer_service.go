package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepmind/prepmind-backend/internal/ai"
	"github.com/prepmind/prepmind-backend/internal/config"
	"github.com/prepmind/prepmind-backend/internal/model"
)

// FeedbackUnavailable is the degraded feedback message used when the remote
// analyzer cannot be reached.
const FeedbackUnavailable = "AI analysis is unavailable right now. Your score was computed locally."

// Analysis is the outcome of grading one completed answer set.
// Score is always the locally-computed ground truth; the remote model only
// contributes the qualitative parts.
type Analysis struct {
	Score          float64  `json:"score"`
	CorrectAnswers int      `json:"correct_answers"`
	Feedback       string   `json:"feedback"`
	WeakAreas      []string `json:"weakAreas"`
}

// AnalyzerService grades completed exams and asks the remote model for
// qualitative feedback.
type AnalyzerService struct {
	ai      Completer
	timeout time.Duration
	log     zerolog.Logger
}

// NewAnalyzerService creates a new AnalyzerService.
func NewAnalyzerService(completer Completer, cfg *config.Config, log zerolog.Logger) *AnalyzerService {
	return &AnalyzerService{
		ai:      completer,
		timeout: cfg.AnalyzeTimeout,
		log:     log.With().Str("component", "analyzer_service").Logger(),
	}
}

// Grade computes the ground-truth correct count locally. Unanswered questions
// count as incorrect; the remote side is never trusted for correctness.
func Grade(answers model.AnswerMap, questions []model.Question) (correct int, score float64) {
	for _, q := range questions {
		if selected, ok := answers[q.ID]; ok && selected == q.CorrectAnswer {
			correct++
		}
	}
	if len(questions) > 0 {
		score = 100 * float64(correct) / float64(len(questions))
	}
	return correct, score
}

// remoteAnalysis is the untrusted wire shape of the model's feedback.
type remoteAnalysis struct {
	Feedback  string   `json:"feedback"`
	WeakAreas []string `json:"weakAreas"`
}

// Analyze requests feedback from the remote model, or fails. The returned
// score is still computed locally. Used by the raw proxy endpoint.
func (s *AnalyzerService) Analyze(ctx context.Context, answers model.AnswerMap, questions []model.Question) (*Analysis, error) {
	correct, score := Grade(answers, questions)

	if !s.ai.Configured() {
		return nil, ai.ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt, err := buildAnalyzePrompt(answers, questions)
	if err != nil {
		return nil, err
	}

	text, err := s.ai.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("analyze performance: %w", err)
	}

	var remote remoteAnalysis
	if err := json.Unmarshal([]byte(ai.StripCodeFences(text)), &remote); err != nil {
		return nil, fmt.Errorf("parse analysis output: %w", err)
	}
	if remote.Feedback == "" {
		return nil, fmt.Errorf("analysis output missing feedback")
	}
	if remote.WeakAreas == nil {
		remote.WeakAreas = []string{}
	}

	return &Analysis{
		Score:          score,
		CorrectAnswers: correct,
		Feedback:       remote.Feedback,
		WeakAreas:      remote.WeakAreas,
	}, nil
}

// AnalyzeOrDegrade never fails and never blocks the submission flow: on any
// upstream failure it returns the locally-computed score with a fixed
// "analysis unavailable" message and an empty weak-area list.
func (s *AnalyzerService) AnalyzeOrDegrade(ctx context.Context, answers model.AnswerMap, questions []model.Question) Analysis {
	analysis, err := s.Analyze(ctx, answers, questions)
	if err != nil {
		s.log.Warn().Err(err).Msg("Analysis failed, using local grading only")
		correct, score := Grade(answers, questions)
		return Analysis{
			Score:          score,
			CorrectAnswers: correct,
			Feedback:       FeedbackUnavailable,
			WeakAreas:      []string{},
		}
	}
	return *analysis
}

// analysisItem is one row of the performance summary sent to the model.
type analysisItem struct {
	Question  string `json:"question"`
	IsCorrect bool   `json:"isCorrect"`
	Topic     string `json:"topic"`
}

func buildAnalyzePrompt(answers model.AnswerMap, questions []model.Question) (string, error) {
	items := make([]analysisItem, len(questions))
	for i, q := range questions {
		selected, ok := answers[q.ID]
		items[i] = analysisItem{
			Question:  q.Text,
			IsCorrect: ok && selected == q.CorrectAnswer,
			Topic:     "General",
		}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal analysis data: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Analyze this quiz performance:\n")
	sb.Write(data)
	sb.WriteString("\n\nReturn a JSON object with:\n")
	sb.WriteString("- feedback: string (encouraging feedback and critique)\n")
	sb.WriteString("- weakAreas: string[] (list of topics to improve)\n")
	return sb.String(), nil
}
