package service

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/prepmind/prepmind-backend/internal/model"
)

func fiveQuestions() []model.Question {
	questions := make([]model.Question, 5)
	for i := range questions {
		questions[i] = model.Question{
			ID:            i + 1,
			Text:          "q",
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: i % model.OptionCount,
			Explanation:   "e",
		}
	}
	return questions
}

func TestGrade(t *testing.T) {
	questions := fiveQuestions()

	tests := []struct {
		name        string
		answers     model.AnswerMap
		wantCorrect int
		wantScore   float64
	}{
		{"all unanswered", model.AnswerMap{}, 0, 0},
		{
			"three correct two unanswered",
			model.AnswerMap{1: 0, 2: 1, 3: 2},
			3, 60.0,
		},
		{
			"all correct",
			model.AnswerMap{1: 0, 2: 1, 3: 2, 4: 3, 5: 0},
			5, 100.0,
		},
		{
			"wrong answers count as incorrect",
			model.AnswerMap{1: 3, 2: 3, 3: 3, 4: 3, 5: 3},
			1, 20.0,
		},
		{
			"answer for unknown question id is ignored",
			model.AnswerMap{42: 0},
			0, 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			correct, score := Grade(tt.answers, questions)
			if correct != tt.wantCorrect {
				t.Errorf("correct = %d, want %d", correct, tt.wantCorrect)
			}
			if score != tt.wantScore {
				t.Errorf("score = %v, want %v", score, tt.wantScore)
			}
		})
	}
}

func TestGradeEmptyQuestions(t *testing.T) {
	correct, score := Grade(model.AnswerMap{}, nil)
	if correct != 0 || score != 0 {
		t.Errorf("got (%d, %v), want (0, 0)", correct, score)
	}
}

func TestAnalyzeParsesFencedOutput(t *testing.T) {
	completer := &stubCompleter{
		text:       "```json\n{\"feedback\": \"Solid work on pointers.\", \"weakAreas\": [\"memory management\"]}\n```",
		configured: true,
	}
	a := NewAnalyzerService(completer, testConfig(), zerolog.Nop())

	analysis, err := a.Analyze(t.Context(), model.AnswerMap{1: 0, 2: 1, 3: 2}, fiveQuestions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.Feedback != "Solid work on pointers." {
		t.Errorf("feedback = %q", analysis.Feedback)
	}
	if len(analysis.WeakAreas) != 1 || analysis.WeakAreas[0] != "memory management" {
		t.Errorf("weakAreas = %v", analysis.WeakAreas)
	}
	// Score comes from local grading, never from the model.
	if analysis.Score != 60.0 {
		t.Errorf("score = %v, want 60.0", analysis.Score)
	}
	if analysis.CorrectAnswers != 3 {
		t.Errorf("correctAnswers = %d, want 3", analysis.CorrectAnswers)
	}
}

func TestAnalyzeOrDegrade(t *testing.T) {
	tests := []struct {
		name      string
		completer *stubCompleter
	}{
		{"upstream error", &stubCompleter{err: errors.New("503"), configured: true}},
		{"garbage output", &stubCompleter{text: "I'm sorry, I can't do that.", configured: true}},
		{"missing feedback", &stubCompleter{text: `{"weakAreas": []}`, configured: true}},
		{"unconfigured", &stubCompleter{configured: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzerService(tt.completer, testConfig(), zerolog.Nop())

			analysis := a.AnalyzeOrDegrade(t.Context(), model.AnswerMap{1: 0, 2: 1, 3: 2}, fiveQuestions())

			// Degraded result keeps the locally-computed score; a zero score
			// here would throw away the user's work.
			if analysis.Score != 60.0 {
				t.Errorf("score = %v, want 60.0", analysis.Score)
			}
			if analysis.Feedback != FeedbackUnavailable {
				t.Errorf("feedback = %q", analysis.Feedback)
			}
			if len(analysis.WeakAreas) != 0 {
				t.Errorf("weakAreas = %v, want empty", analysis.WeakAreas)
			}
		})
	}
}
