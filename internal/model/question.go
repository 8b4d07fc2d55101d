package model

import "fmt"

// OptionCount is the fixed number of choices per question.
const OptionCount = 4

// Question is a single multiple-choice question. Immutable once generated;
// IDs are assigned locally per session and never taken from the model output.
type Question struct {
	ID            int      `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Validate checks the shape constraints on a question coming from an
// untrusted source (the generative model).
func (q *Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("question text is empty")
	}
	if len(q.Options) != OptionCount {
		return fmt.Errorf("question has %d options, want %d", len(q.Options), OptionCount)
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= OptionCount {
		return fmt.Errorf("correctAnswer %d out of range [0,%d]", q.CorrectAnswer, OptionCount-1)
	}
	return nil
}

// AnswerMap maps a question id to the selected option index (0-3).
// A missing entry means "unanswered".
type AnswerMap map[int]int

// GradedQuestion is a question enriched with the user's selection, as stored
// inside a persisted exam result.
type GradedQuestion struct {
	Question
	SelectedAnswer *int `json:"selectedAnswer"`
}
