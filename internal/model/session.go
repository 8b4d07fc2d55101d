package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session lifecycle states.
type SessionStatus string

const (
	SessionStatusLoading    SessionStatus = "LOADING"
	SessionStatusReady      SessionStatus = "READY"
	SessionStatusAnswering  SessionStatus = "ANSWERING"
	SessionStatusReviewing  SessionStatus = "REVIEWING"
	SessionStatusSubmitting SessionStatus = "SUBMITTING"
	SessionStatusSubmitted  SessionStatus = "SUBMITTED"
	SessionStatusLoadFailed SessionStatus = "LOAD_FAILED"
)

// Terminal reports whether no further transitions are possible.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusSubmitted || s == SessionStatusLoadFailed
}

// Mutable reports whether answer/flag/navigation mutations are allowed.
func (s SessionStatus) Mutable() bool {
	switch s {
	case SessionStatusReady, SessionStatusAnswering, SessionStatusReviewing:
		return true
	}
	return false
}

// SessionView is the JSON snapshot of an in-memory exam session handed to
// clients. Correct answers and explanations are withheld until submission.
type SessionView struct {
	ID           uuid.UUID         `json:"id"`
	Topic        string            `json:"topic"`
	Status       SessionStatus     `json:"status"`
	Questions    []SessionQuestion `json:"questions,omitempty"`
	CurrentIndex int               `json:"current_index"`
	Answers      AnswerMap         `json:"answers"`
	Flagged      []int             `json:"flagged"`
	TimeLeft     int               `json:"time_left_seconds"`
	ResultID     *uuid.UUID        `json:"result_id,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
}

// SessionQuestion is a question as exposed to an in-progress session,
// with the correct answer and explanation stripped.
type SessionQuestion struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// StartExamRequest is the payload for starting a new exam session.
type StartExamRequest struct {
	Topic string `json:"topic" binding:"required,min=2,max=200"`
	Count int    `json:"count" binding:"omitempty,min=1,max=50"`
}

// SelectAnswerRequest records an option choice for one question.
type SelectAnswerRequest struct {
	QuestionID int  `json:"question_id" binding:"required"`
	Selected   *int `json:"selected" binding:"required,min=0,max=3"`
}

// ToggleFlagRequest marks or unmarks a question for review.
type ToggleFlagRequest struct {
	QuestionID int `json:"question_id" binding:"required"`
}

// NavigateRequest moves the current position. Either an absolute index or a
// relative move ("next"/"prev") must be supplied.
type NavigateRequest struct {
	Index *int   `json:"index" binding:"omitempty,min=0"`
	Move  string `json:"move" binding:"omitempty,oneof=next prev"`
}
