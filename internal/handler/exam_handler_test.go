package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prepmind/prepmind-backend/internal/middleware"
	"github.com/prepmind/prepmind-backend/internal/model"
	"github.com/prepmind/prepmind-backend/internal/response"
	"github.com/prepmind/prepmind-backend/internal/service"
	"github.com/prepmind/prepmind-backend/internal/validator"
)

const testSecret = "test-secret"

// examSource serves a fixed five-question set.
type examSource struct{}

func (examSource) GenerateOrFallback(ctx context.Context, topic string, count int) []model.Question {
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

type examAnalyzer struct{}

func (examAnalyzer) AnalyzeOrDegrade(ctx context.Context, answers model.AnswerMap, questions []model.Question) service.Analysis {
	correct, score := service.Grade(answers, questions)
	return service.Analysis{Score: score, CorrectAnswers: correct, Feedback: "ok", WeakAreas: []string{}}
}

type examGateway struct {
	saves int
	last  *model.ExamResult
}

func (g *examGateway) SaveResult(ctx context.Context, result *model.ExamResult, entry *model.LeaderboardEntry) (uuid.UUID, error) {
	g.saves++
	g.last = result
	return uuid.New(), nil
}

func newExamRouter(gateway *examGateway) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator.Setup()

	sessions := service.NewSessionService(examSource{}, examAnalyzer{}, gateway, handlerTestConfig(), zerolog.Nop())
	h := NewExamHandler(sessions)

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(middleware.RequireUserJWT(testSecret))
	{
		api.POST("/exams", h.StartExam)
		api.GET("/exams/:id", h.GetExam)
		api.POST("/exams/:id/answers", h.SelectAnswer)
		api.POST("/exams/:id/flag", h.ToggleFlag)
		api.POST("/exams/:id/position", h.Navigate)
		api.POST("/exams/:id/review", h.ToggleReview)
		api.POST("/exams/:id/submit", h.Submit)
		api.DELETE("/exams/:id", h.Teardown)
	}
	return router
}

func signToken(t *testing.T, sub, name string) string {
	t.Helper()
	claims := middleware.Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

type sessionEnvelope struct {
	Data struct {
		Session  model.SessionView `json:"session"`
		ResultID uuid.UUID         `json:"result_id"`
	} `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

func callExam(t *testing.T, router *gin.Engine, token, method, path, body string) (int, *sessionEnvelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	env := &sessionEnvelope{}
	if err := json.Unmarshal(rec.Body.Bytes(), env); err != nil {
		t.Fatalf("%s %s: unmarshal envelope: %v (body %s)", method, path, err, rec.Body.String())
	}
	return rec.Code, env
}

func awaitReady(t *testing.T, router *gin.Engine, token string, id uuid.UUID) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		code, env := callExam(t, router, token, http.MethodGet, "/api/v1/exams/"+id.String(), "")
		if code != http.StatusOK {
			t.Fatalf("GET session: status %d", code)
		}
		if env.Data.Session.Status == model.SessionStatusReady {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session never became READY")
}

func TestExamFlow(t *testing.T) {
	gateway := &examGateway{}
	router := newExamRouter(gateway)
	token := signToken(t, "user-1", "nadia")

	// Start: session comes back LOADING, questions resolve asynchronously.
	code, env := callExam(t, router, token, http.MethodPost, "/api/v1/exams", `{"topic":"pointers","count":5}`)
	if code != http.StatusCreated {
		t.Fatalf("start: status = %d", code)
	}
	if env.Data.Session.Status != model.SessionStatusLoading {
		t.Fatalf("start status = %s, want LOADING", env.Data.Session.Status)
	}
	id := env.Data.Session.ID
	base := "/api/v1/exams/" + id.String()

	awaitReady(t, router, token, id)

	// Answer three of five correctly.
	for qid, sel := range map[int]int{1: 0, 2: 1, 3: 2} {
		body := fmt.Sprintf(`{"question_id":%d,"selected":%d}`, qid, sel)
		code, env = callExam(t, router, token, http.MethodPost, base+"/answers", body)
		if code != http.StatusOK {
			t.Fatalf("answer q%d: status = %d, error = %+v", qid, code, env.Error)
		}
	}
	if env.Data.Session.Status != model.SessionStatusAnswering {
		t.Errorf("status = %s, want ANSWERING", env.Data.Session.Status)
	}

	// Flag and navigate.
	code, env = callExam(t, router, token, http.MethodPost, base+"/flag", `{"question_id":2}`)
	if code != http.StatusOK || len(env.Data.Session.Flagged) != 1 {
		t.Fatalf("flag: status = %d, flagged = %v", code, env.Data.Session.Flagged)
	}
	code, env = callExam(t, router, token, http.MethodPost, base+"/position", `{"move":"next"}`)
	if code != http.StatusOK || env.Data.Session.CurrentIndex != 1 {
		t.Fatalf("navigate: status = %d, index = %d", code, env.Data.Session.CurrentIndex)
	}

	// Review mode round trip.
	code, env = callExam(t, router, token, http.MethodPost, base+"/review", "")
	if code != http.StatusOK || env.Data.Session.Status != model.SessionStatusReviewing {
		t.Fatalf("review: status = %d, session = %s", code, env.Data.Session.Status)
	}
	code, env = callExam(t, router, token, http.MethodPost, base+"/review", "")
	if code != http.StatusOK || env.Data.Session.Status != model.SessionStatusAnswering {
		t.Fatalf("review back: status = %d, session = %s", code, env.Data.Session.Status)
	}

	// Submit.
	code, env = callExam(t, router, token, http.MethodPost, base+"/submit", "")
	if code != http.StatusOK {
		t.Fatalf("submit: status = %d, error = %+v", code, env.Error)
	}
	if env.Data.ResultID == uuid.Nil {
		t.Fatal("submit returned no result id")
	}
	if gateway.saves != 1 {
		t.Fatalf("persisted %d results, want 1", gateway.saves)
	}
	if gateway.last.Score != 60.0 || gateway.last.CorrectAnswers != 3 {
		t.Errorf("persisted score = %v correct = %d, want 60.0/3", gateway.last.Score, gateway.last.CorrectAnswers)
	}

	// Second submit conflicts.
	code, env = callExam(t, router, token, http.MethodPost, base+"/submit", "")
	if code != http.StatusConflict || env.Error == nil || env.Error.Code != response.ErrAlreadySubmitted {
		t.Errorf("resubmit: status = %d, error = %+v", code, env.Error)
	}

	// Mutations are rejected after submission.
	code, env = callExam(t, router, token, http.MethodPost, base+"/answers", `{"question_id":1,"selected":1}`)
	if code != http.StatusConflict || env.Error == nil || env.Error.Code != response.ErrSessionReadOnly {
		t.Errorf("answer after submit: status = %d, error = %+v", code, env.Error)
	}
}

func TestExamAuth(t *testing.T) {
	router := newExamRouter(&examGateway{})
	owner := signToken(t, "user-1", "nadia")
	other := signToken(t, "user-2", "mallory")

	code, env := callExam(t, router, owner, http.MethodPost, "/api/v1/exams", `{"topic":"pointers"}`)
	if code != http.StatusCreated {
		t.Fatalf("start: status = %d", code)
	}
	base := "/api/v1/exams/" + env.Data.Session.ID.String()

	tests := []struct {
		name     string
		token    string
		wantCode int
		wantErr  response.ErrCode
	}{
		{"missing token", "", http.StatusUnauthorized, response.ErrTokenRequired},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized, response.ErrTokenInvalid},
		{"foreign session", other, http.StatusForbidden, response.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := callExam(t, router, tt.token, http.MethodGet, base, "")
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d", code, tt.wantCode)
			}
			if env.Error == nil || env.Error.Code != tt.wantErr {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantErr)
			}
		})
	}
}

func TestExamValidation(t *testing.T) {
	router := newExamRouter(&examGateway{})
	token := signToken(t, "user-1", "nadia")

	// Topic too short.
	code, env := callExam(t, router, token, http.MethodPost, "/api/v1/exams", `{"topic":"x"}`)
	if code != http.StatusBadRequest || env.Error == nil || env.Error.Code != response.ErrValidation {
		t.Errorf("short topic: status = %d, error = %+v", code, env.Error)
	}
	if env.Error != nil && env.Error.Fields["topic"] == "" {
		t.Errorf("missing field detail for topic: %+v", env.Error.Fields)
	}

	// Malformed session id.
	code, env = callExam(t, router, token, http.MethodGet, "/api/v1/exams/not-a-uuid", "")
	if code != http.StatusBadRequest || env.Error == nil || env.Error.Code != response.ErrInvalidID {
		t.Errorf("bad id: status = %d, error = %+v", code, env.Error)
	}

	// Unknown session id.
	code, env = callExam(t, router, token, http.MethodGet, "/api/v1/exams/"+uuid.NewString(), "")
	if code != http.StatusNotFound || env.Error == nil || env.Error.Code != response.ErrSessionNotFound {
		t.Errorf("unknown id: status = %d, error = %+v", code, env.Error)
	}
}
