package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prepmind/prepmind-backend/internal/middleware"
	"github.com/prepmind/prepmind-backend/internal/model"
	"github.com/prepmind/prepmind-backend/internal/response"
	"github.com/prepmind/prepmind-backend/internal/service"
	"github.com/prepmind/prepmind-backend/internal/validator"
)

// ExamHandler drives exam sessions: start, state, answers, flags,
// navigation, review mode, submission and teardown.
type ExamHandler struct {
	sessions *service.SessionService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(sessions *service.SessionService) *ExamHandler {
	return &ExamHandler{sessions: sessions}
}

// StartExam godoc
// POST /api/v1/exams
// Creates a LOADING session; question generation resolves asynchronously.
func (h *ExamHandler) StartExam(c *gin.Context) {
	var req model.StartExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view := h.sessions.Start(sessionUser(c), req.Topic, req.Count)
	response.Success(c, http.StatusCreated, gin.H{"session": view})
}

// GetExam godoc
// GET /api/v1/exams/:id
func (h *ExamHandler) GetExam(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	view, err := h.sessions.Get(id, sessionUser(c))
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": view})
}

// SelectAnswer godoc
// POST /api/v1/exams/:id/answers
// Records an option choice, overwriting any prior selection.
func (h *ExamHandler) SelectAnswer(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.sessions.SelectAnswer(id, sessionUser(c), req.QuestionID, *req.Selected)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": view})
}

// ToggleFlag godoc
// POST /api/v1/exams/:id/flag
func (h *ExamHandler) ToggleFlag(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req model.ToggleFlagRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.sessions.ToggleFlag(id, sessionUser(c), req.QuestionID)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": view})
}

// Navigate godoc
// POST /api/v1/exams/:id/position
// Absolute indexes are clamped; relative moves stop at the edges.
func (h *ExamHandler) Navigate(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if req.Index == nil && req.Move == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	view, err := h.sessions.Navigate(id, sessionUser(c), req.Index, req.Move)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": view})
}

// ToggleReview godoc
// POST /api/v1/exams/:id/review
func (h *ExamHandler) ToggleReview(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	view, err := h.sessions.ToggleReview(id, sessionUser(c))
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": view})
}

// Submit godoc
// POST /api/v1/exams/:id/submit
// At most one submission per session; retries after a persistence failure
// land here again with the answers intact.
func (h *ExamHandler) Submit(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	resultID, err := h.sessions.Submit(c.Request.Context(), id, sessionUser(c))
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result_id": resultID})
}

// Teardown godoc
// DELETE /api/v1/exams/:id
// Cancels timers and outstanding generation, then discards the session.
func (h *ExamHandler) Teardown(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.sessions.Teardown(id, sessionUser(c)); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// ─── Shared helpers ─────────────────────────────────────────────────────────

func sessionUser(c *gin.Context) service.User {
	identity := middleware.GetIdentity(c)
	return service.User{UID: identity.UID, Name: identity.Name, Avatar: identity.Avatar()}
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// failSession maps session service errors onto API error codes.
func failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrNotOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrSessionNotReady):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotReady)
	case errors.Is(err, service.ErrSessionLoadFailed):
		response.Fail(c, http.StatusConflict, response.ErrSessionLoadFailed)
	case errors.Is(err, service.ErrSessionReadOnly):
		response.Fail(c, http.StatusConflict, response.ErrSessionReadOnly)
	case errors.Is(err, service.ErrUnknownQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownQuestion)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrSubmitInFlight):
		response.Fail(c, http.StatusConflict, response.ErrSubmitInFlight)
	case errors.Is(err, service.ErrSubmitFailed):
		response.Fail(c, http.StatusBadGateway, response.ErrSubmitFailed)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
