package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/prepmind/prepmind-backend/internal/ai"
	"github.com/prepmind/prepmind-backend/internal/model"
	"github.com/prepmind/prepmind-backend/internal/response"
	"github.com/prepmind/prepmind-backend/internal/service"
)

// CompatHandler exposes the original AI proxy surface: a bare JSON array
// from /api/generate and a bare object from /api/analyze, with 500 {error}
// on credential or upstream failure. No response envelope here — existing
// clients parse these bodies directly.
type CompatHandler struct {
	generator *service.GeneratorService
	analyzer  *service.AnalyzerService
	log       zerolog.Logger
}

// NewCompatHandler creates a new CompatHandler.
func NewCompatHandler(generator *service.GeneratorService, analyzer *service.AnalyzerService, log zerolog.Logger) *CompatHandler {
	return &CompatHandler{
		generator: generator,
		analyzer:  analyzer,
		log:       log.With().Str("component", "compat_handler").Logger(),
	}
}

// Root godoc
// GET /
// Plain-text liveness string, kept byte-identical for uptime probes.
func (h *CompatHandler) Root(c *gin.Context) {
	c.String(http.StatusOK, "AI Exam Backend is Running!")
}

type generateRequest struct {
	Topic string `json:"topic" binding:"required,min=1,max=200"`
	Count int    `json:"count" binding:"omitempty,min=1,max=50"`
}

// Generate godoc
// POST /api/generate
// Proxies question generation. Failures surface as 500s; the fallback bank
// belongs to the session flow, not to this raw endpoint.
func (h *CompatHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": response.GetMessage(response.ErrInvalidPayload)})
		return
	}
	if req.Count == 0 {
		req.Count = 5
	}

	questions, err := h.generator.Generate(c.Request.Context(), req.Topic, req.Count)
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": response.GetMessage(response.ErrAINotConfigured)})
			return
		}
		h.log.Error().Err(err).Str("topic", req.Topic).Msg("Generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": response.GetMessage(response.ErrAIGeneration)})
		return
	}

	c.JSON(http.StatusOK, questions)
}

type analyzeRequest struct {
	Answers   model.AnswerMap  `json:"answers" binding:"required"`
	Questions []model.Question `json:"questions" binding:"required,min=1,dive"`
}

type analyzeResponse struct {
	Feedback  string   `json:"feedback"`
	WeakAreas []string `json:"weakAreas"`
}

// Analyze godoc
// POST /api/analyze
// Proxies performance analysis. The response carries only the qualitative
// parts; scoring is always done locally by callers.
func (h *CompatHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": response.GetMessage(response.ErrInvalidPayload)})
		return
	}

	analysis, err := h.analyzer.Analyze(c.Request.Context(), req.Answers, req.Questions)
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": response.GetMessage(response.ErrAINotConfigured)})
			return
		}
		h.log.Error().Err(err).Msg("Analysis failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": response.GetMessage(response.ErrAIAnalysis)})
		return
	}

	c.JSON(http.StatusOK, analyzeResponse{Feedback: analysis.Feedback, WeakAreas: analysis.WeakAreas})
}
