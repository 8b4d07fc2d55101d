package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prepmind/prepmind-backend/internal/middleware"
	"github.com/prepmind/prepmind-backend/internal/model"
	"github.com/prepmind/prepmind-backend/internal/response"
	"github.com/prepmind/prepmind-backend/internal/service"
)

// ResultHandler serves persisted exam results: history, review and
// dashboard statistics.
type ResultHandler struct {
	results *service.ResultService
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(results *service.ResultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// ListResults godoc
// GET /api/v1/results?page=&per_page=
func (h *ResultHandler) ListResults(c *gin.Context) {
	identity := middleware.GetIdentity(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	summaries, total, err := h.results.ListForUser(c.Request.Context(), identity.UID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if summaries == nil {
		summaries = []model.ResultSummary{}
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": summaries}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	})
}

// GetResult godoc
// GET /api/v1/results/:id
// Full result for the review page, owner-checked by the query itself.
func (h *ResultHandler) GetResult(c *gin.Context) {
	identity := middleware.GetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.results.GetForUser(c.Request.Context(), id, identity.UID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetStats godoc
// GET /api/v1/stats
// Aggregates for the dashboard and analytics views.
func (h *ResultHandler) GetStats(c *gin.Context) {
	identity := middleware.GetIdentity(c)

	stats, err := h.results.StatsForUser(c.Request.Context(), identity.UID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}
