package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepmind/prepmind-backend/internal/response"
	"github.com/prepmind/prepmind-backend/internal/service"
)

// LeaderboardHandler serves the global ranking view.
type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
}

// NewLeaderboardHandler creates a new LeaderboardHandler.
func NewLeaderboardHandler(leaderboard *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// GetLeaderboard godoc
// GET /api/v1/leaderboard
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	entries, err := h.leaderboard.Top(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"leaderboard": entries})
}
