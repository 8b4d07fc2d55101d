package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/prepmind/prepmind-backend/internal/config"
	"github.com/prepmind/prepmind-backend/internal/handler"
	"github.com/prepmind/prepmind-backend/internal/middleware"
	"github.com/prepmind/prepmind-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Compat      *handler.CompatHandler
	Exam        *handler.ExamHandler
	Result      *handler.ResultHandler
	Leaderboard *handler.LeaderboardHandler
	WS          *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// ─── 0. Compat Surface (No Auth, No Envelope) ──────────────────────
	// Byte-compatible with the original proxy: bare JSON bodies, plain-text
	// liveness, 500 {error} on AI failure. Rate limited per IP because each
	// call can cost a model invocation.
	aiLimiter := middleware.NewRateLimiter(30, time.Minute)

	router.GET("/", handlers.Compat.Root)
	compatAPI := router.Group("/api")
	compatAPI.Use(aiLimiter.Middleware())
	{
		compatAPI.POST("/generate", handlers.Compat.Generate)
		compatAPI.POST("/analyze", handlers.Compat.Analyze)
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Exam Group (JWT) ───────────────────────────────────────────
	userAPI := router.Group("/api/v1")
	userAPI.Use(middleware.RequireUserJWT(cfg.JWTSecret))
	{
		userAPI.POST("/exams", handlers.Exam.StartExam)
		userAPI.GET("/exams/:id", handlers.Exam.GetExam)
		userAPI.POST("/exams/:id/answers", handlers.Exam.SelectAnswer)
		userAPI.POST("/exams/:id/flag", handlers.Exam.ToggleFlag)
		userAPI.POST("/exams/:id/position", handlers.Exam.Navigate)
		userAPI.POST("/exams/:id/review", handlers.Exam.ToggleReview)
		userAPI.POST("/exams/:id/submit", handlers.Exam.Submit)
		userAPI.DELETE("/exams/:id", handlers.Exam.Teardown)

		userAPI.GET("/results", handlers.Result.ListResults)
		userAPI.GET("/results/:id", handlers.Result.GetResult)
		userAPI.GET("/stats", handlers.Result.GetStats)

		// The leaderboard is identical for every caller; let clients cache
		// it for the same window the Redis copy lives.
		userAPI.GET("/leaderboard", middleware.CacheControl(30), handlers.Leaderboard.GetLeaderboard)
	}

	// ─── 2. WebSocket Group (JWT via query token) ──────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireUserJWT(cfg.JWTSecret))
	{
		ws.GET("/exams/:id/stream", handlers.WS.CountdownStream)
	}

	return router
}
