package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepmind/prepmind-backend/internal/ai"
	"github.com/prepmind/prepmind-backend/internal/config"
	"github.com/prepmind/prepmind-backend/internal/database"
	"github.com/prepmind/prepmind-backend/internal/handler"
	"github.com/prepmind/prepmind-backend/internal/logger"
	"github.com/prepmind/prepmind-backend/internal/repository"
	"github.com/prepmind/prepmind-backend/internal/router"
	"github.com/prepmind/prepmind-backend/internal/service"
	"github.com/prepmind/prepmind-backend/internal/validator"
	"github.com/prepmind/prepmind-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Bool("ai_configured", cfg.AIAPIKey != "").
		Msg("Starting PrepMind Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize AI Client ──────────────────────────────────────────
	// Unconfigured is a legal state: the compat endpoints answer 500 and
	// exam sessions run on the fallback bank.
	aiClient := ai.New(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel)
	if !aiClient.Configured() {
		log.Warn().Msg("AI_API_KEY not set — running in fallback-only mode")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	resultRepo := repository.NewResultRepository(pool)
	leaderboardRepo := repository.NewLeaderboardRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	generatorService := service.NewGeneratorService(aiClient, rdb, cfg, log)
	analyzerService := service.NewAnalyzerService(aiClient, cfg, log)
	leaderboardService := service.NewLeaderboardService(leaderboardRepo, rdb, cfg, log)
	resultService := service.NewResultService(resultRepo, leaderboardService, rdb, cfg, log)
	sessionService := service.NewSessionService(generatorService, analyzerService, resultService, cfg, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Compat:      handler.NewCompatHandler(generatorService, analyzerService, log),
		Exam:        handler.NewExamHandler(sessionService),
		Result:      handler.NewResultHandler(resultService),
		Leaderboard: handler.NewLeaderboardHandler(leaderboardService),
		WS:          handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	janitor := worker.NewJanitorWorker(sessionService, cfg.SessionRetention, log)
	go janitor.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the janitor. In-memory sessions are lost on shutdown by
	// design; persisted results are already safe in PostgreSQL.
	workerCancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
