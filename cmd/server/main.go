package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/examflow/examflow-backend/internal/config"
	"github.com/examflow/examflow-backend/internal/database"
	"github.com/examflow/examflow-backend/internal/handler"
	"github.com/examflow/examflow-backend/internal/logger"
	"github.com/examflow/examflow-backend/internal/middleware"
	"github.com/examflow/examflow-backend/internal/repository"
	"github.com/examflow/examflow-backend/internal/router"
	"github.com/examflow/examflow-backend/internal/service"
	"github.com/examflow/examflow-backend/internal/validator"
	"github.com/examflow/examflow-backend/internal/worker"
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
		Msg("Starting ExamFlow Backend")

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

	// ─── Initialize Repositories ───────────────────────────────────────
	sessionRepo := repository.NewSessionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	paperResolver := repository.NewPaperResolver(pool, rdb, cfg.PaperCacheTTL, log)
	settlementQueue := repository.NewSettlementQueue(rdb)
	statsStore := repository.NewStatsStore(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	sessionService := service.NewSessionService(sessionRepo, attemptRepo, statsStore, log)
	orchestrator := service.NewOrchestrator(sessionRepo, attemptRepo, paperResolver, settlementQueue, log)

	verifier := middleware.NewVerifier(cfg.JWTSecret)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(sessionService),
		Attempt: handler.NewAttemptHandler(orchestrator),
		WS:      handler.NewWSHandler(orchestrator, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	settlementWorker := worker.NewSettlementWorker(rdb, statsStore, cfg.SettlementBatchSize, log)
	expiryWorker := worker.NewExpiryWorker(attemptRepo, rdb, cfg.ExpirySweepInterval, log)

	go settlementWorker.Start(workerCtx)
	go expiryWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(verifier, handlers, cfg)

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

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
