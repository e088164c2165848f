package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exam-paper/internal/config"
	"github.com/stemsi/exam-paper/internal/database"
	"github.com/stemsi/exam-paper/internal/events"
	"github.com/stemsi/exam-paper/internal/handler"
	"github.com/stemsi/exam-paper/internal/logger"
	"github.com/stemsi/exam-paper/internal/repository"
	"github.com/stemsi/exam-paper/internal/router"
	"github.com/stemsi/exam-paper/internal/service"
	"github.com/stemsi/exam-paper/internal/validator"
	"github.com/stemsi/exam-paper/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.MustLoad()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("storage", cfg.DBDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting exam paper server")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open Storage ──────────────────────────────────────────────────
	store, err := repository.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("Failed to open storage")
	}
	defer store.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	// Optional: without REDIS_URL the paper cache and change feed are off.
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
	}
	publisher := events.NewPublisher(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	examService := service.NewExamService(store.Exams, rdb, publisher, cfg.PaperCacheTTL, log)
	questionService := service.NewQuestionService(store.Questions, examService, publisher, log)
	paperService := service.NewPaperService(examService)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Exam:     handler.NewExamHandler(examService, log),
		Question: handler.NewQuestionHandler(examService, questionService, log),
		Paper:    handler.NewPaperHandler(paperService, log),
		UI:       handler.NewUIHandler(examService, questionService, log),
		WS:       handler.NewWSHandler(rdb, log, cfg.Origins()),
		System:   handler.NewSystemHandler(store.Ping, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})

	warmWorker := worker.NewPaperWarmWorker(rdb, examService, log)
	go func() {
		defer close(workerDone)
		warmWorker.Start(workerCtx)
	}()

	// ─── Prewarm Redis Cache ───────────────────────────────────────────
	// Load every paper into Redis before accepting traffic.
	if err := examService.PrewarmPaperCache(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the background worker and wait for it to leave its loop.
	workerCancel()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Worker did not stop before shutdown timeout")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
