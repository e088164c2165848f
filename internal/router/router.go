package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-paper/internal/config"
	"github.com/stemsi/exam-paper/internal/handler"
	"github.com/stemsi/exam-paper/internal/middleware"
	"github.com/stemsi/exam-paper/internal/response"
	"github.com/stemsi/exam-paper/internal/ui"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam     *handler.ExamHandler
	Question *handler.QuestionHandler
	Paper    *handler.PaperHandler
	UI       *handler.UIHandler
	WS       *handler.WSHandler
	System   *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background work started here (rate limiter sweeps).
func SetupRouter(ctx context.Context, handlers *Handlers, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// Apply request ID middleware globally so every response and log line
	// carries it.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if origins := cfg.Origins(); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(middleware.Brotli())

	router.SetHTMLTemplate(ui.Templates())

	// Health check.
	router.GET("/health", handlers.System.Health)

	// Mutations share one per-IP budget across both mounts.
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimitPerMinute, time.Minute)

	// ─── 1. JSON API ───────────────────────────────────────────────────
	// Served at the root and under /api for browser clients that expect the
	// prefix.
	registerAPI(router.Group("/"), handlers, limiter)
	registerAPI(router.Group("/api"), handlers, limiter)

	// ─── 2. Change feed ────────────────────────────────────────────────
	router.GET("/ws/events", handlers.WS.ChangeFeed)

	// ─── 3. Browser UI ─────────────────────────────────────────────────
	router.GET("/", handlers.UI.Index)
	uiGroup := router.Group("/ui")
	uiGroup.Use(middleware.NoStore())
	{
		uiGroup.GET("/exams", handlers.UI.ListExams)
		uiGroup.POST("/exams", limiter.Middleware(), handlers.UI.CreateExam)
		uiGroup.GET("/exams/:id", handlers.UI.ShowExam)
		uiGroup.POST("/exams/:id/delete", limiter.Middleware(), handlers.UI.DeleteExam)
		uiGroup.POST("/exams/:id/questions", limiter.Middleware(), handlers.UI.QuestionForm)
		uiGroup.POST("/questions/:id/delete", limiter.Middleware(), handlers.UI.DeleteQuestion)
	}

	return router
}

func registerAPI(api *gin.RouterGroup, handlers *Handlers, limiter *middleware.RateLimiter) {
	api.Use(middleware.NoStore())
	{
		api.GET("/exams", handlers.Exam.ListExams)
		api.POST("/exams", limiter.Middleware(), handlers.Exam.CreateExam)
		api.DELETE("/exams", limiter.Middleware(), handlers.Exam.DeleteExam)

		api.GET("/questions", handlers.Question.GetExamQuestions)
		api.POST("/questions", limiter.Middleware(), handlers.Question.CreateQuestion)
		api.DELETE("/questions", limiter.Middleware(), handlers.Question.DeleteQuestion)

		api.GET("/exams/:id/paper", handlers.Paper.GetPaperHTML)
		api.GET("/exams/:id/paper.pdf", handlers.Paper.DownloadPaperPDF)
	}
}
