package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/examflow/examflow-backend/internal/config"
	"github.com/examflow/examflow-backend/internal/handler"
	"github.com/examflow/examflow-backend/internal/middleware"
	"github.com/examflow/examflow-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	Attempt *handler.AttemptHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	verifier *middleware.Verifier,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
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

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the write-heavy student endpoints (120 per minute per IP).
	studentLimiter := middleware.NewRateLimiter(120, time.Minute)

	// ─── 1. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(verifier),
		studentLimiter.Middleware(),
	)
	{
		studentAPI.POST("/sessions/:session_id/join", handlers.Attempt.Join)
		studentAPI.POST("/sessions/:session_id/start", handlers.Attempt.Start)
		studentAPI.PUT("/sessions/:session_id/answers", handlers.Attempt.SubmitAnswer)
		studentAPI.POST("/sessions/:session_id/finish", handlers.Attempt.Finish)
		studentAPI.GET("/sessions/:session_id/progress", handlers.Attempt.GetProgress)
	}

	// ─── 2. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(verifier))
	{
		ws.GET("/student/sessions/:session_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 3. Authority Group (JWT) ──────────────────────────────────────
	authorityAPI := router.Group("/api/v1/authority")
	authorityAPI.Use(middleware.RequireAuthorityJWT(verifier))
	{
		authorityAPI.POST("/sessions", handlers.Session.Create)
		authorityAPI.GET("/sessions", handlers.Session.List)
		authorityAPI.GET("/sessions/:session_id", handlers.Session.Get)
		authorityAPI.POST("/sessions/:session_id/publish", handlers.Session.Publish)
		authorityAPI.POST("/sessions/:session_id/activate", handlers.Session.Activate)
		authorityAPI.POST("/sessions/:session_id/end", handlers.Session.End)
		authorityAPI.POST("/sessions/:session_id/cancel", handlers.Session.Cancel)
		authorityAPI.PUT("/sessions/:session_id/window", handlers.Session.UpdateWindow)
		authorityAPI.DELETE("/sessions/:session_id", handlers.Session.Delete)
		authorityAPI.GET("/sessions/:session_id/attempts", handlers.Session.ListAttempts)
		authorityAPI.GET("/sessions/:session_id/stats", handlers.Session.Stats)
	}

	return router
}
