package api

import (
	"context"
	"net/http"
	"time"

	"github.com/anon-comments-api/internal/config"
	"github.com/anon-comments-api/internal/metrics"
	"github.com/anon-comments-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewRouter creates and configures the Gin router. health may be nil, in
// which case /health only reports liveness.
func NewRouter(services *service.Services, health HealthChecker, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Warn().Err(err).Msg("Invalid trusted proxy list, trusting none")
		_ = router.SetTrustedProxies(nil)
	}

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware(cfg.Server.AllowedOrigins))

	// Handlers
	commentHandler := NewCommentHandler(services, log)
	moderationHandler := NewModerationHandler(services, log)

	router.GET("/health", healthCheck(health))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1
	v1 := router.Group("/v1")
	{
		guarded := originGuard(cfg.Server.AllowedOrigins)

		v1.GET("/articles/:slug/comments", commentHandler.List)
		v1.POST("/articles/:slug/comments", guarded, commentHandler.Submit)
		v1.POST("/comments/:id/reports", guarded, commentHandler.Report)
		v1.DELETE("/comments/:id", guarded, commentHandler.SelfDelete)

		mod := v1.Group("/moderation", moderatorAuth(cfg.Security.ModeratorJWTSecret, log))
		{
			mod.GET("/comments", moderationHandler.Queue)
			mod.GET("/comments/:id", moderationHandler.View)
			mod.POST("/comments/:id/publish", moderationHandler.Publish)
			mod.POST("/comments/:id/hide", moderationHandler.Hide)
			mod.POST("/comments/:id/shadow", moderationHandler.Shadow)
			mod.POST("/comments/:id/ban", moderationHandler.BanFromComment)
			mod.POST("/articles/:slug/comments", moderationHandler.Post)

			mod.GET("/bans", moderationHandler.ListBans)
			mod.POST("/bans", moderationHandler.CreateBan)
			mod.DELETE("/bans/:id", moderationHandler.DeleteBan)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(health HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "anon-comments-api",
		}
		if health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := health.HealthCheck(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "unhealthy"
				body["database"] = "unreachable"
			} else {
				body["database"] = "ok"
			}
		}
		c.JSON(status, body)
	}
}
