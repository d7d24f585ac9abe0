package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/ketracker/backend/config"
	"github.com/ketracker/backend/internal/ratelimit"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()

	// Global middleware
	router.Use(LoggerMiddleware(logger))
	router.Use(RecoveryMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	if limiter != nil {
		v1.Use(RateLimitMiddleware(limiter))
	}
	{
		v1.GET("/targets", handler.ListTargets)
		v1.POST("/refresh", handler.Refresh)

		checks := v1.Group("/checks")
		{
			checks.POST("/stock", handler.CheckStock)
			checks.POST("/changes", handler.CheckChanges)
		}

		v1.GET("/ratings", handler.SkuRatings)
		v1.GET("/journal/:kind", handler.JournalRows)
	}

	return router
}
