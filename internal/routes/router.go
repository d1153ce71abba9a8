package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/internal/database"
	"github.com/pushp314/commit-backend/internal/handlers"
	"github.com/pushp314/commit-backend/internal/metrics"
	"github.com/pushp314/commit-backend/internal/middleware"
)

// NewRouter builds the engine with the global middleware chain, the /api
// surface, /health and /metrics.
func NewRouter() *gin.Engine {
	handlers.RegisterValidators()

	r := gin.New()
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	api.Use(middleware.GeneralRateLimit())
	{
		RegisterAuthRoutes(api.Group("/auth"))

		RegisterGoalRoutes(api)
		RegisterGroupRoutes(api)
		RegisterAchievementRoutes(api)
		RegisterAdminRoutes(api)
	}

	r.GET("/health", health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

func health(c *gin.Context) {
	dbStatus := "ok"
	redisStatus := "ok"

	if err := database.Ping(); err != nil {
		dbStatus = "error"
	}

	if database.Redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := database.Redis.Ping(ctx).Err(); err != nil {
			redisStatus = "error"
		}
	} else {
		redisStatus = "not configured"
	}

	status := "ok"
	code := http.StatusOK
	if dbStatus != "ok" {
		status, code = "down", http.StatusServiceUnavailable
	} else if redisStatus == "error" {
		status = "degraded"
	}

	c.JSON(code, gin.H{
		"status": status,
		"checks": gin.H{
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}
