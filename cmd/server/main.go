package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/internal/config"
	"github.com/pushp314/commit-backend/internal/database"
	"github.com/pushp314/commit-backend/internal/migrations"
	"github.com/pushp314/commit-backend/internal/routes"
	"github.com/pushp314/commit-backend/pkg/logger"
)

func main() {
	// 0. Load Config & Initialize Logger
	config.LoadConfig()
	env := config.AppConfig.Env
	logger.Init(env)
	if !logger.SetLevel(config.AppConfig.LogLevel) {
		logger.Warn().Str("level", config.AppConfig.LogLevel).Msg("Unknown LOG_LEVEL, keeping default")
	}

	logger.Info().Str("environment", env).Msg("Starting CommiT backend...")

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 1. Connect Database & Redis
	database.Connect()
	database.InitRedis()

	// 2. Schema
	logger.Info().Msg("Running database migrations...")
	if err := database.AutoMigrate(database.DB); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate tables")
	}
	if err := migrations.NewMigrator(database.DB).Run(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to apply versioned migrations")
	}
	logger.Info().Msg("Database migrations complete")

	// 3. Router
	r := routes.NewRouter()

	// 4. Start Server with graceful shutdown
	port := config.AppConfig.Port
	if port == "" {
		port = "3001"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", port).Str("env", env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	if database.Redis != nil {
		_ = database.Redis.Close()
	}

	logger.Info().Msg("Server exited gracefully")
}
