// Command expire_goals marks overdue active goals as failed. It is meant to
// be run periodically by an external scheduler.
package main

import (
	"github.com/pushp314/commit-backend/internal/config"
	"github.com/pushp314/commit-backend/internal/database"
	"github.com/pushp314/commit-backend/internal/services"
	"github.com/pushp314/commit-backend/pkg/logger"
)

func main() {
	config.LoadConfig()
	logger.Init(config.AppConfig.Env)
	database.Connect()

	expired, err := services.ExpireOverdueGoals(database.DB, services.Now())
	if err != nil {
		logger.Fatal().Err(err).Msg("Goal expiry failed")
	}
	logger.Info().Int("expired", expired).Msg("Goal expiry complete")
}
