// Command seeder installs or refreshes the default achievement catalog.
package main

import (
	"github.com/pushp314/commit-backend/internal/config"
	"github.com/pushp314/commit-backend/internal/database"
	"github.com/pushp314/commit-backend/internal/seeds"
	"github.com/pushp314/commit-backend/pkg/logger"
)

func main() {
	config.LoadConfig()
	logger.Init(config.AppConfig.Env)
	database.Connect()

	if err := database.AutoMigrate(database.DB); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate tables")
	}

	catalog, err := seeds.SeedAchievements(database.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to seed achievements")
	}
	logger.Info().Int("achievements", len(catalog)).Msg("Seeding complete")
}
