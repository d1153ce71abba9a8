// Command migrate applies, rolls back or lists the versioned migrations.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pushp314/commit-backend/internal/config"
	"github.com/pushp314/commit-backend/internal/database"
	"github.com/pushp314/commit-backend/internal/migrations"
	"github.com/pushp314/commit-backend/pkg/logger"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [up|down|status]")
	}
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "status"
	}

	config.LoadConfig()
	logger.Init(config.AppConfig.Env)
	database.Connect()
	m := migrations.NewMigrator(database.DB)

	switch cmd {
	case "up":
		if err := database.AutoMigrate(database.DB); err != nil {
			logger.Fatal().Err(err).Msg("Failed to migrate tables")
		}
		if err := m.Run(); err != nil {
			logger.Fatal().Err(err).Msg("Migration failed")
		}
	case "down":
		if err := m.Rollback(); err != nil {
			logger.Fatal().Err(err).Msg("Rollback failed")
		}
	case "status":
		applied, err := m.Applied()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to read migration state")
		}
		for _, migration := range migrations.GetMigrations() {
			state := "pending"
			if applied[migration.ID] {
				state = "applied"
			}
			fmt.Printf("%-28s %s\n", migration.ID, state)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}
