package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pushp314/commit-backend/internal/config"
	"github.com/pushp314/commit-backend/internal/database"
	"github.com/pushp314/commit-backend/internal/models"
	"github.com/pushp314/commit-backend/pkg/logger"
	"github.com/pushp314/commit-backend/pkg/utils"
)

func main() {
	email := flag.String("email", "", "email of the account to promote")
	demote := flag.Bool("demote", false, "revoke admin instead")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: promote_admin -email user@example.com [-demote]")
		os.Exit(2)
	}

	config.LoadConfig()
	logger.Init(config.AppConfig.Env)
	database.Connect()

	role := models.RoleAdmin
	if *demote {
		role = models.RoleUser
	}

	res := database.DB.Model(&models.User{}).Where("email = ?", utils.NormalizeEmail(*email)).Update("role", role)
	if res.Error != nil {
		logger.Fatal().Err(res.Error).Msg("Failed to update user role")
	}
	if res.RowsAffected == 0 {
		logger.Fatal().Str("email", *email).Msg("User not found")
	}

	fmt.Printf("Set role of %s to %s.\n", *email, role)
}
