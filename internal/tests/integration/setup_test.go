// Package integration runs the goal lifecycle against a real PostgreSQL
// database. Set TEST_DATABASE_URL to a disposable database to enable it.
package integration

import (
	"os"
	"testing"

	"github.com/pushp314/commit-backend/internal/config"
	"github.com/pushp314/commit-backend/internal/database"
	"github.com/pushp314/commit-backend/internal/migrations"
	"github.com/pushp314/commit-backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	config.AppConfig = &config.Config{
		Env:                  "test",
		JWTSecret:            "test_secret_key_12345",
		AchievementsAutoSeed: true,
	}

	cfg := database.GormConfig()
	cfg.Logger = logger.Default.LogMode(logger.Silent)
	db, err := gorm.Open(postgres.Open(dsn), cfg)
	require.NoError(t, err)

	// Start from an empty schema every run.
	for _, m := range append(database.Models(), &migrations.MigrationRecord{}) {
		require.NoError(t, db.Migrator().DropTable(m))
	}
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, migrations.NewMigrator(db).Run())

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	database.DB = db
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:      username,
		Email:         username + "@example.com",
		Role:          models.RoleUser,
		CurrentStreak: 1,
		LongestStreak: 1,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
