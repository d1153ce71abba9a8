// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pushp314/commit-backend/internal/config"
	"github.com/pushp314/commit-backend/internal/database"
	"github.com/pushp314/commit-backend/internal/models"
	"github.com/pushp314/commit-backend/pkg/utils"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const JWTSecret = "test_secret_key_12345"

// NewDB returns a migrated in-memory SQLite database private to t and
// installs it as database.DB.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	config.AppConfig = &config.Config{
		Env:                  "test",
		JWTSecret:            JWTSecret,
		ClientURL:            "http://localhost:5173",
		AchievementsAutoSeed: true,
	}

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the shared in-memory database alive and avoids
	// SQLite table lock errors between pooled connections.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	database.DB = db
	return db
}

// CreateUser inserts a user with password "password123", active today with
// a one day streak like a fresh registration.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hash),
		Role:     models.RoleUser,

		CurrentStreak: 1,
		LongestStreak: 1,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// Token issues a session token for userID.
func Token(t testing.TB, userID string) string {
	t.Helper()
	token, err := utils.GenerateToken(userID, utils.TokenTTL)
	require.NoError(t, err)
	return token
}

// Reload fetches a fresh copy of the user row.
func Reload(t testing.TB, db *gorm.DB, userID string) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, "id = ?", userID).Error)
	return &user
}
