package database

import (
	"fmt"
	"time"

	"github.com/pushp314/commit-backend/internal/config"
	"github.com/pushp314/commit-backend/internal/models"
	"github.com/pushp314/commit-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserActivity{},
		&models.Group{},
		&models.GroupMember{},
		&models.Goal{},
		&models.GoalMemberCompletion{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.AdminAction{},
	}
}

// GormConfig is shared by the server and the tests so both translate driver
// errors (unique violations become gorm.ErrDuplicatedKey).
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		// Ownership links (goal creator, group creator) outlive account
		// deletion cleanup order, so relations are kept without FK constraints.
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

func Connect() {
	dsn := config.AppConfig.DatabaseURL
	db, err := gorm.Open(postgres.Open(dsn), GormConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to get underlying sql.DB")
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	DB = db
	logger.Info().Int("max_open", 25).Int("max_idle", 10).Msg("Connected to PostgreSQL")
}

// AutoMigrate creates or updates every service table.
func AutoMigrate(db *gorm.DB) error {
	for _, m := range Models() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}
	return nil
}

// Ping reports whether the database answers.
func Ping() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
