package migrations

import (
	"fmt"
	"time"

	"github.com/pushp314/commit-backend/pkg/logger"
	"gorm.io/gorm"
)

// Migration is one versioned schema change applied after AutoMigrate.
type Migration struct {
	ID        string // e.g. "001_goal_indexes"
	Name      string
	Up        func(db *gorm.DB) error
	Down      func(db *gorm.DB) error
	DependsOn []string
}

// MigrationRecord tracks which migrations have been applied
type MigrationRecord struct {
	ID        string    `gorm:"primaryKey;type:text"`
	Name      string    `gorm:"type:text"`
	AppliedAt time.Time `gorm:"autoUpdateTime:nano"`
}

func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{
		db:         db,
		migrations: GetMigrations(),
	}
}

// Applied returns the ids of migrations already recorded.
func (m *Migrator) Applied() (map[string]bool, error) {
	if err := m.db.AutoMigrate(&MigrationRecord{}); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	var applied []MigrationRecord
	if err := m.db.Find(&applied).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch applied migrations: %w", err)
	}

	done := make(map[string]bool, len(applied))
	for _, r := range applied {
		done[r.ID] = true
	}
	return done, nil
}

// Run executes all pending migrations in order, each in its own transaction.
func (m *Migrator) Run() error {
	applied, err := m.Applied()
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if applied[migration.ID] {
			continue
		}

		for _, dep := range migration.DependsOn {
			if !applied[dep] {
				return fmt.Errorf("migration %s depends on %s which is not applied", migration.ID, dep)
			}
		}

		logger.Info().Str("migration", migration.ID).Str("name", migration.Name).Msg("Running migration")

		if err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&MigrationRecord{ID: migration.ID, Name: migration.Name}).Error
		}); err != nil {
			logger.Error().Err(err).Str("migration", migration.ID).Msg("Migration failed")
			return fmt.Errorf("migration %s failed: %w", migration.ID, err)
		}

		applied[migration.ID] = true
		logger.Info().Str("migration", migration.ID).Msg("Migration completed")
	}

	return nil
}

// Rollback reverts the most recently registered applied migration.
func (m *Migrator) Rollback() error {
	applied, err := m.Applied()
	if err != nil {
		return err
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		migration := m.migrations[i]
		if !applied[migration.ID] {
			continue
		}
		if migration.Down == nil {
			return fmt.Errorf("migration %s cannot be rolled back", migration.ID)
		}
		return m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&MigrationRecord{}, "id = ?", migration.ID).Error
		})
	}
	return nil
}

// GetMigrations returns all registered migrations in order
func GetMigrations() []Migration {
	return []Migration{
		Migration001GoalIndexes(),
		Migration002LowercaseEmails(),
	}
}
