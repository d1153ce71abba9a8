package seeds

import (
	"errors"
	"fmt"

	"github.com/pushp314/commit-backend/internal/models"
	"github.com/pushp314/commit-backend/pkg/logger"
	"gorm.io/gorm"
)

// DefaultAchievements is the catalog installed by SeedAchievements.
func DefaultAchievements() []models.Achievement {
	return []models.Achievement{
		{
			Title:       "First Steps",
			Description: "Complete your first goal",
			Icon:        "👣",
			Category:    "productivity",
			Rarity:      models.RarityCommon,
			XPReward:    50,
			Criteria:    models.AchievementCriteria{Type: models.CriteriaGoalCount, Threshold: 1},
		},
		{
			Title:       "Early Bird",
			Description: "Complete 5 goals in the morning",
			Icon:        "🌅",
			Category:    "consistency",
			Rarity:      models.RarityCommon,
			XPReward:    100,
			Criteria:    models.AchievementCriteria{Type: models.CriteriaGoalCount, Threshold: 5, TimeOfDay: models.Morning},
		},
		{
			Title:       "Goal Getter",
			Description: "Complete 10 goals of any type",
			Icon:        "🎯",
			Category:    "productivity",
			Rarity:      models.RarityCommon,
			XPReward:    150,
			Criteria:    models.AchievementCriteria{Type: models.CriteriaGoalCount, Threshold: 10},
		},
		{
			Title:       "Fitness Fanatic",
			Description: "Complete 15 fitness goals",
			Icon:        "💪",
			Category:    "fitness",
			Rarity:      models.RarityUncommon,
			XPReward:    200,
			Criteria:    models.AchievementCriteria{Type: models.CriteriaGoalCount, Threshold: 15, Category: "fitness"},
		},
		{
			Title:       "Bookworm",
			Description: "Complete 10 reading goals",
			Icon:        "📚",
			Category:    "reading",
			Rarity:      models.RarityUncommon,
			XPReward:    200,
			Criteria:    models.AchievementCriteria{Type: models.CriteriaGoalCount, Threshold: 10, Category: "reading"},
		},
		{
			Title:       "Streak Master",
			Description: "Maintain a 7-day streak",
			Icon:        "🔥",
			Category:    "consistency",
			Rarity:      models.RarityUncommon,
			XPReward:    250,
			Criteria:    models.AchievementCriteria{Type: models.CriteriaStreakDays, Threshold: 7},
		},
		{
			Title:       "Social Butterfly",
			Description: "Join 3 different groups",
			Icon:        "🦋",
			Category:    "social",
			Rarity:      models.RarityUncommon,
			XPReward:    200,
			Criteria:    models.AchievementCriteria{Type: models.CriteriaJoinGroups, Threshold: 3},
		},
		{
			Title:       "Team Player",
			Description: "Finish 5 group goals together with your groups",
			Icon:        "🤝",
			Category:    "social",
			Rarity:      models.RarityRare,
			XPReward:    300,
			Criteria:    models.AchievementCriteria{Type: models.CriteriaGroupGoals, Threshold: 5, Scope: models.ScopeGroup},
		},
		{
			Title:       "Achievement Hunter",
			Description: "Unlock 5 other achievements",
			Icon:        "🏆",
			Category:    "meta",
			Rarity:      models.RarityRare,
			XPReward:    300,
			Criteria:    models.AchievementCriteria{Type: models.CriteriaCompleteAchievements, Threshold: 5},
		},
		{
			Title:       "Iron Will",
			Description: "Maintain a 30-day streak",
			Icon:        "⚙️",
			Category:    "consistency",
			Rarity:      models.RarityRare,
			XPReward:    500,
			Criteria:    models.AchievementCriteria{Type: models.CriteriaStreakDays, Threshold: 30},
		},
		{
			Title:       "Centurion",
			Description: "Complete 100 goals of any type",
			Icon:        "🏅",
			Category:    "productivity",
			Rarity:      models.RarityLegendary,
			XPReward:    1000,
			Criteria:    models.AchievementCriteria{Type: models.CriteriaGoalCount, Threshold: 100},
		},
	}
}

// SeedAchievements upserts DefaultAchievements by title and returns the stored rows.
// Running it repeatedly is safe: existing rows are updated in place and keep their ids.
func SeedAchievements(db *gorm.DB) ([]models.Achievement, error) {
	return UpsertAchievements(db, DefaultAchievements())
}

// UpsertAchievements writes each entry keyed by title inside one transaction.
func UpsertAchievements(db *gorm.DB, catalog []models.Achievement) ([]models.Achievement, error) {
	stored := make([]models.Achievement, 0, len(catalog))

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, a := range catalog {
			var existing models.Achievement
			err := tx.Where("title = ?", a.Title).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(&a).Error; err != nil {
					return fmt.Errorf("create achievement %q: %w", a.Title, err)
				}
				stored = append(stored, a)
			case err != nil:
				return fmt.Errorf("lookup achievement %q: %w", a.Title, err)
			default:
				a.ID = existing.ID
				a.CreatedAt = existing.CreatedAt
				if err := tx.Save(&a).Error; err != nil {
					return fmt.Errorf("update achievement %q: %w", a.Title, err)
				}
				stored = append(stored, a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Int("count", len(stored)).Msg("Achievement catalog seeded")
	return stored, nil
}
