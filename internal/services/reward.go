package services

import (
	"fmt"
	"time"

	"github.com/pushp314/commit-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Now is the clock used for completion dates, streaks and unlock times.
var Now = time.Now

// RecordActivity bumps the user's counter for the local day of now and keeps
// only the most recent MaxActivityDays rows.
func RecordActivity(tx *gorm.DB, userID string, now time.Time) error {
	row := models.UserActivity{UserID: userID, Day: models.DayKey(now), Count: 1}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("user_activities.count + 1")}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}

	var cutoff []string
	if err := tx.Model(&models.UserActivity{}).
		Where("user_id = ?", userID).
		Order("day desc").
		Offset(models.MaxActivityDays - 1).
		Limit(1).
		Pluck("day", &cutoff).Error; err != nil {
		return fmt.Errorf("trim activity: %w", err)
	}
	if len(cutoff) == 0 {
		return nil
	}
	return tx.Where("user_id = ? AND day < ?", userID, cutoff[0]).Delete(&models.UserActivity{}).Error
}

// RecentActivity returns the user's activity log, newest day first.
func RecentActivity(db *gorm.DB, userID string) ([]models.UserActivity, error) {
	var rows []models.UserActivity
	err := db.Where("user_id = ?", userID).Order("day desc").Limit(models.MaxActivityDays).Find(&rows).Error
	return rows, err
}

// RewardResult reports what a single completion granted.
type RewardResult struct {
	XP        int  `json:"xp"`
	Tokens    int  `json:"tokens"`
	LeveledUp bool `json:"leveledUp"`
	Level     int  `json:"level"`
	Streak    int  `json:"streak"`
}

// grantCompletion credits one goal completion to user: tokens, the completed
// counter, XP, streak and the activity log. The user row is written once.
func grantCompletion(tx *gorm.DB, user *models.User, goal *models.Goal, now time.Time) (*RewardResult, error) {
	user.Tokens += goal.TokenReward
	user.Stats.GoalsCompleted++
	leveledUp := user.AddXP(goal.XPReward)
	user.UpdateStreak(now)

	if err := tx.Save(user).Error; err != nil {
		return nil, fmt.Errorf("save user rewards: %w", err)
	}
	if err := RecordActivity(tx, user.ID, now); err != nil {
		return nil, err
	}

	return &RewardResult{
		XP:        goal.XPReward,
		Tokens:    goal.TokenReward,
		LeveledUp: leveledUp,
		Level:     user.Level,
		Streak:    user.CurrentStreak,
	}, nil
}

// TouchLogin applies the login side of the streak rule and records activity.
func TouchLogin(db *gorm.DB, user *models.User, now time.Time) error {
	return db.Transaction(func(tx *gorm.DB) error {
		user.UpdateStreak(now)
		if err := tx.Model(user).Updates(map[string]interface{}{
			"current_streak": user.CurrentStreak,
			"longest_streak": user.LongestStreak,
			"last_active":    user.LastActive,
		}).Error; err != nil {
			return fmt.Errorf("update streak: %w", err)
		}
		return RecordActivity(tx, user.ID, now)
	})
}
