package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pushp314/commit-backend/internal/config"
	"github.com/pushp314/commit-backend/internal/metrics"
	"github.com/pushp314/commit-backend/internal/models"
	"github.com/pushp314/commit-backend/internal/seeds"
	apperrors "github.com/pushp314/commit-backend/pkg/errors"
	"github.com/pushp314/commit-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EvaluationResult struct {
	Unlocked        bool                 `json:"unlocked"`
	NewAchievements []models.Achievement `json:"newAchievements"`
}

// completion is one goal finished by the user, dated by the user's own finish.
type completion struct {
	Category      string
	CompletedDate *time.Time
}

// userFacts is the snapshot criteria are evaluated against.
type userFacts struct {
	completions      []completion
	groupGoalsGroup  int
	groupGoalsMember int
}

func (f *userFacts) goalCount(c models.AchievementCriteria) int {
	n := 0
	for _, done := range f.completions {
		if c.Category != "" && done.Category != c.Category {
			continue
		}
		if c.TimeOfDay != "" {
			if done.CompletedDate == nil || models.TimeOfDayFor(done.CompletedDate.In(time.Local).Hour()) != c.TimeOfDay {
				continue
			}
		}
		n++
	}
	return n
}

// rawProgress is the unscaled progress of user toward criteria c.
func rawProgress(c models.AchievementCriteria, user *models.User, facts *userFacts) int {
	switch c.Type {
	case models.CriteriaGoalCount:
		return facts.goalCount(c)
	case models.CriteriaStreakDays:
		return user.CurrentStreak
	case models.CriteriaJoinGroups:
		return user.Stats.GroupsJoined
	case models.CriteriaCompleteAchievements:
		return user.Stats.AchievementsUnlocked
	case models.CriteriaGroupGoals:
		if c.Scope == models.ScopeMember {
			return facts.groupGoalsMember
		}
		return facts.groupGoalsGroup
	default:
		return 0
	}
}

// ProgressPercent is min(100, round(100*raw/threshold)).
func ProgressPercent(raw, threshold int) int {
	if threshold <= 0 {
		if raw > 0 {
			return 100
		}
		return 0
	}
	pct := (200*raw + threshold) / (2 * threshold)
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

func loadFacts(db *gorm.DB, userID string) (*userFacts, error) {
	facts := &userFacts{}

	var personal []completion
	if err := db.Model(&models.Goal{}).
		Select("category, completed_date").
		Where("user_id = ? AND is_group_goal = ? AND status = ?", userID, false, models.GoalCompleted).
		Scan(&personal).Error; err != nil {
		return nil, fmt.Errorf("load completed goals: %w", err)
	}

	var shared []completion
	if err := db.Table("goal_member_completions").
		Select("goals.category AS category, goal_member_completions.completed_date AS completed_date").
		Joins("JOIN goals ON goals.id = goal_member_completions.goal_id").
		Where("goal_member_completions.user_id = ? AND goal_member_completions.status = ?", userID, models.MemberCompleted).
		Scan(&shared).Error; err != nil {
		return nil, fmt.Errorf("load member completions: %w", err)
	}
	facts.completions = append(personal, shared...)
	facts.groupGoalsMember = len(shared)

	var groupDone int64
	if err := db.Model(&models.Goal{}).
		Where("is_group_goal = ? AND status = ?", true, models.GoalCompleted).
		Where("group_id IN (?)", db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID)).
		Count(&groupDone).Error; err != nil {
		return nil, fmt.Errorf("count group goals: %w", err)
	}
	facts.groupGoalsGroup = int(groupDone)

	return facts, nil
}

func autoSeedEnabled() bool {
	return config.AppConfig == nil || config.AppConfig.AchievementsAutoSeed
}

// loadCatalog returns the achievement catalog in a stable order, seeding the
// defaults into an empty catalog when autoseed is enabled.
func loadCatalog(tx *gorm.DB) ([]models.Achievement, error) {
	var catalog []models.Achievement
	if err := tx.Order("created_at asc, title asc").Find(&catalog).Error; err != nil {
		return nil, fmt.Errorf("load achievements: %w", err)
	}
	if len(catalog) > 0 || !autoSeedEnabled() {
		return catalog, nil
	}

	logger.Warn().Msg("Achievement catalog is empty, seeding defaults. Run cmd/seeder during deployment instead.")
	return seeds.SeedAchievements(tx)
}

func loadUserAchievements(db *gorm.DB, userID string) (map[string]models.UserAchievement, error) {
	var rows []models.UserAchievement
	if err := db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load user achievements: %w", err)
	}
	byID := make(map[string]models.UserAchievement, len(rows))
	for _, r := range rows {
		byID[r.AchievementID] = r
	}
	return byID, nil
}

func findUser(db *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// EvaluateAchievements recomputes the user's progress toward every catalog
// entry and unlocks the ones now satisfied. Each unlock grants its XP and
// bumps stats.achievementsUnlocked exactly once. Passes repeat until nothing
// new unlocks, so complete_achievements criteria see unlocks from the same run
// and a second call without new activity unlocks nothing.
func EvaluateAchievements(db *gorm.DB, userID string) (*EvaluationResult, error) {
	result := &EvaluationResult{NewAchievements: []models.Achievement{}}
	now := Now()

	err := db.Transaction(func(tx *gorm.DB) error {
		user, err := findUser(tx, userID)
		if err != nil {
			return err
		}

		catalog, err := loadCatalog(tx)
		if err != nil {
			return err
		}
		progress, err := loadUserAchievements(tx, userID)
		if err != nil {
			return err
		}
		facts, err := loadFacts(tx, userID)
		if err != nil {
			return err
		}

		changed := make(map[string]bool)
		for {
			unlockedThisPass := false
			for _, a := range catalog {
				ua, ok := progress[a.ID]
				if !ok {
					ua = models.UserAchievement{UserID: userID, AchievementID: a.ID}
				}
				if ua.Unlocked {
					continue
				}

				raw := rawProgress(a.Criteria, user, facts)
				if raw != ua.Progress || !ok {
					ua.Progress = raw
					changed[a.ID] = true
				}

				if raw >= a.Criteria.Threshold {
					unlockedAt := now
					ua.Unlocked = true
					ua.UnlockedAt = &unlockedAt
					user.AddXP(a.XPReward)
					user.Stats.AchievementsUnlocked++
					result.NewAchievements = append(result.NewAchievements, a)
					changed[a.ID] = true
					unlockedThisPass = true
				}
				progress[a.ID] = ua
			}
			if !unlockedThisPass {
				break
			}
		}

		if len(changed) == 0 {
			return nil
		}

		rows := make([]models.UserAchievement, 0, len(changed))
		for id := range changed {
			rows = append(rows, progress[id])
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].AchievementID < rows[j].AchievementID })
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error; err != nil {
			return fmt.Errorf("save achievement progress: %w", err)
		}

		if len(result.NewAchievements) == 0 {
			return nil
		}
		return tx.Model(user).Updates(map[string]interface{}{
			"total_xp":                    user.TotalXP,
			"level":                       user.Level,
			"stats_achievements_unlocked": user.Stats.AchievementsUnlocked,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	result.Unlocked = len(result.NewAchievements) > 0
	if result.Unlocked {
		for _, a := range result.NewAchievements {
			metrics.RecordAchievementUnlock(string(a.Rarity))
		}
		InvalidateLeaderboard()
		logger.Info().Str("user_id", userID).Int("count", len(result.NewAchievements)).Msg("Achievements unlocked")
	}
	return result, nil
}

// EvaluateAfterCompletion runs the reward engine after a completion has been
// committed. Failures are logged and reported as no unlock.
func EvaluateAfterCompletion(db *gorm.DB, userID string) *EvaluationResult {
	result, err := EvaluateAchievements(db, userID)
	if err != nil {
		log := logger.WithUser(userID)
		log.Error().Err(err).Msg("Achievement evaluation failed")
		return &EvaluationResult{NewAchievements: []models.Achievement{}}
	}
	return result
}

type AchievementView struct {
	models.Achievement
	Progress   int        `json:"progress"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt"`
}

type AchievementStats struct {
	Total          int `json:"total"`
	Unlocked       int `json:"unlocked"`
	InProgress     int `json:"inProgress"`
	Locked         int `json:"locked"`
	CompletionRate int `json:"completionRate"`
}

type AchievementSummary struct {
	Unlocked   []AchievementView `json:"unlocked"`
	InProgress []AchievementView `json:"inProgress"`
	Locked     []AchievementView `json:"locked"`
	Stats      AchievementStats  `json:"stats"`
}

// ListUserAchievements buckets the catalog by the user's stored progress.
// It never writes.
func ListUserAchievements(db *gorm.DB, userID string) (*AchievementSummary, error) {
	if _, err := findUser(db, userID); err != nil {
		return nil, err
	}

	var catalog []models.Achievement
	if err := db.Order("created_at asc, title asc").Find(&catalog).Error; err != nil {
		return nil, fmt.Errorf("load achievements: %w", err)
	}
	progress, err := loadUserAchievements(db, userID)
	if err != nil {
		return nil, err
	}

	summary := &AchievementSummary{
		Unlocked:   []AchievementView{},
		InProgress: []AchievementView{},
		Locked:     []AchievementView{},
	}
	for _, a := range catalog {
		ua := progress[a.ID]
		view := AchievementView{Achievement: a, Unlocked: ua.Unlocked, UnlockedAt: ua.UnlockedAt}
		switch {
		case ua.Unlocked:
			view.Progress = 100
			summary.Unlocked = append(summary.Unlocked, view)
		case ua.Progress > 0:
			view.Progress = ProgressPercent(ua.Progress, a.Criteria.Threshold)
			summary.InProgress = append(summary.InProgress, view)
		default:
			summary.Locked = append(summary.Locked, view)
		}
	}

	summary.Stats = AchievementStats{
		Total:      len(catalog),
		Unlocked:   len(summary.Unlocked),
		InProgress: len(summary.InProgress),
		Locked:     len(summary.Locked),
	}
	summary.Stats.CompletionRate = ProgressPercent(summary.Stats.Unlocked, summary.Stats.Total)
	return summary, nil
}

// AchievementProgress reports live progress toward a single achievement
// without persisting anything.
func AchievementProgress(db *gorm.DB, userID, achievementID string) (*AchievementView, error) {
	user, err := findUser(db, userID)
	if err != nil {
		return nil, err
	}

	var a models.Achievement
	if err := db.First(&a, "id = ?", achievementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Achievement not found")
		}
		return nil, fmt.Errorf("load achievement: %w", err)
	}

	var ua models.UserAchievement
	err = db.Where("user_id = ? AND achievement_id = ?", userID, achievementID).First(&ua).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load achievement progress: %w", err)
	}

	view := &AchievementView{Achievement: a, Unlocked: ua.Unlocked, UnlockedAt: ua.UnlockedAt}
	if ua.Unlocked {
		view.Progress = 100
		return view, nil
	}

	facts, err := loadFacts(db, userID)
	if err != nil {
		return nil, err
	}
	view.Progress = ProgressPercent(rawProgress(a.Criteria, user, facts), a.Criteria.Threshold)
	return view, nil
}

type unlockedRow struct {
	models.Achievement
	UnlockedAt *time.Time
}

// UnlockedAchievements returns the catalog entries the user has unlocked,
// most recent first. It backs the badge list on the profile.
func UnlockedAchievements(db *gorm.DB, userID string) ([]AchievementView, error) {
	var rows []unlockedRow
	err := db.Table("achievements").
		Select("achievements.*, user_achievements.unlocked_at AS unlocked_at").
		Joins("JOIN user_achievements ON user_achievements.achievement_id = achievements.id").
		Where("user_achievements.user_id = ? AND user_achievements.unlocked = ?", userID, true).
		Order("user_achievements.unlocked_at desc").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load badges: %w", err)
	}

	views := make([]AchievementView, 0, len(rows))
	for _, r := range rows {
		views = append(views, AchievementView{Achievement: r.Achievement, Progress: 100, Unlocked: true, UnlockedAt: r.UnlockedAt})
	}
	return views, nil
}
