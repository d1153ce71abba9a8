package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
)

type CriteriaType string

const (
	CriteriaGoalCount            CriteriaType = "goal_count"
	CriteriaStreakDays           CriteriaType = "streak_days"
	CriteriaJoinGroups           CriteriaType = "join_groups"
	CriteriaCompleteAchievements CriteriaType = "complete_achievements"
	CriteriaGroupGoals           CriteriaType = "group_goals"
)

type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"   // [05:00, 12:00)
	Afternoon TimeOfDay = "afternoon" // [12:00, 17:00)
	Evening   TimeOfDay = "evening"   // [17:00, 22:00)
	Night     TimeOfDay = "night"     // [22:00, 05:00)
)

// TimeOfDayFor buckets an hour of the day (0-23).
func TimeOfDayFor(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 22:
		return Evening
	default:
		return Night
	}
}

// GroupGoalScope selects what a group_goals criterion counts.
type GroupGoalScope string

const (
	// ScopeGroup counts fully completed goals of every group the user belongs to.
	ScopeGroup GroupGoalScope = "group"
	// ScopeMember counts group goals the user personally marked complete.
	ScopeMember GroupGoalScope = "member"
)

type AchievementCriteria struct {
	Type      CriteriaType   `gorm:"type:text;not null" json:"type"`
	Threshold int            `gorm:"not null" json:"threshold"`
	Category  string         `gorm:"type:text" json:"category,omitempty"`
	TimeOfDay TimeOfDay      `gorm:"type:text" json:"timeOfDay,omitempty"`
	Scope     GroupGoalScope `gorm:"type:text" json:"scope,omitempty"`
}

// Achievement is a catalog entry. Titles are unique; reseeding upserts by title.
type Achievement struct {
	ID          string              `gorm:"primaryKey;type:text" json:"id"`
	Title       string              `gorm:"uniqueIndex;not null" json:"title"`
	Description string              `json:"description"`
	Icon        string              `json:"icon"`
	Category    string              `gorm:"type:text" json:"category"`
	Rarity      Rarity              `gorm:"type:text;default:'common'" json:"rarity"`
	XPReward    int                 `gorm:"column:xp_reward" json:"xpReward"`
	Criteria    AchievementCriteria `gorm:"embedded;embeddedPrefix:criteria_" json:"criteria"`
	CreatedAt   time.Time           `json:"createdAt"`
}

func (a *Achievement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Rarity == "" {
		a.Rarity = RarityCommon
	}
	return nil
}

// UserAchievement is a user's progress toward one catalog entry.
type UserAchievement struct {
	UserID        string     `gorm:"primaryKey;type:text" json:"userId"`
	AchievementID string     `gorm:"primaryKey;type:text" json:"achievementId"`
	Progress      int        `json:"progress"` // raw criteria value, not a percentage
	Unlocked      bool       `gorm:"index" json:"unlocked"`
	UnlockedAt    *time.Time `json:"unlockedAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
