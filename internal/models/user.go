package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// XPPerLevel is the amount of XP between two consecutive levels.
const XPPerLevel = 1000

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

type User struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Username     string `gorm:"index" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Password     string `json:"-"`
	ProfileImage string `json:"profileImage"`
	Bio          string `json:"bio"`
	Role         Role   `gorm:"type:text;default:'USER'" json:"role"`

	Level         int       `gorm:"default:1" json:"level"`
	TotalXP       int       `gorm:"column:total_xp;default:0;index" json:"totalXP"`
	Tokens        int       `gorm:"default:0" json:"tokens"`
	CurrentStreak int       `gorm:"default:0" json:"currentStreak"`
	LongestStreak int       `gorm:"default:0" json:"longestStreak"`
	LastActive    time.Time `json:"lastActive"`

	Stats    UserStats    `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	Settings UserSettings `gorm:"embedded;embeddedPrefix:settings_" json:"settings"`

	ResetTokenHash   string     `gorm:"index" json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
}

type UserStats struct {
	GoalsCreated         int `gorm:"default:0" json:"goalsCreated"`
	GoalsCompleted       int `gorm:"default:0" json:"goalsCompleted"`
	AchievementsUnlocked int `gorm:"default:0" json:"achievementsUnlocked"`
	GroupsJoined         int `gorm:"default:0" json:"groupsJoined"`
}

type UserSettings struct {
	EmailNotifications bool  `json:"emailNotifications"`
	PushNotifications  bool  `json:"pushNotifications"`
	Theme              Theme `gorm:"type:text;default:'dark'" json:"theme"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Level < 1 {
		u.Level = 1
	}
	if u.LastActive.IsZero() {
		u.LastActive = time.Now()
	}
	if u.Settings.Theme == "" {
		u.Settings = UserSettings{EmailNotifications: true, PushNotifications: true, Theme: ThemeDark}
	}
	return nil
}

// LevelForXP is floor(totalXP / XPPerLevel) + 1.
func LevelForXP(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	return totalXP/XPPerLevel + 1
}

// AddXP grants XP and raises the level when a threshold is crossed.
// Levels never go down.
func (u *User) AddXP(amount int) (leveledUp bool) {
	u.TotalXP += amount
	if next := LevelForXP(u.TotalXP); next > u.Level {
		u.Level = next
		return true
	}
	return false
}

// UpdateStreak applies a day of activity at now. Activity on the same local day
// is a no-op, activity on the following day extends the streak, anything later
// restarts it at 1.
func (u *User) UpdateStreak(now time.Time) {
	today := DayKey(now)
	if !u.LastActive.IsZero() && DayKey(u.LastActive) == today {
		return
	}

	if !u.LastActive.IsZero() && DayKey(u.LastActive) == DayKey(now.AddDate(0, 0, -1)) {
		u.CurrentStreak++
	} else {
		u.CurrentStreak = 1
	}
	if u.CurrentStreak > u.LongestStreak {
		u.LongestStreak = u.CurrentStreak
	}
	u.LastActive = now
}

// DayKey formats t's local calendar day as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.In(time.Local).Format("2006-01-02")
}
