package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActionType string

const (
	ActionExpireGoals      ActionType = "EXPIRE_GOALS"
	ActionSeedAchievements ActionType = "SEED_ACHIEVEMENTS"
)

// AdminAction is one entry of the admin audit trail.
type AdminAction struct {
	ID        string     `gorm:"primaryKey;type:text" json:"id"`
	AdminID   string     `gorm:"type:text;index" json:"adminId"`
	Action    ActionType `gorm:"type:text" json:"action"`
	Details   string     `json:"details"` // JSON string
	IPAddress string     `json:"ipAddress"`
	CreatedAt time.Time  `gorm:"index" json:"createdAt"`
}

func (a *AdminAction) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}
