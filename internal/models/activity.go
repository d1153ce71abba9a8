package models

// MaxActivityDays caps the per-user daily activity log.
const MaxActivityDays = 30

// UserActivity counts actions performed by a user on one local calendar day.
type UserActivity struct {
	UserID string `gorm:"primaryKey;type:text" json:"-"`
	Day    string `gorm:"primaryKey;type:text" json:"date"` // YYYY-MM-DD
	Count  int    `gorm:"default:0" json:"count"`
}

func (UserActivity) TableName() string {
	return "user_activities"
}
