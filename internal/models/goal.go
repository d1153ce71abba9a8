package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalFailed    GoalStatus = "failed"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type reward struct{ xp, tokens int }

var difficultyRewards = map[Difficulty]reward{
	DifficultyEasy:   {50, 5},
	DifficultyMedium: {100, 10},
	DifficultyHard:   {200, 20},
}

// Rewards returns the XP and token reward for a difficulty. Unknown values
// fall back to medium.
func (d Difficulty) Rewards() (xp int, tokens int) {
	r, ok := difficultyRewards[d]
	if !ok {
		r = difficultyRewards[DifficultyMedium]
	}
	return r.xp, r.tokens
}

func (d Difficulty) Valid() bool {
	_, ok := difficultyRewards[d]
	return ok
}

// GoalCategories is shared by goals and groups.
var GoalCategories = []string{
	"fitness", "reading", "learning", "meditation", "nutrition", "productivity",
	"creativity", "social", "finance", "career", "other",
}

func IsGoalCategory(category string) bool {
	for _, c := range GoalCategories {
		if c == category {
			return true
		}
	}
	return false
}

type Goal struct {
	ID          string     `gorm:"primaryKey;type:text" json:"id"`
	UserID      string     `gorm:"type:text;not null;index" json:"userId"`
	Creator     *User      `gorm:"foreignKey:UserID" json:"creator,omitempty"`
	GoalName    string     `gorm:"not null" json:"goalName"`
	Description string     `json:"description"`
	Category    string     `gorm:"type:text;default:'other'" json:"category"`
	Difficulty  Difficulty `gorm:"type:text;default:'medium'" json:"difficulty"`
	Deadline    time.Time  `gorm:"not null;index" json:"deadline"`
	Status      GoalStatus `gorm:"type:text;default:'active';index" json:"status"`
	Progress    int        `gorm:"default:0" json:"progress"`

	IsGroupGoal bool    `gorm:"default:false;index" json:"isGroupGoal"`
	GroupID     *string `gorm:"type:text;index" json:"groupId"`
	Group       *Group  `gorm:"foreignKey:GroupID" json:"group,omitempty"`

	CompletedDate *time.Time `json:"completedDate"`

	// Fixed at creation from Difficulty.
	XPReward    int `gorm:"column:xp_reward" json:"xpReward"`
	TokenReward int `json:"tokenReward"`

	MemberCompletions    []GoalMemberCompletion `gorm:"foreignKey:GoalID" json:"memberCompletions,omitempty"`
	CompletionPercentage int                    `gorm:"default:0" json:"completionPercentage"`

	// Version guards concurrent writes to the same goal row.
	Version int `gorm:"default:1;not null" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Per-caller view of a group goal, not persisted.
	UserCompleted *bool `gorm:"-" json:"userCompleted,omitempty"`
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.Version == 0 {
		g.Version = 1
	}
	return nil
}

// CompletionFor returns userID's member completion entry, or nil.
func (g *Goal) CompletionFor(userID string) *GoalMemberCompletion {
	for i := range g.MemberCompletions {
		if g.MemberCompletions[i].UserID == userID {
			return &g.MemberCompletions[i]
		}
	}
	return nil
}

// CompletedBy reports whether userID has finished the goal from their own
// point of view: the member entry for group goals, the status otherwise.
func (g *Goal) CompletedBy(userID string) bool {
	if !g.IsGroupGoal {
		return g.Status == GoalCompleted
	}
	mc := g.CompletionFor(userID)
	return mc != nil && mc.Status == MemberCompleted
}

type MemberCompletionStatus string

const (
	MemberActive    MemberCompletionStatus = "active"
	MemberCompleted MemberCompletionStatus = "completed"
)

// GoalMemberCompletion is one member's progress on a group goal.
type GoalMemberCompletion struct {
	ID            string                 `gorm:"primaryKey;type:text" json:"id"`
	GoalID        string                 `gorm:"type:text;not null;uniqueIndex:idx_goal_member" json:"goalId"`
	UserID        string                 `gorm:"type:text;not null;uniqueIndex:idx_goal_member;index" json:"user"`
	Status        MemberCompletionStatus `gorm:"type:text;default:'active'" json:"status"`
	CompletedDate *time.Time             `json:"completedDate"`
}

func (mc *GoalMemberCompletion) BeforeCreate(tx *gorm.DB) error {
	if mc.ID == "" {
		mc.ID = uuid.New().String()
	}
	if mc.Status == "" {
		mc.Status = MemberActive
	}
	return nil
}

// CompletionPercentage is round(100 * completed / total), 0 for an empty set.
func CompletionPercentage(completed, total int64) int {
	if total <= 0 {
		return 0
	}
	return int((200*completed + total) / (2 * total))
}
