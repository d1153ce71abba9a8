package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Privacy string

const (
	PrivacyPublic  Privacy = "public"
	PrivacyPrivate Privacy = "private"
)

func (p Privacy) Valid() bool {
	return p == PrivacyPublic || p == PrivacyPrivate
}

type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

const DefaultMaxMembers = 10

type Group struct {
	ID          string        `gorm:"primaryKey;type:text" json:"id"`
	Name        string        `gorm:"not null" json:"name"`
	Description string        `json:"description"`
	Category    string        `gorm:"type:text;default:'other'" json:"category"`
	CreatorID   string        `gorm:"type:text;not null;index" json:"creatorId"`
	Creator     *User         `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Members     []GroupMember `gorm:"foreignKey:GroupID" json:"members"`
	Privacy     Privacy       `gorm:"type:text;default:'public';index" json:"privacy"`
	InviteCode  string        `gorm:"uniqueIndex;not null" json:"inviteCode"`
	MaxMembers  int           `gorm:"default:10" json:"maxMembers"`
	Image       string        `json:"image"`

	// Maintained incrementally by the goal lifecycle. Listing views recompute
	// these from the goal rows.
	ActiveGoals    int `gorm:"default:0" json:"activeGoals"`
	CompletedGoals int `gorm:"default:0" json:"completedGoals"`
	TotalXP        int `gorm:"column:total_xp;default:0" json:"totalXP"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.MaxMembers <= 0 {
		g.MaxMembers = DefaultMaxMembers
	}
	return nil
}

// Member returns userID's membership, or nil.
func (g *Group) Member(userID string) *GroupMember {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i]
		}
	}
	return nil
}

func (g *Group) IsAdmin(userID string) bool {
	m := g.Member(userID)
	return m != nil && m.Role == MemberRoleAdmin
}

func (g *Group) AdminCount() int {
	n := 0
	for _, m := range g.Members {
		if m.Role == MemberRoleAdmin {
			n++
		}
	}
	return n
}

type GroupMember struct {
	GroupID  string     `gorm:"primaryKey;type:text" json:"groupId"`
	UserID   string     `gorm:"primaryKey;type:text;index" json:"userId"`
	User     *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role     MemberRole `gorm:"type:text;default:'member'" json:"role"`
	JoinedAt time.Time  `json:"joinedAt"`
}
