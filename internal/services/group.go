package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pushp314/commit-backend/internal/models"
	apperrors "github.com/pushp314/commit-backend/pkg/errors"
	"github.com/pushp314/commit-backend/pkg/logger"
	"github.com/pushp314/commit-backend/pkg/utils"
	"gorm.io/gorm"
)

const inviteCodeAttempts = 5

// discoverLimit caps the public groups suggested next to the user's own.
const discoverLimit = 10

type CreateGroupInput struct {
	Name        string         `json:"name" binding:"required,max=100"`
	Description string         `json:"description" binding:"max=1000"`
	Category    string         `json:"category" binding:"omitempty,goalcategory"`
	Privacy     models.Privacy `json:"privacy" binding:"omitempty,privacy"`
	MaxMembers  int            `json:"maxMembers" binding:"omitempty,min=1,max=100"`
	Image       string         `json:"image" binding:"omitempty,max=500"`
}

// UpdateGroupInput carries only the fields the admin sent. An empty category
// or privacy is rejected, not treated as absent.
type UpdateGroupInput struct {
	Name        *string         `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string         `json:"description" binding:"omitempty,max=1000"`
	Category    *string         `json:"category" binding:"omitempty,goalcategory"`
	Privacy     *models.Privacy `json:"privacy" binding:"omitempty,privacy"`
	MaxMembers  *int            `json:"maxMembers" binding:"omitempty,min=1,max=100"`
	Image       *string         `json:"image" binding:"omitempty,max=500"`
}

type GroupStats struct {
	TotalGoals     int `json:"totalGoals"`
	ActiveGoals    int `json:"activeGoals"`
	CompletedGoals int `json:"completedGoals"`
	FailedGoals    int `json:"failedGoals"`
	CompletionRate int `json:"completionRate"`
}

func (s *GroupStats) add(status models.GoalStatus, n int) {
	s.TotalGoals += n
	switch status {
	case models.GoalActive:
		s.ActiveGoals += n
	case models.GoalCompleted:
		s.CompletedGoals += n
	case models.GoalFailed:
		s.FailedGoals += n
	}
	s.CompletionRate = models.CompletionPercentage(int64(s.CompletedGoals), int64(s.TotalGoals))
}

// GroupView is a group as presented to one caller, with counters taken from
// the live goal rows.
type GroupView struct {
	models.Group
	IsMember       bool          `json:"isMember"`
	IsAdmin        bool          `json:"isAdmin"`
	MemberCount    int           `json:"memberCount"`
	TotalGoals     int           `json:"totalGoals"`
	CompletionRate int           `json:"completionRate"`
	Goals          []models.Goal `json:"goals,omitempty"`
}

func newGroupView(group models.Group, userID string, stats GroupStats) GroupView {
	group.ActiveGoals = stats.ActiveGoals
	group.CompletedGoals = stats.CompletedGoals
	return GroupView{
		Group:          group,
		IsMember:       group.Member(userID) != nil,
		IsAdmin:        group.IsAdmin(userID),
		MemberCount:    len(group.Members),
		TotalGoals:     stats.TotalGoals,
		CompletionRate: stats.CompletionRate,
	}
}

func loadGroup(db *gorm.DB, groupID string) (*models.Group, error) {
	var group models.Group
	if err := db.Preload("Members").First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Group not found")
		}
		return nil, fmt.Errorf("load group: %w", err)
	}
	return &group, nil
}

// statsFor counts goals per status for each group id.
func statsFor(db *gorm.DB, groupIDs []string) (map[string]GroupStats, error) {
	out := make(map[string]GroupStats, len(groupIDs))
	if len(groupIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		GroupID string
		Status  models.GoalStatus
		N       int
	}
	if err := db.Model(&models.Goal{}).
		Select("group_id, status, COUNT(*) AS n").
		Where("is_group_goal = ? AND group_id IN ?", true, groupIDs).
		Group("group_id, status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("group stats: %w", err)
	}
	for _, r := range rows {
		s := out[r.GroupID]
		s.add(r.Status, r.N)
		out[r.GroupID] = s
	}
	return out, nil
}

// Stats derives goal counts and completion rate for one group.
func Stats(db *gorm.DB, groupID string) (GroupStats, error) {
	all, err := statsFor(db, []string{groupID})
	if err != nil {
		return GroupStats{}, err
	}
	return all[groupID], nil
}

func CreateGroup(db *gorm.DB, userID string, in CreateGroupInput) (*models.Group, error) {
	name := utils.CleanText(in.Name, 100)
	if name == "" {
		return nil, apperrors.BadRequest("Group name is required")
	}
	category := in.Category
	if category == "" {
		category = "other"
	}
	privacy := in.Privacy
	if privacy == "" {
		privacy = models.PrivacyPublic
	}
	if !privacy.Valid() {
		return nil, apperrors.BadRequest("Privacy must be public or private")
	}
	if !models.IsGoalCategory(category) {
		return nil, apperrors.BadRequest("Unknown group category")
	}
	maxMembers := in.MaxMembers
	if maxMembers <= 0 {
		maxMembers = models.DefaultMaxMembers
	}

	for attempt := 1; ; attempt++ {
		code, err := utils.GenerateInviteCode()
		if err != nil {
			return nil, fmt.Errorf("generate invite code: %w", err)
		}

		group := models.Group{
			Name:        name,
			Description: utils.CleanText(in.Description, 1000),
			Category:    category,
			CreatorID:   userID,
			Privacy:     privacy,
			InviteCode:  code,
			MaxMembers:  maxMembers,
			Image:       in.Image,
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			user, err := findUser(tx, userID)
			if err != nil {
				return err
			}
			if err := tx.Create(&group).Error; err != nil {
				return err
			}
			admin := models.GroupMember{GroupID: group.ID, UserID: userID, Role: models.MemberRoleAdmin, JoinedAt: Now()}
			if err := tx.Create(&admin).Error; err != nil {
				return fmt.Errorf("add creator: %w", err)
			}
			group.Members = []models.GroupMember{admin}
			return tx.Model(user).Update("stats_groups_joined", gorm.Expr("stats_groups_joined + 1")).Error
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < inviteCodeAttempts {
			logger.Warn().Int("attempt", attempt).Msg("Invite code collision, retrying")
			continue
		}
		if err != nil {
			if _, ok := apperrors.From(err); ok {
				return nil, err
			}
			return nil, fmt.Errorf("create group: %w", err)
		}
		return &group, nil
	}
}

// GetGroup returns a group with its members and goals. Private groups are
// visible to members only.
func GetGroup(db *gorm.DB, groupID, userID string) (*GroupView, error) {
	var group models.Group
	err := db.Preload("Members.User", creatorSummary).
		Preload("Creator", creatorSummary).
		First(&group, "id = ?", groupID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Group not found")
		}
		return nil, fmt.Errorf("load group: %w", err)
	}
	if group.Privacy == models.PrivacyPrivate && group.Member(userID) == nil {
		return nil, apperrors.Forbidden("You do not have access to this private group")
	}

	goals := []models.Goal{}
	if err := db.Preload("MemberCompletions").
		Preload("Creator", creatorSummary).
		Where("group_id = ? AND is_group_goal = ?", groupID, true).
		Order("created_at desc").
		Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("load group goals: %w", err)
	}

	var stats GroupStats
	for i := range goals {
		annotate(&goals[i], userID)
		stats.add(goals[i].Status, 1)
	}

	view := newGroupView(group, userID, stats)
	view.Goals = goals
	if !view.IsMember {
		view.InviteCode = ""
	}
	return &view, nil
}

// ListUserGroups returns the caller's groups followed by up to discoverLimit
// public groups they have not joined.
func ListUserGroups(db *gorm.DB, userID string) ([]GroupView, error) {
	memberOf := db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID)

	var mine []models.Group
	if err := db.Preload("Members").Preload("Creator", creatorSummary).
		Where("id IN (?)", memberOf).
		Order("created_at desc").
		Find(&mine).Error; err != nil {
		return nil, fmt.Errorf("load user groups: %w", err)
	}

	var discover []models.Group
	if err := db.Preload("Members").Preload("Creator", creatorSummary).
		Where("privacy = ? AND id NOT IN (?)", models.PrivacyPublic, memberOf).
		Order("created_at desc").
		Limit(discoverLimit).
		Find(&discover).Error; err != nil {
		return nil, fmt.Errorf("load public groups: %w", err)
	}

	ids := make([]string, 0, len(mine)+len(discover))
	for _, g := range mine {
		ids = append(ids, g.ID)
	}
	for _, g := range discover {
		ids = append(ids, g.ID)
	}
	stats, err := statsFor(db, ids)
	if err != nil {
		return nil, err
	}

	views := make([]GroupView, 0, len(ids))
	for _, g := range mine {
		views = append(views, newGroupView(g, userID, stats[g.ID]))
	}
	for _, g := range discover {
		v := newGroupView(g, userID, stats[g.ID])
		v.InviteCode = ""
		views = append(views, v)
	}
	return views, nil
}

func join(tx *gorm.DB, group *models.Group, userID, inviteCode string) error {
	if group.Member(userID) != nil {
		return apperrors.Conflict("You are already a member of this group")
	}
	if len(group.Members) >= group.MaxMembers {
		return apperrors.Conflict("Group has reached maximum capacity")
	}
	if group.Privacy == models.PrivacyPrivate && !strings.EqualFold(strings.TrimSpace(inviteCode), group.InviteCode) {
		return apperrors.Forbidden("Invalid invite code")
	}

	user, err := findUser(tx, userID)
	if err != nil {
		return err
	}

	member := models.GroupMember{GroupID: group.ID, UserID: userID, Role: models.MemberRoleMember, JoinedAt: Now()}
	if err := tx.Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict("You are already a member of this group")
		}
		return fmt.Errorf("add member: %w", err)
	}

	// A concurrent join may have taken the last seat.
	var count int64
	if err := tx.Model(&models.GroupMember{}).Where("group_id = ?", group.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("count members: %w", err)
	}
	if int(count) > group.MaxMembers {
		return apperrors.Conflict("Group has reached maximum capacity")
	}

	// New members take part in the group's open goals.
	var open []string
	if err := tx.Model(&models.Goal{}).
		Where("group_id = ? AND is_group_goal = ? AND status = ?", group.ID, true, models.GoalActive).
		Pluck("id", &open).Error; err != nil {
		return fmt.Errorf("load open goals: %w", err)
	}
	for _, goalID := range open {
		entry := models.GoalMemberCompletion{GoalID: goalID, UserID: userID, Status: models.MemberActive}
		if err := tx.Where("goal_id = ? AND user_id = ?", goalID, userID).FirstOrCreate(&entry).Error; err != nil {
			return fmt.Errorf("add member completion: %w", err)
		}
		goal, err := loadGoal(tx, goalID)
		if err != nil {
			return err
		}
		if _, err := settleGroupGoal(tx, goal, Now()); err != nil {
			return err
		}
	}

	group.Members = append(group.Members, member)
	return tx.Model(user).Update("stats_groups_joined", gorm.Expr("stats_groups_joined + 1")).Error
}

// JoinGroup adds userID to the group. Private groups require their invite code.
func JoinGroup(db *gorm.DB, groupID, userID, inviteCode string) (*models.Group, error) {
	var group *models.Group
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		if group, err = loadGroup(tx, groupID); err != nil {
			return err
		}
		return join(tx, group, userID, inviteCode)
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// JoinGroupByCode looks the group up by invite code and joins it.
func JoinGroupByCode(db *gorm.DB, inviteCode, userID string) (*models.Group, error) {
	code := strings.ToUpper(strings.TrimSpace(inviteCode))
	if code == "" {
		return nil, apperrors.BadRequest("Invite code is required")
	}

	var group *models.Group
	err := db.Transaction(func(tx *gorm.DB) error {
		var found models.Group
		if err := tx.Preload("Members").First(&found, "invite_code = ?", code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("No group found with this invite code")
			}
			return fmt.Errorf("find group by code: %w", err)
		}
		group = &found
		return join(tx, group, userID, code)
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// LeaveGroup removes userID from the group. The sole admin of a group with
// other members must hand over first. The last member leaving deletes the
// group and its goals; the returned flag reports that case.
func LeaveGroup(db *gorm.DB, groupID, userID string) (deleted bool, err error) {
	err = db.Transaction(func(tx *gorm.DB) error {
		group, err := loadGroup(tx, groupID)
		if err != nil {
			return err
		}
		member := group.Member(userID)
		if member == nil {
			return apperrors.BadRequest("You are not a member of this group")
		}
		if member.Role == models.MemberRoleAdmin && group.AdminCount() == 1 && len(group.Members) >= 2 {
			return apperrors.Conflict("You cannot leave the group as you are the only admin. Please assign another admin first.")
		}

		if err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{}).Error; err != nil {
			return fmt.Errorf("remove member: %w", err)
		}

		if len(group.Members) == 1 {
			deleted = true
			return deleteGroup(tx, groupID)
		}
		return releaseMemberGoals(tx, groupID, userID, false)
	})
	return deleted, err
}

// releaseMemberGoals drops a departing member's unfinished entries on the
// group's open goals and re-settles them. With dropCompleted the finished
// entries go too, so the percentage only counts members still around.
func releaseMemberGoals(tx *gorm.DB, groupID, userID string, dropCompleted bool) error {
	var open []models.Goal
	if err := tx.Preload("MemberCompletions").
		Where("group_id = ? AND is_group_goal = ? AND status = ?", groupID, true, models.GoalActive).
		Find(&open).Error; err != nil {
		return fmt.Errorf("load open goals: %w", err)
	}

	now := Now()
	for i := range open {
		goal := &open[i]
		mc := goal.CompletionFor(userID)
		if mc == nil || (mc.Status == models.MemberCompleted && !dropCompleted) {
			continue
		}
		if err := tx.Delete(&models.GoalMemberCompletion{}, "id = ?", mc.ID).Error; err != nil {
			return fmt.Errorf("remove member completion: %w", err)
		}
		if _, err := settleGroupGoal(tx, goal, now); err != nil {
			return err
		}
	}
	return nil
}

// deleteGroup removes a group together with its goals and their member entries.
func deleteGroup(tx *gorm.DB, groupID string) error {
	goalIDs := tx.Model(&models.Goal{}).Select("id").Where("group_id = ?", groupID)
	if err := tx.Where("goal_id IN (?)", goalIDs).Delete(&models.GoalMemberCompletion{}).Error; err != nil {
		return fmt.Errorf("delete goal completions: %w", err)
	}
	if err := tx.Where("group_id = ?", groupID).Delete(&models.Goal{}).Error; err != nil {
		return fmt.Errorf("delete group goals: %w", err)
	}
	if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
		return fmt.Errorf("delete members: %w", err)
	}
	if err := tx.Delete(&models.Group{}, "id = ?", groupID).Error; err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	logger.Info().Str("group_id", groupID).Msg("Group deleted after last member left")
	return nil
}

func requireAdmin(group *models.Group, userID, message string) error {
	if group.IsAdmin(userID) {
		return nil
	}
	return apperrors.Forbidden(message)
}

// UpdateGroup applies the fields present in in. Admins only.
func UpdateGroup(db *gorm.DB, groupID, userID string, in UpdateGroupInput) (*models.Group, error) {
	var group *models.Group
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		if group, err = loadGroup(tx, groupID); err != nil {
			return err
		}
		if err := requireAdmin(group, userID, "Only group admins can update group details"); err != nil {
			return err
		}

		fields := map[string]interface{}{}
		if in.Name != nil {
			name := utils.CleanText(*in.Name, 100)
			if name == "" {
				return apperrors.BadRequest("Group name cannot be empty")
			}
			fields["name"], group.Name = name, name
		}
		if in.Description != nil {
			desc := utils.CleanText(*in.Description, 1000)
			fields["description"], group.Description = desc, desc
		}
		if in.Category != nil {
			if !models.IsGoalCategory(*in.Category) {
				return apperrors.BadRequest("Unknown group category")
			}
			fields["category"], group.Category = *in.Category, *in.Category
		}
		if in.Privacy != nil {
			if !in.Privacy.Valid() {
				return apperrors.BadRequest("Privacy must be public or private")
			}
			fields["privacy"], group.Privacy = *in.Privacy, *in.Privacy
		}
		if in.MaxMembers != nil {
			if *in.MaxMembers < len(group.Members) {
				return apperrors.BadRequest(fmt.Sprintf("maxMembers cannot be lower than the current member count (%d)", len(group.Members)))
			}
			fields["max_members"], group.MaxMembers = *in.MaxMembers, *in.MaxMembers
		}
		if in.Image != nil {
			fields["image"], group.Image = *in.Image, *in.Image
		}
		if len(fields) == 0 {
			return nil
		}
		return tx.Model(&models.Group{}).Where("id = ?", groupID).Updates(fields).Error
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// RegenerateInviteCode replaces the group's invite code. Membership is untouched.
func RegenerateInviteCode(db *gorm.DB, groupID, userID string) (string, error) {
	group, err := loadGroup(db, groupID)
	if err != nil {
		return "", err
	}
	if err := requireAdmin(group, userID, "Only group admins can generate new invite codes"); err != nil {
		return "", err
	}

	for attempt := 1; ; attempt++ {
		code, err := utils.GenerateInviteCode()
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		if code == group.InviteCode {
			continue
		}
		err = db.Model(&models.Group{}).Where("id = ?", groupID).Update("invite_code", code).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < inviteCodeAttempts {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("update invite code: %w", err)
		}
		return code, nil
	}
}
