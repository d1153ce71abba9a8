package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pushp314/commit-backend/internal/metrics"
	"github.com/pushp314/commit-backend/internal/models"
	apperrors "github.com/pushp314/commit-backend/pkg/errors"
	"github.com/pushp314/commit-backend/pkg/utils"
	"gorm.io/gorm"
)

var ErrGoalModified = apperrors.Conflict("Goal was modified concurrently, please retry")

type CreateGoalInput struct {
	GoalName    string            `json:"goalName" binding:"required,max=200"`
	Description string            `json:"description" binding:"max=2000"`
	Category    string            `json:"category" binding:"omitempty,goalcategory"`
	Difficulty  models.Difficulty `json:"difficulty" binding:"omitempty,difficulty"`
	Deadline    string            `json:"deadline" binding:"required"`
	IsGroupGoal bool              `json:"isGroupGoal"`
	GroupID     string            `json:"groupId" binding:"required_if=IsGroupGoal true"`
}

// CompletionResult describes one completion event.
type CompletionResult struct {
	Goal *models.Goal `json:"goal"`
	// GoalCompleted is true once the goal itself is completed, which for a
	// group goal means every member has finished.
	GoalCompleted bool          `json:"goalCompleted"`
	Reward        *RewardResult `json:"reward"`
}

// ParseDeadline accepts RFC3339 or a bare YYYY-MM-DD date, which is read as
// the end of that local day.
func ParseDeadline(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if d, err := time.ParseInLocation("2006-01-02", value, time.Local); err == nil {
		return d.Add(24*time.Hour - time.Second), nil
	}
	return time.Time{}, apperrors.BadRequest("Deadline must be a date (YYYY-MM-DD) or an RFC3339 timestamp")
}

func CreateGoal(db *gorm.DB, userID string, in CreateGoalInput) (*models.Goal, error) {
	name := utils.CleanText(in.GoalName, 200)
	if name == "" {
		return nil, apperrors.BadRequest("Goal name is required")
	}

	deadline, err := ParseDeadline(in.Deadline)
	if err != nil {
		return nil, err
	}
	if models.DayKey(deadline) < models.DayKey(Now()) {
		return nil, apperrors.BadRequest("Deadline cannot be in the past")
	}

	difficulty := in.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}
	if !difficulty.Valid() {
		return nil, apperrors.BadRequest("Difficulty must be one of easy, medium, hard")
	}

	category := in.Category
	if category == "" {
		category = "other"
	}
	if !models.IsGoalCategory(category) {
		return nil, apperrors.BadRequest("Unknown goal category")
	}

	if in.IsGroupGoal && in.GroupID == "" {
		return nil, apperrors.BadRequest("groupId is required for group goals")
	}

	xp, tokens := difficulty.Rewards()
	goal := models.Goal{
		UserID:      userID,
		GoalName:    name,
		Description: utils.CleanText(in.Description, 2000),
		Category:    category,
		Difficulty:  difficulty,
		Deadline:    deadline,
		Status:      models.GoalActive,
		IsGroupGoal: in.IsGroupGoal,
		XPReward:    xp,
		TokenReward: tokens,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		user, err := findUser(tx, userID)
		if err != nil {
			return err
		}

		var members []models.GroupMember
		if in.IsGroupGoal {
			group, err := loadGroup(tx, in.GroupID)
			if err != nil {
				return err
			}
			if group.Member(userID) == nil {
				return apperrors.Forbidden("You are not a member of this group")
			}
			members = group.Members
			goal.GroupID = &group.ID
		}

		if err := tx.Create(&goal).Error; err != nil {
			return fmt.Errorf("create goal: %w", err)
		}

		if len(members) > 0 {
			completions := make([]models.GoalMemberCompletion, 0, len(members))
			for _, m := range members {
				completions = append(completions, models.GoalMemberCompletion{GoalID: goal.ID, UserID: m.UserID, Status: models.MemberActive})
			}
			if err := tx.Create(&completions).Error; err != nil {
				return fmt.Errorf("snapshot members: %w", err)
			}
			goal.MemberCompletions = completions

			if err := tx.Model(&models.Group{}).Where("id = ?", *goal.GroupID).
				Update("active_goals", gorm.Expr("active_goals + 1")).Error; err != nil {
				return fmt.Errorf("bump group goals: %w", err)
			}
		}

		return tx.Model(user).Update("stats_goals_created", gorm.Expr("stats_goals_created + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func loadGoal(db *gorm.DB, goalID string) (*models.Goal, error) {
	var goal models.Goal
	if err := db.Preload("MemberCompletions").First(&goal, "id = ?", goalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Goal not found")
		}
		return nil, fmt.Errorf("load goal: %w", err)
	}
	return &goal, nil
}

// updateGoal writes fields if the row still carries goal.Version.
func updateGoal(tx *gorm.DB, goal *models.Goal, fields map[string]interface{}) error {
	fields["version"] = goal.Version + 1
	res := tx.Model(&models.Goal{}).Where("id = ? AND version = ?", goal.ID, goal.Version).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update goal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrGoalModified
	}
	goal.Version++
	return nil
}

// decrementActive is the expression used for counters that must not go negative.
func decrementActive(column string) interface{} {
	return gorm.Expr(fmt.Sprintf("CASE WHEN %s > 0 THEN %s - 1 ELSE 0 END", column, column))
}

// finishGroupGoal moves the group's counters for a goal that just completed.
func finishGroupGoal(tx *gorm.DB, goal *models.Goal) error {
	if goal.GroupID == nil {
		return nil
	}
	return tx.Model(&models.Group{}).Where("id = ?", *goal.GroupID).Updates(map[string]interface{}{
		"active_goals":    decrementActive("active_goals"),
		"completed_goals": gorm.Expr("completed_goals + 1"),
		"total_xp":        gorm.Expr("total_xp + ?", goal.XPReward),
	}).Error
}

// CompleteGoal marks the goal complete for userID. Personal goals belong to
// their owner. Group goals are completed per member and finish when every
// member has.
func CompleteGoal(db *gorm.DB, goalID, userID string) (*CompletionResult, error) {
	var result *CompletionResult
	err := db.Transaction(func(tx *gorm.DB) error {
		goal, err := loadGoal(tx, goalID)
		if err != nil {
			return err
		}
		if goal.IsGroupGoal {
			result, err = completeGroupGoal(tx, goal, userID)
		} else {
			result, err = completePersonalGoal(tx, goal, userID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func completePersonalGoal(tx *gorm.DB, goal *models.Goal, userID string) (*CompletionResult, error) {
	if goal.UserID != userID {
		return nil, apperrors.Forbidden("Not authorized to complete this goal")
	}
	switch goal.Status {
	case models.GoalCompleted:
		return nil, apperrors.Conflict("Goal is already completed")
	case models.GoalFailed:
		return nil, apperrors.Conflict("Goal has already failed")
	}

	now := Now()
	if err := updateGoal(tx, goal, map[string]interface{}{
		"status":         models.GoalCompleted,
		"completed_date": now,
		"progress":       100,
	}); err != nil {
		return nil, err
	}
	goal.Status = models.GoalCompleted
	goal.CompletedDate = &now
	goal.Progress = 100

	user, err := findUser(tx, userID)
	if err != nil {
		return nil, err
	}
	reward, err := grantCompletion(tx, user, goal, now)
	if err != nil {
		return nil, err
	}

	metrics.RecordGoalCompletion("personal")
	return &CompletionResult{Goal: goal, GoalCompleted: true, Reward: reward}, nil
}

func completeGroupGoal(tx *gorm.DB, goal *models.Goal, userID string) (*CompletionResult, error) {
	if goal.GroupID == nil {
		return nil, apperrors.NotFound("Group not found")
	}
	group, err := loadGroup(tx, *goal.GroupID)
	if err != nil {
		return nil, err
	}
	if group.Member(userID) == nil {
		return nil, apperrors.Forbidden("Not authorized to complete this goal")
	}

	mc := goal.CompletionFor(userID)
	if mc != nil && mc.Status == models.MemberCompleted {
		return nil, apperrors.Conflict("You have already completed this goal")
	}
	if goal.Status != models.GoalActive {
		return nil, apperrors.Conflict("Goal is no longer active")
	}

	// Members who joined after the goal was created get their entry now.
	if mc == nil {
		entry := models.GoalMemberCompletion{GoalID: goal.ID, UserID: userID, Status: models.MemberActive}
		if err := tx.Create(&entry).Error; err != nil {
			return nil, fmt.Errorf("add member completion: %w", err)
		}
		goal.MemberCompletions = append(goal.MemberCompletions, entry)
		mc = &goal.MemberCompletions[len(goal.MemberCompletions)-1]
	}

	now := Now()
	res := tx.Model(&models.GoalMemberCompletion{}).
		Where("id = ? AND status = ?", mc.ID, models.MemberActive).
		Updates(map[string]interface{}{"status": models.MemberCompleted, "completed_date": now})
	if res.Error != nil {
		return nil, fmt.Errorf("complete member entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.Conflict("You have already completed this goal")
	}
	mc.Status = models.MemberCompleted
	mc.CompletedDate = &now

	finished, err := settleGroupGoal(tx, goal, now)
	if err != nil {
		return nil, err
	}

	user, err := findUser(tx, userID)
	if err != nil {
		return nil, err
	}
	reward, err := grantCompletion(tx, user, goal, now)
	if err != nil {
		return nil, err
	}

	metrics.RecordGoalCompletion("member")
	if finished {
		metrics.RecordGoalCompletion("group")
	}
	return &CompletionResult{Goal: goal, GoalCompleted: finished, Reward: reward}, nil
}

// settleGroupGoal recomputes the completion percentage from the stored member
// entries and completes the goal when all of them are done. It reports
// whether the goal finished in this call.
func settleGroupGoal(tx *gorm.DB, goal *models.Goal, now time.Time) (bool, error) {
	var total, done int64
	if err := tx.Model(&models.GoalMemberCompletion{}).Where("goal_id = ?", goal.ID).Count(&total).Error; err != nil {
		return false, fmt.Errorf("count members: %w", err)
	}
	if err := tx.Model(&models.GoalMemberCompletion{}).
		Where("goal_id = ? AND status = ?", goal.ID, models.MemberCompleted).
		Count(&done).Error; err != nil {
		return false, fmt.Errorf("count completed members: %w", err)
	}

	pct := models.CompletionPercentage(done, total)
	fields := map[string]interface{}{"completion_percentage": pct}
	finished := total > 0 && done == total && goal.Status == models.GoalActive
	if finished {
		fields["status"] = models.GoalCompleted
		fields["completed_date"] = now
		fields["progress"] = 100
	}

	if err := updateGoal(tx, goal, fields); err != nil {
		return false, err
	}
	goal.CompletionPercentage = pct
	if !finished {
		return false, nil
	}

	goal.Status = models.GoalCompleted
	goal.CompletedDate = &now
	goal.Progress = 100
	if err := finishGroupGoal(tx, goal); err != nil {
		return false, fmt.Errorf("update group counters: %w", err)
	}
	return true, nil
}

// UpdateProgress sets the owner's progress, clamped to [0,100]. Reaching 100
// on a personal goal completes it with the usual rewards.
func UpdateProgress(db *gorm.DB, goalID, userID string, progress int) (*CompletionResult, error) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	var result *CompletionResult
	err := db.Transaction(func(tx *gorm.DB) error {
		goal, err := loadGoal(tx, goalID)
		if err != nil {
			return err
		}
		if goal.UserID != userID {
			return apperrors.Forbidden("Not authorized to update this goal")
		}
		if goal.Status != models.GoalActive {
			return apperrors.Conflict("Only active goals can be updated")
		}

		if progress == 100 && !goal.IsGroupGoal {
			result, err = completePersonalGoal(tx, goal, userID)
			return err
		}

		if err := updateGoal(tx, goal, map[string]interface{}{"progress": progress}); err != nil {
			return err
		}
		goal.Progress = progress
		result = &CompletionResult{Goal: goal}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteGoal removes an owned goal after taking it out of its group's counters.
func DeleteGoal(db *gorm.DB, goalID, userID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		goal, err := loadGoal(tx, goalID)
		if err != nil {
			return err
		}
		if goal.UserID != userID {
			return apperrors.Forbidden("Not authorized to delete this goal")
		}

		if goal.IsGroupGoal && goal.GroupID != nil {
			column := ""
			switch goal.Status {
			case models.GoalActive:
				column = "active_goals"
			case models.GoalCompleted:
				column = "completed_goals"
			}
			if column != "" {
				if err := tx.Model(&models.Group{}).Where("id = ?", *goal.GroupID).
					Update(column, decrementActive(column)).Error; err != nil {
					return fmt.Errorf("update group counters: %w", err)
				}
			}
		}

		if err := tx.Where("goal_id = ?", goal.ID).Delete(&models.GoalMemberCompletion{}).Error; err != nil {
			return fmt.Errorf("delete member completions: %w", err)
		}
		res := tx.Where("id = ? AND version = ?", goal.ID, goal.Version).Delete(&models.Goal{})
		if res.Error != nil {
			return fmt.Errorf("delete goal: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrGoalModified
		}
		return nil
	})
}

type UserGoals struct {
	All            []models.Goal `json:"all"`
	Active         []models.Goal `json:"active"`
	Completed      []models.Goal `json:"completed"`
	Failed         []models.Goal `json:"failed"`
	TotalGoals     int           `json:"totalGoals"`
	ActiveCount    int           `json:"activeCount"`
	CompletedCount int           `json:"completedCount"`
	FailedCount    int           `json:"failedCount"`
}

func annotate(goal *models.Goal, userID string) {
	if !goal.IsGroupGoal {
		return
	}
	done := goal.CompletedBy(userID)
	goal.UserCompleted = &done
}

func creatorSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username", "profile_image", "level")
}

// ListUserGoals returns the user's personal goals plus the goals of every group
// they belong to, bucketed from the caller's point of view, newest first.
func ListUserGoals(db *gorm.DB, userID string) (*UserGoals, error) {
	var personal []models.Goal
	if err := db.Where("user_id = ? AND is_group_goal = ?", userID, false).
		Order("created_at desc").
		Find(&personal).Error; err != nil {
		return nil, fmt.Errorf("load personal goals: %w", err)
	}

	var shared []models.Goal
	if err := db.Preload("MemberCompletions").
		Preload("Group", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name", "image") }).
		Where("is_group_goal = ?", true).
		Where("group_id IN (?)", db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID)).
		Order("created_at desc").
		Find(&shared).Error; err != nil {
		return nil, fmt.Errorf("load group goals: %w", err)
	}

	all := append(personal, shared...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	out := &UserGoals{
		All:       all,
		Active:    []models.Goal{},
		Completed: []models.Goal{},
		Failed:    []models.Goal{},
	}
	if out.All == nil {
		out.All = []models.Goal{}
	}
	for i := range out.All {
		g := &out.All[i]
		annotate(g, userID)
		switch {
		case g.CompletedBy(userID):
			out.Completed = append(out.Completed, *g)
		case g.Status == models.GoalFailed:
			out.Failed = append(out.Failed, *g)
		default:
			out.Active = append(out.Active, *g)
		}
	}

	out.TotalGoals = len(out.All)
	out.ActiveCount = len(out.Active)
	out.CompletedCount = len(out.Completed)
	out.FailedCount = len(out.Failed)
	return out, nil
}

// ListGroupGoals returns a group's goals for one of its members.
func ListGroupGoals(db *gorm.DB, groupID, userID string) ([]models.Goal, error) {
	group, err := loadGroup(db, groupID)
	if err != nil {
		return nil, err
	}
	if group.Member(userID) == nil {
		return nil, apperrors.Forbidden("Not authorized to view this group's goals")
	}

	goals := []models.Goal{}
	if err := db.Preload("MemberCompletions").
		Preload("Creator", creatorSummary).
		Where("group_id = ? AND is_group_goal = ?", groupID, true).
		Order("created_at desc").
		Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("load group goals: %w", err)
	}
	for i := range goals {
		annotate(&goals[i], userID)
	}
	return goals, nil
}

// ExpireOverdueGoals fails every active goal whose deadline is before now and
// releases group goals from their group's active counter.
func ExpireOverdueGoals(db *gorm.DB, now time.Time) (int, error) {
	var overdue []models.Goal
	if err := db.Where("status = ? AND deadline < ?", models.GoalActive, now).Find(&overdue).Error; err != nil {
		return 0, fmt.Errorf("find overdue goals: %w", err)
	}

	expired := 0
	for i := range overdue {
		goal := &overdue[i]
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := updateGoal(tx, goal, map[string]interface{}{"status": models.GoalFailed}); err != nil {
				return err
			}
			if goal.IsGroupGoal && goal.GroupID != nil {
				return tx.Model(&models.Group{}).Where("id = ?", *goal.GroupID).
					Update("active_goals", decrementActive("active_goals")).Error
			}
			return nil
		})
		if errors.Is(err, ErrGoalModified) {
			// Completed or edited while the sweep ran; leave it alone.
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
	}

	metrics.RecordGoalsExpired(expired)
	return expired, nil
}
