package services

import (
	"net/http"
	"testing"
	"time"

	"github.com/pushp314/commit-backend/internal/config"
	"github.com/pushp314/commit-backend/internal/models"
	"github.com/pushp314/commit-backend/internal/seeds"
	"github.com/pushp314/commit-backend/internal/testutil"
	apperrors "github.com/pushp314/commit-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goalCount(title string, threshold int, xp int) models.Achievement {
	return models.Achievement{
		Title:    title,
		Rarity:   models.RarityCommon,
		XPReward: xp,
		Criteria: models.AchievementCriteria{Type: models.CriteriaGoalCount, Threshold: threshold},
	}
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0, ProgressPercent(0, 10))
	assert.Equal(t, 33, ProgressPercent(1, 3))
	assert.Equal(t, 67, ProgressPercent(2, 3))
	assert.Equal(t, 100, ProgressPercent(10, 10))
	assert.Equal(t, 100, ProgressPercent(25, 10))
	assert.Equal(t, 0, ProgressPercent(0, 0))
}

func TestEvaluate_GoalCountThreshold(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "alice")
	catalog := installCatalog(t, db, goalCount("Goal Getter", 10, 150))

	summary, err := ListUserAchievements(db, user.ID)
	require.NoError(t, err)
	assert.Len(t, summary.Locked, 1)
	view, err := AchievementProgress(db, user.ID, catalog[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Progress)
	assert.False(t, view.Unlocked)

	mustCompletePersonal(t, db, user.ID, 9, "")
	res, err := EvaluateAchievements(db, user.ID)
	require.NoError(t, err)
	assert.False(t, res.Unlocked)
	assert.Empty(t, res.NewAchievements)

	view, err = AchievementProgress(db, user.ID, catalog[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 90, view.Progress)

	before := testutil.Reload(t, db, user.ID)
	mustCompletePersonal(t, db, user.ID, 1, "")
	res, err = EvaluateAchievements(db, user.ID)
	require.NoError(t, err)
	require.True(t, res.Unlocked)
	require.Len(t, res.NewAchievements, 1)
	assert.Equal(t, "Goal Getter", res.NewAchievements[0].Title)

	after := testutil.Reload(t, db, user.ID)
	assert.Equal(t, before.Stats.AchievementsUnlocked+1, after.Stats.AchievementsUnlocked)
	// One more goal (100) plus the achievement reward (150), exactly once.
	assert.Equal(t, before.TotalXP+100+150, after.TotalXP)
	assert.Equal(t, after.TotalXP/1000+1, after.Level)

	again, err := EvaluateAchievements(db, user.ID)
	require.NoError(t, err)
	assert.False(t, again.Unlocked)
	assert.Empty(t, again.NewAchievements)
	assert.Equal(t, after.TotalXP, testutil.Reload(t, db, user.ID).TotalXP)

	summary, err = ListUserAchievements(db, user.ID)
	require.NoError(t, err)
	require.Len(t, summary.Unlocked, 1)
	assert.Equal(t, 100, summary.Unlocked[0].Progress)
	assert.NotNil(t, summary.Unlocked[0].UnlockedAt)
	assert.Equal(t, 100, summary.Stats.CompletionRate)
}

func TestEvaluate_CategoryAndTimeOfDayFilters(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "alice")

	bookworm := goalCount("Bookworm", 2, 200)
	bookworm.Criteria.Category = "reading"
	earlyBird := goalCount("Early Bird", 1, 100)
	earlyBird.Criteria.TimeOfDay = models.Morning
	nightOwl := goalCount("Night Owl", 1, 100)
	nightOwl.Criteria.TimeOfDay = models.Night
	installCatalog(t, db, bookworm, earlyBird, nightOwl)

	now := time.Now()
	freezeClock(t, time.Date(now.Year(), now.Month(), now.Day(), 8, 30, 0, 0, time.Local))
	mustCompletePersonal(t, db, user.ID, 1, "reading")
	mustCompletePersonal(t, db, user.ID, 1, "fitness")

	res, err := EvaluateAchievements(db, user.ID)
	require.NoError(t, err)
	require.Len(t, res.NewAchievements, 1)
	assert.Equal(t, "Early Bird", res.NewAchievements[0].Title)

	summary, err := ListUserAchievements(db, user.ID)
	require.NoError(t, err)
	require.Len(t, summary.InProgress, 1)
	assert.Equal(t, "Bookworm", summary.InProgress[0].Title)
	assert.Equal(t, 50, summary.InProgress[0].Progress)
	require.Len(t, summary.Locked, 1)
	assert.Equal(t, "Night Owl", summary.Locked[0].Title)
}

func TestEvaluate_MetaAchievementInSameRun(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "alice")

	hunter := models.Achievement{
		Title:    "Achievement Hunter",
		XPReward: 300,
		Criteria: models.AchievementCriteria{Type: models.CriteriaCompleteAchievements, Threshold: 2},
	}
	streak := models.Achievement{
		Title:    "Streak Starter",
		XPReward: 10,
		Criteria: models.AchievementCriteria{Type: models.CriteriaStreakDays, Threshold: 1},
	}
	installCatalog(t, db, hunter, goalCount("First Steps", 1, 50), streak)

	mustCompletePersonal(t, db, user.ID, 1, "")
	res, err := EvaluateAchievements(db, user.ID)
	require.NoError(t, err)
	assert.Len(t, res.NewAchievements, 3)

	u := testutil.Reload(t, db, user.ID)
	assert.Equal(t, 3, u.Stats.AchievementsUnlocked)
	assert.Equal(t, 100+300+50+10, u.TotalXP)

	again, err := EvaluateAchievements(db, user.ID)
	require.NoError(t, err)
	assert.Empty(t, again.NewAchievements)
}

func TestEvaluate_GroupGoalScopes(t *testing.T) {
	db := testutil.NewDB(t)
	_, members, goal := threeMemberGroup(t, db)

	groupScope := models.Achievement{
		Title:    "Team Finish",
		Criteria: models.AchievementCriteria{Type: models.CriteriaGroupGoals, Threshold: 1, Scope: models.ScopeGroup},
	}
	memberScope := models.Achievement{
		Title:    "Did My Part",
		Criteria: models.AchievementCriteria{Type: models.CriteriaGroupGoals, Threshold: 1, Scope: models.ScopeMember},
	}
	installCatalog(t, db, groupScope, memberScope)

	_, err := CompleteGoal(db, goal.ID, members[0].ID)
	require.NoError(t, err)

	res, err := EvaluateAchievements(db, members[0].ID)
	require.NoError(t, err)
	require.Len(t, res.NewAchievements, 1)
	assert.Equal(t, "Did My Part", res.NewAchievements[0].Title)

	// Members who did not finish still share in the group finishing.
	_, err = CompleteGoal(db, goal.ID, members[1].ID)
	require.NoError(t, err)
	_, err = CompleteGoal(db, goal.ID, members[2].ID)
	require.NoError(t, err)

	res, err = EvaluateAchievements(db, members[0].ID)
	require.NoError(t, err)
	require.Len(t, res.NewAchievements, 1)
	assert.Equal(t, "Team Finish", res.NewAchievements[0].Title)
}

func TestEvaluate_JoinGroups(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "alice")
	installCatalog(t, db, models.Achievement{
		Title:    "Social Butterfly",
		Criteria: models.AchievementCriteria{Type: models.CriteriaJoinGroups, Threshold: 2},
	})

	_, err := CreateGroup(db, user.ID, CreateGroupInput{Name: "One"})
	require.NoError(t, err)
	res, err := EvaluateAchievements(db, user.ID)
	require.NoError(t, err)
	assert.False(t, res.Unlocked)

	_, err = CreateGroup(db, user.ID, CreateGroupInput{Name: "Two"})
	require.NoError(t, err)
	res, err = EvaluateAchievements(db, user.ID)
	require.NoError(t, err)
	assert.True(t, res.Unlocked)
}

func TestEvaluate_MissingUser(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := EvaluateAchievements(db, "missing")
	assert.True(t, apperrors.Is(err, http.StatusNotFound))

	degraded := EvaluateAfterCompletion(db, "missing")
	assert.False(t, degraded.Unlocked)
	assert.NotNil(t, degraded.NewAchievements)
}

func TestEvaluate_AutoSeedsEmptyCatalog(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "alice")

	_, err := EvaluateAchievements(db, user.ID)
	require.NoError(t, err)

	var count int64
	db.Model(&models.Achievement{}).Count(&count)
	assert.Equal(t, int64(len(seeds.DefaultAchievements())), count)
}

func TestEvaluate_AutoSeedDisabled(t *testing.T) {
	db := testutil.NewDB(t)
	config.AppConfig.AchievementsAutoSeed = false
	user := testutil.CreateUser(t, db, "alice")

	res, err := EvaluateAchievements(db, user.ID)
	require.NoError(t, err)
	assert.False(t, res.Unlocked)

	var count int64
	db.Model(&models.Achievement{}).Count(&count)
	assert.Zero(t, count)
}

func TestAchievementProgress_NotFound(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "alice")

	_, err := AchievementProgress(db, user.ID, "missing")
	assert.True(t, apperrors.Is(err, http.StatusNotFound))
}

func TestLeaderboard_OrdersByUnlocksThenXP(t *testing.T) {
	db := testutil.NewDB(t)
	installCatalog(t, db, goalCount("First Steps", 1, 50), goalCount("Second Wind", 2, 50))

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carl := testutil.CreateUser(t, db, "carl")
	testutil.CreateUser(t, db, "idle")

	mustCompletePersonal(t, db, alice.ID, 2, "")
	mustCompletePersonal(t, db, bob.ID, 1, "")
	mustCompletePersonal(t, db, carl.ID, 1, "")
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", carl.ID).Update("total_xp", 900).Error)

	for _, id := range []string{alice.ID, bob.ID, carl.ID} {
		_, err := EvaluateAchievements(db, id)
		require.NoError(t, err)
	}

	board, err := Leaderboard(db, 0)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, alice.ID, board[0].UserID)
	assert.Equal(t, 2, board[0].AchievementCount)
	assert.Equal(t, carl.ID, board[1].UserID)
	assert.Equal(t, bob.ID, board[2].UserID)
	assert.Equal(t, 3, board[2].Rank)

	top, err := Leaderboard(db, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestUnlockedAchievements(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "alice")
	installCatalog(t, db, goalCount("First Steps", 1, 50), goalCount("Goal Getter", 10, 150))

	mustCompletePersonal(t, db, user.ID, 1, "")
	_, err := EvaluateAchievements(db, user.ID)
	require.NoError(t, err)

	badges, err := UnlockedAchievements(db, user.ID)
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Equal(t, "First Steps", badges[0].Title)
	assert.Equal(t, 1, badges[0].Criteria.Threshold)
}
