package services

import (
	"testing"
	"time"

	"github.com/pushp314/commit-backend/internal/models"
	"github.com/pushp314/commit-backend/internal/seeds"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// freezeClock pins Now to ts for the duration of the test.
func freezeClock(t *testing.T, ts time.Time) {
	t.Helper()
	Now = func() time.Time { return ts }
	t.Cleanup(func() { Now = time.Now })
}

func futureDeadline() string {
	return time.Now().AddDate(0, 0, 7).Format("2006-01-02")
}

func installCatalog(t *testing.T, db *gorm.DB, catalog ...models.Achievement) []models.Achievement {
	t.Helper()
	stored, err := seeds.UpsertAchievements(db, catalog)
	require.NoError(t, err)
	return stored
}

func mustCreateGoal(t *testing.T, db *gorm.DB, userID string, in CreateGoalInput) *models.Goal {
	t.Helper()
	if in.GoalName == "" {
		in.GoalName = "Read a chapter"
	}
	if in.Deadline == "" {
		in.Deadline = futureDeadline()
	}
	goal, err := CreateGoal(db, userID, in)
	require.NoError(t, err)
	return goal
}

func mustCompletePersonal(t *testing.T, db *gorm.DB, userID string, n int, category string) {
	t.Helper()
	for i := 0; i < n; i++ {
		goal := mustCreateGoal(t, db, userID, CreateGoalInput{Category: category})
		_, err := CompleteGoal(db, goal.ID, userID)
		require.NoError(t, err)
	}
}
