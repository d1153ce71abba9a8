package migrations

import (
	"gorm.io/gorm"
)

var goalIndexes = []struct{ name, ddl string }{
	// Group listings and live stats: WHERE group_id = ? AND is_group_goal AND status = ?
	{"idx_goals_group_status", `CREATE INDEX IF NOT EXISTS idx_goals_group_status ON goals (group_id, status)`},
	// Expire sweep: WHERE status = 'active' AND deadline < ?
	{"idx_goals_status_deadline", `CREATE INDEX IF NOT EXISTS idx_goals_status_deadline ON goals (status, deadline)`},
	// goal_count / group_goals member scope
	{"idx_member_completions_user_status", `CREATE INDEX IF NOT EXISTS idx_member_completions_user_status ON goal_member_completions (user_id, status)`},
	// Leaderboard join
	{"idx_user_achievements_unlocked", `CREATE INDEX IF NOT EXISTS idx_user_achievements_unlocked ON user_achievements (user_id, unlocked)`},
}

// Migration001GoalIndexes adds composite indexes for the hot read paths.
// Plain CREATE INDEX is used because the migrator runs inside a transaction.
func Migration001GoalIndexes() Migration {
	return Migration{
		ID:   "001_goal_indexes",
		Name: "Add composite indexes for goal, completion and leaderboard queries",
		Up: func(db *gorm.DB) error {
			for _, idx := range goalIndexes {
				if err := db.Exec(idx.ddl).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Down: func(db *gorm.DB) error {
			for i := len(goalIndexes) - 1; i >= 0; i-- {
				if err := db.Exec("DROP INDEX IF EXISTS " + goalIndexes[i].name).Error; err != nil {
					return err
				}
			}
			return nil
		},
	}
}
