package migrations

import (
	"gorm.io/gorm"
)

// Migration002LowercaseEmails normalizes stored emails; login lowercases input.
func Migration002LowercaseEmails() Migration {
	return Migration{
		ID:        "002_lowercase_emails",
		Name:      "Lowercase stored user emails",
		DependsOn: []string{"001_goal_indexes"},
		Up: func(db *gorm.DB) error {
			return db.Exec(`UPDATE users SET email = LOWER(TRIM(email)) WHERE email <> LOWER(TRIM(email))`).Error
		},
	}
}
