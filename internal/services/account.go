package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/pushp314/commit-backend/internal/config"
	"github.com/pushp314/commit-backend/internal/models"
	apperrors "github.com/pushp314/commit-backend/pkg/errors"
	"github.com/pushp314/commit-backend/pkg/logger"
	"github.com/pushp314/commit-backend/pkg/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ResetTokenTTL bounds how long a password reset link stays usable.
const ResetTokenTTL = time.Hour

// BcryptCost is lowered by tests.
var BcryptCost = bcrypt.DefaultCost

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Username string `json:"username" binding:"omitempty,min=3,max=30"`
}

type SettingsInput struct {
	EmailNotifications *bool         `json:"emailNotifications"`
	PushNotifications  *bool         `json:"pushNotifications"`
	Theme              *models.Theme `json:"theme" binding:"omitempty,oneof=dark light"`
}

type UpdateProfileInput struct {
	Username     *string        `json:"username" binding:"omitempty,min=3,max=30"`
	Bio          *string        `json:"bio" binding:"omitempty,max=500"`
	ProfileImage *string        `json:"profileImage" binding:"omitempty,max=500"`
	Settings     *SettingsInput `json:"settings"`
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Register creates an account. The first day counts as activity, so new
// users start on a one day streak.
func Register(db *gorm.DB, in RegisterInput) (*models.User, error) {
	email := utils.NormalizeEmail(in.Email)
	username := in.Username
	if username == "" {
		username = utils.UsernameFromEmail(email)
	}
	if !utils.ValidateUsername(username) {
		return nil, apperrors.BadRequest("Username must be 3-30 characters of letters, numbers, dots, underscores or hyphens")
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := Now()
	user := &models.User{
		Email:         email,
		Username:      username,
		Password:      hash,
		Role:          models.RoleUser,
		CurrentStreak: 1,
		LongestStreak: 1,
		LastActive:    now,
	}
	if config.AppConfig != nil && config.AppConfig.IsAdminEmail(email) {
		user.Role = models.RoleAdmin
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if count > 0 {
			return apperrors.Conflict("User already exists")
		}

		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict("User already exists")
			}
			return fmt.Errorf("create user: %w", err)
		}
		return RecordActivity(tx, user.ID, now)
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Str("user_id", user.ID).Msg("User registered")
	return user, nil
}

// Authenticate checks credentials and applies the login streak. Accounts
// listed in ADMIN_EMAILS are promoted on the way in.
func Authenticate(db *gorm.DB, email, password string) (*models.User, error) {
	var user models.User
	if err := db.Where("email = ?", utils.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Unauthorized("Invalid credentials")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		logger.Warn().Str("user_id", user.ID).Msg("Login failed: invalid password")
		return nil, apperrors.Unauthorized("Invalid credentials")
	}

	if user.Role != models.RoleAdmin && config.AppConfig != nil && config.AppConfig.IsAdminEmail(user.Email) {
		if err := db.Model(&user).Update("role", models.RoleAdmin).Error; err != nil {
			return nil, fmt.Errorf("promote admin: %w", err)
		}
		user.Role = models.RoleAdmin
		logger.Info().Str("user_id", user.ID).Msg("User promoted to admin from ADMIN_EMAILS")
	}

	if err := TouchLogin(db, &user, Now()); err != nil {
		return nil, err
	}
	return &user, nil
}

func UpdateProfile(db *gorm.DB, userID string, in UpdateProfileInput) (*models.User, error) {
	user, err := findUser(db, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if in.Username != nil {
		if !utils.ValidateUsername(*in.Username) {
			return nil, apperrors.BadRequest("Username must be 3-30 characters of letters, numbers, dots, underscores or hyphens")
		}
		fields["username"], user.Username = *in.Username, *in.Username
	}
	if in.Bio != nil {
		bio := utils.CleanText(*in.Bio, 500)
		fields["bio"], user.Bio = bio, bio
	}
	if in.ProfileImage != nil {
		fields["profile_image"], user.ProfileImage = *in.ProfileImage, *in.ProfileImage
	}
	if s := in.Settings; s != nil {
		if s.EmailNotifications != nil {
			fields["settings_email_notifications"], user.Settings.EmailNotifications = *s.EmailNotifications, *s.EmailNotifications
		}
		if s.PushNotifications != nil {
			fields["settings_push_notifications"], user.Settings.PushNotifications = *s.PushNotifications, *s.PushNotifications
		}
		if s.Theme != nil {
			fields["settings_theme"], user.Settings.Theme = *s.Theme, *s.Theme
		}
	}
	if len(fields) == 0 {
		return user, nil
	}

	if err := db.Model(&models.User{}).Where("id = ?", userID).Updates(fields).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func ChangePassword(db *gorm.DB, userID, current, next string) error {
	user, err := findUser(db, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return apperrors.BadRequest("Current password is incorrect")
	}

	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	return db.Model(&models.User{}).Where("id = ?", userID).Update("password", hash).Error
}

// DeleteAccount removes the user and everything that only makes sense with
// them around. Groups they were the only admin of get a new admin, groups
// they were the last member of are deleted.
func DeleteAccount(db *gorm.DB, userID string) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := findUser(tx, userID); err != nil {
			return err
		}

		var groupIDs []string
		if err := tx.Model(&models.GroupMember{}).Where("user_id = ?", userID).Pluck("group_id", &groupIDs).Error; err != nil {
			return fmt.Errorf("load memberships: %w", err)
		}
		for _, groupID := range groupIDs {
			if err := removeFromGroup(tx, groupID, userID); err != nil {
				return err
			}
		}

		if err := cleanupPersonalGoals(tx, userID); err != nil {
			return err
		}
		for _, model := range []interface{}{&models.GoalMemberCompletion{}, &models.UserAchievement{}, &models.UserActivity{}} {
			if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return fmt.Errorf("delete user rows: %w", err)
			}
		}
		return tx.Delete(&models.User{}, "id = ?", userID).Error
	})
	if err != nil {
		return err
	}

	InvalidateLeaderboard()
	logger.Info().Str("user_id", userID).Msg("Account deleted")
	return nil
}

// removeFromGroup is LeaveGroup without the sole admin guard: the longest
// standing remaining member is promoted instead.
func removeFromGroup(tx *gorm.DB, groupID, userID string) error {
	group, err := loadGroup(tx, groupID)
	if err != nil {
		return err
	}
	if len(group.Members) <= 1 {
		return deleteGroup(tx, groupID)
	}

	if group.IsAdmin(userID) && group.AdminCount() == 1 {
		var heir models.GroupMember
		if err := tx.Where("group_id = ? AND user_id <> ?", groupID, userID).
			Order("joined_at asc").First(&heir).Error; err != nil {
			return fmt.Errorf("pick new admin: %w", err)
		}
		if err := tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id = ?", groupID, heir.UserID).
			Update("role", models.MemberRoleAdmin).Error; err != nil {
			return fmt.Errorf("promote new admin: %w", err)
		}
	}

	if err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{}).Error; err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return releaseMemberGoals(tx, groupID, userID, true)
}

func cleanupPersonalGoals(tx *gorm.DB, userID string) error {
	err := tx.Where("user_id = ? AND is_group_goal = ?", userID, false).Delete(&models.Goal{}).Error
	if err != nil {
		return fmt.Errorf("delete personal goals: %w", err)
	}
	return nil
}

// RequestPasswordReset stores a fresh reset token digest and returns the raw
// token with its user. Unknown emails yield an empty token and no error so
// callers cannot probe for accounts.
func RequestPasswordReset(db *gorm.DB, email string) (string, *models.User, error) {
	var user models.User
	if err := db.Where("email = ?", utils.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("load user: %w", err)
	}

	raw, digest, err := utils.GenerateResetToken()
	if err != nil {
		return "", nil, fmt.Errorf("generate reset token: %w", err)
	}
	expiry := Now().Add(ResetTokenTTL)
	if err := db.Model(&user).Updates(map[string]interface{}{
		"reset_token_hash":   digest,
		"reset_token_expiry": expiry,
	}).Error; err != nil {
		return "", nil, fmt.Errorf("store reset token: %w", err)
	}
	return raw, &user, nil
}

// ResetPassword consumes a reset token. Tokens are single use.
func ResetPassword(db *gorm.DB, rawToken, newPassword string) error {
	var user models.User
	err := db.Where("reset_token_hash = ?", utils.HashResetToken(rawToken)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.BadRequest("Invalid or expired reset token")
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user.ResetTokenExpiry == nil || Now().After(*user.ResetTokenExpiry) {
		return apperrors.BadRequest("Invalid or expired reset token")
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	return db.Model(&user).Updates(map[string]interface{}{
		"password":           hash,
		"reset_token_hash":   "",
		"reset_token_expiry": nil,
	}).Error
}
