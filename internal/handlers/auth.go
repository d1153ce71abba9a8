package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/internal/config"
	"github.com/pushp314/commit-backend/internal/database"
	"github.com/pushp314/commit-backend/internal/mailer"
	"github.com/pushp314/commit-backend/internal/middleware"
	"github.com/pushp314/commit-backend/internal/models"
	"github.com/pushp314/commit-backend/internal/services"
	"github.com/pushp314/commit-backend/pkg/logger"
	"github.com/pushp314/commit-backend/pkg/response"
	"github.com/pushp314/commit-backend/pkg/utils"
)

// Mailer delivers password reset links. Swapped out in tests.
var Mailer mailer.Mailer = mailer.LogMailer{}

type LoginInput struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=72"`
}

type ForgotPasswordInput struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordInput struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8,max=72"`
}

type sessionPayload struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func setSessionCookie(c *gin.Context, token string, ttl time.Duration) {
	secure := config.AppConfig != nil && config.AppConfig.Env == "production"
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, int(ttl.Seconds()), "/", "", secure, true)
}

func sessionClaims(c *gin.Context) *utils.Claims {
	value, _ := c.Get("claims")
	claims, _ := value.(*utils.Claims)
	return claims
}

func startSession(c *gin.Context, status int, message string, user *models.User, ttl time.Duration) {
	token, err := utils.GenerateToken(user.ID, ttl)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate token")
		respondError(c, err)
		return
	}
	setSessionCookie(c, token, ttl)
	response.OK(c, status, message, sessionPayload{Token: token, User: user})
}

func Register(c *gin.Context) {
	var input services.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	user, err := services.Register(dbFor(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	startSession(c, http.StatusCreated, "User registered successfully", user, utils.TokenTTL)
}

func Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	user, err := services.Authenticate(dbFor(c), input.Email, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	ttl := utils.TokenTTL
	if input.RememberMe {
		ttl = utils.ExtendedTokenTTL
	}
	logger.Info().Str("user_id", user.ID).Bool("remember_me", input.RememberMe).Msg("User logged in")
	startSession(c, http.StatusOK, "Login successful", user, ttl)
}

// Logout revokes the token's JTI until it would have expired anyway.
func Logout(c *gin.Context) {
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", false, true)

	claims := sessionClaims(c)
	if claims == nil || claims.GetJTI() == "" {
		response.OK(c, http.StatusOK, "Logged out successfully", nil)
		return
	}

	if ttl := time.Until(claims.GetExpiresAt()); ttl > 0 {
		if err := database.BlacklistToken(claims.GetJTI(), ttl); err != nil {
			// Without Redis the cookie is still cleared.
			logger.Warn().Err(err).Str("jti", claims.GetJTI()).Msg("Failed to blacklist token")
		}
	}
	response.OK(c, http.StatusOK, "Logged out successfully", nil)
}

// Me returns the caller with their badges and recent activity.
func Me(c *gin.Context) {
	userID := c.GetString("userId")
	db := dbFor(c)

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		response.Fail(c, http.StatusNotFound, "User not found")
		return
	}
	badges, err := services.UnlockedAchievements(db, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	activity, err := services.RecentActivity(db, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, http.StatusOK, "User retrieved successfully", gin.H{
		"user":     user,
		"badges":   badges,
		"activity": activity,
	})
}

func UpdateProfile(c *gin.Context) {
	var input services.UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	user, err := services.UpdateProfile(dbFor(c), c.GetString("userId"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Profile updated successfully", user)
}

func ChangePassword(c *gin.Context) {
	var input ChangePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	if err := services.ChangePassword(dbFor(c), c.GetString("userId"), input.CurrentPassword, input.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Password changed successfully", nil)
}

func DeleteAccount(c *gin.Context) {
	if err := services.DeleteAccount(dbFor(c), c.GetString("userId")); err != nil {
		respondError(c, err)
		return
	}

	if claims := sessionClaims(c); claims != nil {
		if ttl := time.Until(claims.GetExpiresAt()); ttl > 0 {
			_ = database.BlacklistToken(claims.GetJTI(), ttl)
		}
	}
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", false, true)
	response.OK(c, http.StatusOK, "Account deleted successfully", nil)
}

// ForgotPassword always reports success so it cannot be used to discover
// registered emails.
func ForgotPassword(c *gin.Context) {
	var input ForgotPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	raw, user, err := services.RequestPasswordReset(dbFor(c), input.Email)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create password reset token")
	}
	if raw != "" && user != nil {
		link := mailer.ResetURL(config.AppConfig.ClientURL, raw)
		if err := Mailer.SendPasswordReset(c.Request.Context(), user.Email, link); err != nil {
			logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to send password reset email")
		}
	}

	response.OK(c, http.StatusOK, "If an account exists with that email, a reset link has been sent", nil)
}

func ResetPassword(c *gin.Context) {
	var input ResetPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	if err := services.ResetPassword(dbFor(c), input.Token, input.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Password has been reset successfully", nil)
}
