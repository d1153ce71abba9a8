package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pushp314/commit-backend/internal/database"
	"github.com/pushp314/commit-backend/internal/models"
	"github.com/pushp314/commit-backend/pkg/response"
	"github.com/pushp314/commit-backend/pkg/utils"
)

// TokenCookie is the session cookie set on login and register.
const TokenCookie = "token"

// tokenFromRequest prefers the session cookie and falls back to a Bearer header.
func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			response.Abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		claims, err := utils.ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Abort(c, http.StatusUnauthorized, "Token has expired")
				return
			}
			response.Abort(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		if database.IsTokenBlacklisted(claims.GetJTI()) {
			response.Abort(c, http.StatusUnauthorized, "Token has been revoked")
			return
		}

		var user models.User
		if err := database.DB.WithContext(c.Request.Context()).Select("id", "role").First(&user, "id = ?", claims.UserID).Error; err != nil {
			response.Abort(c, http.StatusUnauthorized, "User not found")
			return
		}

		c.Set("userId", user.ID)
		c.Set("role", string(user.Role))
		// Logout needs the JTI and expiry.
		c.Set("claims", claims)

		c.Next()
	}
}
