package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/internal/models"
	"github.com/pushp314/commit-backend/pkg/response"
)

// AdminOnly restricts access to users with the ADMIN role. It must run after
// AuthMiddleware, which loads the role.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get("userId"); !exists {
			response.Abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		if c.GetString("role") != string(models.RoleAdmin) {
			response.Abort(c, http.StatusForbidden, "Admin access required")
			return
		}

		c.Next()
	}
}
