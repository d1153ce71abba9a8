// Package handlers adapts HTTP requests onto the services and renders the
// response envelope.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/internal/database"
	"github.com/pushp314/commit-backend/pkg/response"
	"gorm.io/gorm"
)

// dbFor scopes the shared handle to the request so cancelled requests stop
// their queries.
func dbFor(c *gin.Context) *gorm.DB {
	return database.DB.WithContext(c.Request.Context())
}

func respondError(c *gin.Context, err error) {
	response.Error(c, err)
}
