package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/internal/models"
	"github.com/pushp314/commit-backend/internal/services"
	"github.com/pushp314/commit-backend/pkg/logger"
	"github.com/pushp314/commit-backend/pkg/response"
)

// ExpireGoals runs the overdue sweep immediately.
func ExpireGoals(c *gin.Context) {
	db := dbFor(c)
	expired, err := services.ExpireOverdueGoals(db, services.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	adminID := c.GetString("userId")
	services.RecordAdminAction(db, adminID, models.ActionExpireGoals, c.ClientIP(), gin.H{"expired": expired})
	logger.Info().Str("admin_id", adminID).Int("expired", expired).Msg("Admin ran goal expiry")
	response.OK(c, http.StatusOK, "Overdue goals expired", gin.H{"expired": expired})
}

func GetAuditLog(c *gin.Context) {
	actions, err := services.RecentAdminActions(dbFor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Audit log retrieved successfully", actions)
}
