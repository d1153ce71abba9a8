package services

import (
	"encoding/json"
	"fmt"

	"github.com/pushp314/commit-backend/internal/models"
	"github.com/pushp314/commit-backend/pkg/logger"
	"gorm.io/gorm"
)

const auditPageSize = 50

// RecordAdminAction appends to the audit trail. A failed write is logged and
// does not undo the action it describes.
func RecordAdminAction(db *gorm.DB, adminID string, action models.ActionType, ip string, details interface{}) {
	entry := models.AdminAction{AdminID: adminID, Action: action, IPAddress: ip}
	if details != nil {
		raw, err := json.Marshal(details)
		if err == nil {
			entry.Details = string(raw)
		}
	}
	if err := db.Create(&entry).Error; err != nil {
		logger.Error().Err(err).Str("admin_id", adminID).Str("action", string(action)).Msg("Failed to record admin action")
	}
}

// RecentAdminActions returns the newest audit entries first.
func RecentAdminActions(db *gorm.DB) ([]models.AdminAction, error) {
	var actions []models.AdminAction
	if err := db.Order("created_at desc").Limit(auditPageSize).Find(&actions).Error; err != nil {
		return nil, fmt.Errorf("load admin actions: %w", err)
	}
	return actions, nil
}
