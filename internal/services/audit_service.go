package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"finsight/internal/logger"
	"finsight/internal/models"
)

// auditService writes the audit trail synchronously on the request path.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log stores one audit row for action. The resource type follows from the
// action. A failed write is logged, never returned.
func (s *auditService) Log(userID string, action models.AuditAction, resourceID, ipAddress string, changes map[string]any) {
	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: action.ResourceType(),
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      encodeChanges(action, changes),
	}
	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("audit write failed",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_id", resourceID,
		)
	}
}

// encodeChanges renders changes as JSON; nil stays empty.
func encodeChanges(action models.AuditAction, changes map[string]any) string {
	if changes == nil {
		return ""
	}
	data, err := json.Marshal(changes)
	if err != nil {
		logger.Get().Warnw("audit changes not encodable", "action", action, "error", err)
		return "{}"
	}
	return string(data)
}
