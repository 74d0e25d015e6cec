package models

// AuditAction names an operation recorded in the audit trail.
type AuditAction string

const (
	AuditCreateTransaction  AuditAction = "CREATE_TRANSACTION"
	AuditDeleteTransaction  AuditAction = "DELETE_TRANSACTION"
	AuditImportTransactions AuditAction = "IMPORT_TRANSACTIONS"
	AuditGenerateInsight    AuditAction = "GENERATE_INSIGHT"
	AuditClearChat          AuditAction = "CLEAR_CHAT"
)

// ResourceType is the kind of object an action touches.
func (a AuditAction) ResourceType() string {
	switch a {
	case AuditCreateTransaction, AuditDeleteTransaction, AuditImportTransactions:
		return "transaction"
	case AuditGenerateInsight:
		return "insight"
	case AuditClearChat:
		return "chat_session"
	default:
		return "unknown"
	}
}

// AuditLog records user operations that change data or spend API quota.
type AuditLog struct {
	Base
	UserID       string      `gorm:"type:uuid;not null;index" json:"user_id"`
	Action       AuditAction `gorm:"not null" json:"action"`
	ResourceType string      `gorm:"not null" json:"resource_type"`
	ResourceID   string      `json:"resource_id"`
	IPAddress    string      `json:"ip_address"`
	Changes      string      `json:"changes,omitempty"`
}
