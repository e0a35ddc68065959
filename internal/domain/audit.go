package domain

import "time"

// AuditLog represents an audit log entry for tracking important actions
type AuditLog struct {
	ID        int64          `db:"id" json:"id"`
	UserID    *string        `db:"user_id" json:"userId,omitempty"`
	Action    string         `db:"action" json:"action"`
	Category  string         `db:"category" json:"category"`
	Details   map[string]any `db:"details" json:"details"`
	IP        string         `db:"ip" json:"ip,omitempty"`
	UserAgent string         `db:"user_agent" json:"userAgent,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// Audit action categories
const (
	AuditCategoryAuth   = "auth"
	AuditCategoryLedger = "ledger"
)

// Audit actions
const (
	AuditActionRegister    = "register"
	AuditActionLogin       = "login"
	AuditActionLoginFailed = "login_failed"

	AuditActionTransactionCreate = "transaction_create"
	AuditActionTransactionUpdate = "transaction_update"
	AuditActionTransactionDelete = "transaction_delete"
)
