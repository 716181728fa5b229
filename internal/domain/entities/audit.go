package entities

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction tags the kind of security-relevant event being recorded.
type AuditAction string

const (
	AuditActionLoginSuccess    AuditAction = "login_success"
	AuditActionLoginFailure    AuditAction = "login_failure"
	AuditActionLogout          AuditAction = "logout"
	AuditActionTokenRefresh    AuditAction = "token_refresh"
	AuditActionInvoiceValidate AuditAction = "invoice_validate"
)

// AuditEvent is one append-only row. UserID is nil for anonymous events (a
// failed login against a username that doesn't resolve to a user). Detail is
// a free-form map serialized as JSON; amounts in Detail are always decimal
// strings, never numeric fields, so no float precision leaks into logs.
type AuditEvent struct {
	ID         uuid.UUID              `db:"id" json:"id"`
	UserID     *int64                 `db:"user_id" json:"userId,omitempty"`
	Action     AuditAction            `db:"action" json:"action"`
	Resource   string                 `db:"resource" json:"resource"`
	ResourceID *string                `db:"resource_id" json:"resourceId,omitempty"`
	IPAddress  string                 `db:"ip_address" json:"ipAddress"`
	UserAgent  string                 `db:"user_agent" json:"userAgent"`
	Detail     map[string]interface{} `db:"detail" json:"detail,omitempty"`
	CreatedAt  time.Time              `db:"created_at" json:"createdAt"`
}
