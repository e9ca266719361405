package models

import (
	"time"

	"gorm.io/datatypes"
)

// Activity actions recorded by the audit recorder.
const (
	ActionLogin          = "login"
	ActionLoginFailed    = "login_failed"
	ActionLogout         = "logout"
	ActionReportVerify   = "report_verify"
	ActionReportReject   = "report_reject"
	ActionReportResolve  = "report_resolve"
	ActionReportUpdate   = "report_update"
	ActionReportDelete   = "report_delete"
	ActionAdminCreate    = "admin_create"
	ActionAdminUpdate    = "admin_update"
	ActionAdminDelete    = "admin_delete"
	ActionNewsCreate     = "news_create"
	ActionNewsUpdate     = "news_update"
	ActionNewsDelete     = "news_delete"
	ActionSettingsUpdate = "settings_update"
)

// Resource types an activity can point at.
const (
	ResourceReport   = "report"
	ResourceAdmin    = "admin"
	ResourceNews     = "news"
	ResourceSettings = "settings"
	ResourceSession  = "session"
)

// Activity severities.
const (
	ActivitySeverityInfo     = "info"
	ActivitySeverityWarning  = "warning"
	ActivitySeverityCritical = "critical"
)

// ActivityLog is one append-only audit entry. Rows are never updated or deleted.
type ActivityLog struct {
	ID            uint64            `gorm:"primaryKey" json:"id"`
	AdminID       *uint             `gorm:"index" json:"admin_id,omitempty"`
	AdminUsername string            `gorm:"size:100" json:"admin_username"`
	Action        string            `gorm:"size:50;index;not null" json:"action"`
	Description   string            `gorm:"size:500" json:"description"`
	Details       datatypes.JSONMap `json:"details,omitempty"`
	ResourceType  string            `gorm:"size:30;index" json:"resource_type,omitempty"`
	ResourceID    string            `gorm:"size:64;index" json:"resource_id,omitempty"`
	Severity      string            `gorm:"size:10;not null" json:"severity"`
	IPAddress     string            `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent     string            `gorm:"size:255" json:"user_agent,omitempty"`
	Timestamp     time.Time         `gorm:"index;not null" json:"timestamp"`
}

// TableName specifies the table name for the ActivityLog model
func (ActivityLog) TableName() string {
	return "activity_logs"
}
