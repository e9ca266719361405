package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ReportStatus is the review state of a report.
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusVerified ReportStatus = "verified"
	ReportStatusRejected ReportStatus = "rejected"
	ReportStatusResolved ReportStatus = "resolved"
)

// ReportStatuses lists every status in lifecycle order.
var ReportStatuses = []ReportStatus{ReportStatusPending, ReportStatusVerified, ReportStatusRejected, ReportStatusResolved}

// ParseReportStatus converts raw input into a ReportStatus.
func ParseReportStatus(s string) (ReportStatus, error) {
	switch st := ReportStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case ReportStatusPending, ReportStatusVerified, ReportStatusRejected, ReportStatusResolved:
		return st, nil
	}
	return "", fmt.Errorf("unknown report status %q", s)
}

// IsTerminal reports whether nothing can leave this status.
func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusRejected || s == ReportStatusResolved
}

// ReportType is the hazard category chosen by the reporter.
type ReportType string

const (
	ReportTypePothole      ReportType = "pothole"
	ReportTypeFlooding     ReportType = "flooding"
	ReportTypeDebris       ReportType = "debris"
	ReportTypeConstruction ReportType = "construction"
	ReportTypeAccident     ReportType = "accident"
	ReportTypeEmergency    ReportType = "emergency"
	ReportTypeCaution      ReportType = "caution"
	ReportTypeInfo         ReportType = "info"
	ReportTypeSafe         ReportType = "safe"
	ReportTypeOther        ReportType = "other"
)

var ReportTypes = []ReportType{
	ReportTypePothole, ReportTypeFlooding, ReportTypeDebris, ReportTypeConstruction, ReportTypeAccident,
	ReportTypeEmergency, ReportTypeCaution, ReportTypeInfo, ReportTypeSafe, ReportTypeOther,
}

// Severity is set by the reporter and may be corrected by an admin.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh}

// Priority is an admin triage field, independent of severity.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Location of the hazard. Province, city and barangay are optional.
type Location struct {
	Address   string  `gorm:"size:500" json:"address" bson:"address" validate:"max=500"`
	Province  string  `gorm:"size:100;index" json:"province,omitempty" bson:"province,omitempty" validate:"max=100"`
	City      string  `gorm:"size:100;index" json:"city,omitempty" bson:"city,omitempty" validate:"max=100"`
	Barangay  string  `gorm:"size:100" json:"barangay,omitempty" bson:"barangay,omitempty" validate:"max=100"`
	Latitude  float64 `gorm:"index:idx_reports_lat_lng" json:"latitude" bson:"latitude" validate:"latitude"`
	Longitude float64 `gorm:"index:idx_reports_lat_lng" json:"longitude" bson:"longitude" validate:"longitude"`
}

// ReporterRef is the denormalized reporter identity captured at submission time.
type ReporterRef struct {
	ID       *uint  `gorm:"index" json:"id,omitempty" bson:"id,omitempty"`
	Name     string `gorm:"size:150" json:"name" bson:"name"`
	Username string `gorm:"size:100" json:"username,omitempty" bson:"username,omitempty"`
	Email    string `gorm:"size:200" json:"email,omitempty" bson:"email,omitempty"`
	Phone    string `gorm:"size:50" json:"phone,omitempty" bson:"phone,omitempty"`
}

// Attachment describes one photo. Exactly one of URL or Data is set on submission.
type Attachment struct {
	Filename     string `json:"filename,omitempty" bson:"filename,omitempty"`
	URL          string `json:"url,omitempty" bson:"url,omitempty"`
	Data         string `json:"data,omitempty" bson:"data,omitempty"`
	MimeType     string `json:"mimetype,omitempty" bson:"mimetype,omitempty"`
	Size         int64  `json:"size,omitempty" bson:"size,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty" bson:"thumbnail_url,omitempty"`
}

// Report is a single road-hazard submission.
type Report struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	TrackingCode string         `gorm:"uniqueIndex;size:16;not null" json:"tracking_code" bson:"tracking_code"`
	Type         ReportType     `gorm:"size:30;index;not null" json:"type" bson:"type" validate:"required,oneof=pothole flooding debris construction accident emergency caution info safe other"`
	Status       ReportStatus   `gorm:"size:20;index;not null" json:"status" bson:"status" validate:"required,oneof=pending verified rejected resolved"`
	Severity     Severity       `gorm:"size:10;index;not null" json:"severity" bson:"severity" validate:"required,oneof=low medium high"`
	Priority     Priority       `gorm:"size:10;not null" json:"priority" bson:"priority" validate:"required,oneof=low medium high urgent"`
	Location     Location       `gorm:"embedded" json:"location" bson:"location"`
	Description  string         `gorm:"type:text" json:"description" bson:"description" validate:"max=5000"`
	Images       datatypes.JSON `json:"images" bson:"images"`
	Reporter     ReporterRef    `gorm:"embedded;embeddedPrefix:reporter_" json:"reported_by" bson:"reported_by"`
	AdminNotes   string         `gorm:"type:text" json:"admin_notes" bson:"admin_notes"`
	VerifiedBy   *uint          `gorm:"index" json:"verified_by,omitempty" bson:"verified_by,omitempty"`
	VerifiedAt   *time.Time     `json:"verified_at,omitempty" bson:"verified_at,omitempty"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" bson:"updated_at"`
}

// TableName specifies the table name for the Report model
func (Report) TableName() string {
	return "reports"
}

// NewReport prepares a pending report with a fresh id. Priority defaults to medium.
func NewReport(reportType ReportType, severity Severity, loc Location, description string, reporter ReporterRef) *Report {
	return &Report{
		ID:          uuid.NewString(),
		Type:        reportType,
		Status:      ReportStatusPending,
		Severity:    severity,
		Priority:    PriorityMedium,
		Location:    loc,
		Description: strings.TrimSpace(description),
		Images:      datatypes.JSON("[]"),
		Reporter:    reporter,
	}
}

func (r *Report) Validate() error {
	v := validator.New()

	return v.Struct(r)
}

// Attachments decodes the stored image descriptors.
func (r *Report) Attachments() ([]Attachment, error) {
	if len(r.Images) == 0 {
		return []Attachment{}, nil
	}
	var list []Attachment
	if err := json.Unmarshal(r.Images, &list); err != nil {
		return nil, fmt.Errorf("decode images of report %s: %w", r.ID, err)
	}
	if list == nil {
		list = []Attachment{}
	}
	return list, nil
}

// SetAttachments encodes the image descriptors in order.
func (r *Report) SetAttachments(list []Attachment) error {
	if list == nil {
		list = []Attachment{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	r.Images = datatypes.JSON(raw)
	return nil
}

// IsPublic reports whether the report may be shown on the public map.
func (r *Report) IsPublic() bool {
	return r.Status == ReportStatusVerified || r.Status == ReportStatusResolved
}
