package lifecycle

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/app/repository"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/apperror"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/imageprocessor"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/metrics"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/shortener"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/upload"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/usercontext"
)

const trackingCodeAttempts = 5

// AttachmentScheduler moves inline photos of a stored report to object storage.
type AttachmentScheduler interface {
	ScheduleAttachments(ctx context.Context, reportID string) error
}

// SubmitRequest is a new report as sent by a reporter.
type SubmitRequest struct {
	Type        string              `json:"type"`
	Severity    string              `json:"severity"`
	Address     string              `json:"address"`
	Province    string              `json:"province"`
	City        string              `json:"city"`
	Barangay    string              `json:"barangay"`
	Latitude    *float64            `json:"latitude"`
	Longitude   *float64            `json:"longitude"`
	Description string              `json:"description"`
	Images      []models.Attachment `json:"images"`
	Phone       string              `json:"phone"`
}

// Intake accepts new reports. Everything it stores starts out pending.
type Intake struct {
	reports   repository.ReportRepository
	settings  func() *models.AppSettings
	scheduler AttachmentScheduler
	listeners []Listener
	now       func() time.Time
}

// NewIntake wires the submission path. scheduler may be nil when object storage is off.
func NewIntake(reports repository.ReportRepository, settings func() *models.AppSettings, scheduler AttachmentScheduler, listeners ...Listener) *Intake {
	return &Intake{
		reports:   reports,
		settings:  settings,
		scheduler: scheduler,
		listeners: listeners,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates a report, stores it as pending and schedules attachment processing.
func (in *Intake) Submit(ctx context.Context, req SubmitRequest, reporter models.ReporterRef, actor usercontext.UserContext) (*models.Report, error) {
	if !actor.IsUser() {
		return nil, apperror.PermissionDenied("Only registered reporters can submit reports")
	}
	settings := in.settings()
	if !settings.ReportSubmissionEnabled {
		return nil, apperror.PermissionDenied("Report submission is currently disabled")
	}

	reportType := models.ReportType(strings.ToLower(strings.TrimSpace(req.Type)))
	if !slices.Contains(models.ReportTypes, reportType) {
		return nil, apperror.Validation("type must be one of %s", joinValues(models.ReportTypes))
	}
	severity := models.SeverityMedium
	if s := strings.TrimSpace(req.Severity); s != "" {
		severity = models.Severity(strings.ToLower(s))
		if !slices.Contains(models.Severities, severity) {
			return nil, apperror.Validation("severity must be one of low, medium or high")
		}
	}
	if len(req.Description) > maxNotesLength {
		return nil, apperror.Validation("description must be at most %d characters", maxNotesLength)
	}

	images, inline, err := upload.ValidateAttachments(req.Images, settings.MaxImagesPerReport)
	if err != nil {
		return nil, err
	}

	lat, lng, err := resolveCoordinates(req, inline)
	if err != nil {
		return nil, err
	}

	if req.Phone != "" {
		reporter.Phone = strings.TrimSpace(req.Phone)
	}
	loc := models.Location{
		Address:   strings.TrimSpace(req.Address),
		Province:  strings.TrimSpace(req.Province),
		City:      strings.TrimSpace(req.City),
		Barangay:  strings.TrimSpace(req.Barangay),
		Latitude:  lat,
		Longitude: lng,
	}
	report := models.NewReport(reportType, severity, loc, req.Description, reporter)
	if err := report.SetAttachments(images); err != nil {
		return nil, apperror.Internal("Could not store the report", err)
	}
	now := in.now()
	report.CreatedAt = now
	report.UpdatedAt = now

	if err := report.Validate(); err != nil {
		return nil, apperror.FromValidator(err)
	}

	report.TrackingCode, err = in.newTrackingCode(ctx)
	if err != nil {
		return nil, err
	}

	if err := in.reports.Create(ctx, report); err != nil {
		return nil, apperror.Internal("Could not store the report", err)
	}
	metrics.RecordSubmission(string(report.Type))
	log.Infof("[Intake] Report %s (%s) submitted as %s", report.ID, report.Type, report.TrackingCode)

	if len(inline) > 0 && in.scheduler != nil {
		if err := in.scheduler.ScheduleAttachments(ctx, report.ID); err != nil {
			log.Warnf("[Intake] Could not schedule attachments of report %s: %v", report.ID, err)
		}
	}
	for _, l := range in.listeners {
		l.ReportChanged(ctx, Event{Kind: EventSubmit, ReportID: report.ID, To: report.Status, Report: report})
	}
	return report, nil
}

func (in *Intake) newTrackingCode(ctx context.Context) (string, error) {
	for i := 0; i < trackingCodeAttempts; i++ {
		code, err := shortener.TrackingCode()
		if err != nil {
			return "", apperror.Internal("Could not generate a tracking code", err)
		}
		taken, err := in.reports.TrackingCodeExists(ctx, code)
		if err != nil {
			return "", apperror.Internal("Could not generate a tracking code", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", apperror.Internal("Could not generate a tracking code",
		fmt.Errorf("no free tracking code after %d attempts", trackingCodeAttempts))
}

// resolveCoordinates prefers the submitted position and falls back to the GPS tag of
// the first inline JPEG.
func resolveCoordinates(req SubmitRequest, inline []upload.Inline) (float64, float64, error) {
	if req.Latitude != nil && req.Longitude != nil {
		return *req.Latitude, *req.Longitude, nil
	}
	if req.Latitude != nil || req.Longitude != nil {
		return 0, 0, apperror.Validation("latitude and longitude must be sent together")
	}
	for _, img := range inline {
		if img.MimeType != "image/jpeg" {
			continue
		}
		if lat, lng, ok := imageprocessor.ExtractGPS(img.Data); ok {
			return lat, lng, nil
		}
		break
	}
	return 0, 0, apperror.Validation("location is required: send latitude and longitude or a geotagged photo")
}

func joinValues[T ~string](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
