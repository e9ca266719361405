package lifecycle

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/apperror"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/shortener"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/usercontext"
)

type recordingScheduler struct {
	ids []string
	err error
}

func (s *recordingScheduler) ScheduleAttachments(_ context.Context, id string) error {
	s.ids = append(s.ids, id)
	return s.err
}

func reporter() usercontext.UserContext {
	return usercontext.UserContext{Kind: usercontext.KindUser, UserID: 7, Username: "juan"}
}

func floatPtr(f float64) *float64 { return &f }

func newIntake(repo *memReports, sched AttachmentScheduler, mutate func(*models.AppSettings)) *Intake {
	settings := models.DefaultAppSettings()
	if mutate != nil {
		mutate(settings)
	}
	return NewIntake(repo, func() *models.AppSettings { return settings }, sched)
}

func validRequest() SubmitRequest {
	return SubmitRequest{
		Type:        "Pothole",
		Address:     "Commonwealth Ave",
		City:        "Quezon City",
		Latitude:    floatPtr(14.676),
		Longitude:   floatPtr(121.0437),
		Description: "  Large pothole near the flyover ",
	}
}

func TestSubmitStoresPendingReport(t *testing.T) {
	repo := newMemReports()
	sched := &recordingScheduler{}
	intake := newIntake(repo, sched, nil)
	uid := uint(7)

	report, err := intake.Submit(context.Background(), validRequest(), models.ReporterRef{ID: &uid, Name: "Juan"}, reporter())
	require.NoError(t, err)

	assert.Equal(t, models.ReportStatusPending, report.Status)
	assert.Equal(t, models.ReportTypePothole, report.Type)
	assert.Equal(t, models.SeverityMedium, report.Severity)
	assert.Equal(t, models.PriorityMedium, report.Priority)
	assert.Equal(t, "Large pothole near the flyover", report.Description)
	assert.True(t, shortener.IsTrackingCode(report.TrackingCode))
	assert.Nil(t, report.VerifiedAt)

	stored, err := repo.GetByID(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.TrackingCode, stored.TrackingCode)
	assert.Empty(t, sched.ids, "no inline images, nothing to schedule")
}

func TestSubmitRejectsOutOfRangeCoordinates(t *testing.T) {
	repo := newMemReports()
	intake := newIntake(repo, nil, nil)

	for _, tt := range []struct {
		name     string
		lat, lng float64
	}{
		{"latitude", 95, 121},
		{"longitude", 14, -200},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			req.Latitude = floatPtr(tt.lat)
			req.Longitude = floatPtr(tt.lng)
			_, err := intake.Submit(context.Background(), req, models.ReporterRef{Name: "Juan"}, reporter())
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
	assert.Empty(t, repo.reports)
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SubmitRequest)
	}{
		{"unknown type", func(r *SubmitRequest) { r.Type = "volcano" }},
		{"unknown severity", func(r *SubmitRequest) { r.Severity = "extreme" }},
		{"half a position", func(r *SubmitRequest) { r.Longitude = nil }},
		{"no position and no photo", func(r *SubmitRequest) { r.Latitude, r.Longitude = nil, nil }},
		{"bad attachment", func(r *SubmitRequest) { r.Images = []models.Attachment{{Filename: "x.png"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemReports()
			req := validRequest()
			tt.mutate(&req)
			_, err := newIntake(repo, nil, nil).Submit(context.Background(), req, models.ReporterRef{Name: "Juan"}, reporter())
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Empty(t, repo.reports)
		})
	}
}

func TestSubmitRequiresReporterAndOpenSubmissions(t *testing.T) {
	repo := newMemReports()

	_, err := newIntake(repo, nil, nil).Submit(context.Background(), validRequest(), models.ReporterRef{}, superAdmin())
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	closed := newIntake(repo, nil, func(s *models.AppSettings) { s.ReportSubmissionEnabled = false })
	_, err = closed.Submit(context.Background(), validRequest(), models.ReporterRef{}, reporter())
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
	assert.Empty(t, repo.reports)
}

func TestSubmitSchedulesInlineAttachments(t *testing.T) {
	// 1x1 transparent PNG
	pixel := "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="
	_, err := base64.StdEncoding.DecodeString(pixel)
	require.NoError(t, err)

	repo := newMemReports()
	sched := &recordingScheduler{err: errors.New("queue down")}
	req := validRequest()
	req.Images = []models.Attachment{{Data: "data:image/png;base64," + pixel}}

	report, err := newIntake(repo, sched, nil).Submit(context.Background(), req, models.ReporterRef{Name: "Juan"}, reporter())
	require.NoError(t, err, "a failing scheduler does not fail the submission")
	assert.Equal(t, []string{report.ID}, sched.ids)

	list, err := report.Attachments()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "image/png", list[0].MimeType)
}

func TestSubmitEnforcesMaxImages(t *testing.T) {
	repo := newMemReports()
	req := validRequest()
	req.Images = []models.Attachment{{URL: "https://x.test/1.jpg"}, {URL: "https://x.test/2.jpg"}}

	_, err := newIntake(repo, nil, func(s *models.AppSettings) { s.MaxImagesPerReport = 1 }).
		Submit(context.Background(), req, models.ReporterRef{Name: "Juan"}, reporter())
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
