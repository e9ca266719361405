package jobqueue

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/app/repository"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/lifecycle"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/objectstore"
)

// fakeReports implements the two calls the processors make
type fakeReports struct {
	repository.ReportRepository
	mu      sync.Mutex
	reports map[string]*models.Report
}

func (f *fakeReports) GetByID(_ context.Context, id string) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReports) UpdateImages(_ context.Context, id string, images datatypes.JSON) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.Images = images
	return nil
}

type memStore struct {
	objects map[string][]byte
	failKey string
}

func (s *memStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	if key == s.failKey {
		return "", errors.New("bucket unavailable")
	}
	s.objects[key] = data
	return "https://cdn.test/" + key, nil
}

type memMailer struct {
	to, subject, body string
	sent              int
}

func (m *memMailer) Send(to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	m.sent++
	return nil
}

const pixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func reportWithImages(t *testing.T, images ...models.Attachment) *models.Report {
	t.Helper()
	r := models.NewReport(models.ReportTypePothole, models.SeverityHigh, models.Location{Latitude: 14.6, Longitude: 121}, "hole", models.ReporterRef{Name: "Juan", Email: "juan@x.test"})
	r.ID = "r1"
	r.TrackingCode = "BD-ABCDEFGH"
	r.CreatedAt = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.SetAttachments(images))
	return r
}

func attachmentJob(id string) *Job {
	return &Job{Type: JobTypeAttachmentUpload, Payload: AttachmentUploadPayload{ReportID: id}.ToMap()}
}

func TestAttachmentProcessorMovesInlineData(t *testing.T) {
	report := reportWithImages(t,
		models.Attachment{URL: "https://elsewhere.test/a.jpg"},
		models.Attachment{Data: "data:image/png;base64," + pixelPNG, MimeType: "image/png"},
	)
	repo := &fakeReports{reports: map[string]*models.Report{"r1": report}}
	store := &memStore{objects: map[string][]byte{}}
	p := NewAttachmentProcessor(repo, store, &objectstore.Config{BucketName: "b"})
	p.thumbnail = func([]byte) ([]byte, error) { return []byte("webp"), nil }

	require.NoError(t, p.Handle(context.Background(), attachmentJob("r1")))

	raw, _ := base64.StdEncoding.DecodeString(pixelPNG)
	assert.Equal(t, raw, store.objects["reports/2024/07/r1/2.png"])
	assert.Equal(t, []byte("webp"), store.objects["reports/2024/07/r1/2_thumb.webp"])

	list, err := repo.reports["r1"].Attachments()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "https://elsewhere.test/a.jpg", list[0].URL)
	assert.Equal(t, "https://cdn.test/reports/2024/07/r1/2.png", list[1].URL)
	assert.Equal(t, "https://cdn.test/reports/2024/07/r1/2_thumb.webp", list[1].ThumbnailURL)
	assert.Empty(t, list[1].Data)
}

func TestAttachmentProcessorToleratesThumbnailFailureAndMissingReport(t *testing.T) {
	report := reportWithImages(t, models.Attachment{Data: pixelPNG, MimeType: "image/png"})
	repo := &fakeReports{reports: map[string]*models.Report{"r1": report}}
	p := NewAttachmentProcessor(repo, &memStore{objects: map[string][]byte{}}, &objectstore.Config{})
	p.thumbnail = func([]byte) ([]byte, error) { return nil, errors.New("no encoder") }

	require.NoError(t, p.Handle(context.Background(), attachmentJob("r1")))
	list, _ := repo.reports["r1"].Attachments()
	assert.NotEmpty(t, list[0].URL)
	assert.Empty(t, list[0].ThumbnailURL)

	assert.NoError(t, p.Handle(context.Background(), attachmentJob("gone")))
}

func TestAttachmentProcessorUploadFailureIsRetryable(t *testing.T) {
	report := reportWithImages(t, models.Attachment{Data: pixelPNG, MimeType: "image/png"})
	repo := &fakeReports{reports: map[string]*models.Report{"r1": report}}
	p := NewAttachmentProcessor(repo, &memStore{objects: map[string][]byte{}, failKey: "reports/2024/07/r1/1.png"}, &objectstore.Config{})

	assert.Error(t, p.Handle(context.Background(), attachmentJob("r1")))
	list, _ := repo.reports["r1"].Attachments()
	assert.NotEmpty(t, list[0].Data, "inline data is kept until the upload succeeds")
}

func TestNotifyProcessor(t *testing.T) {
	report := reportWithImages(t)
	repo := &fakeReports{reports: map[string]*models.Report{"r1": report}}
	mailer := &memMailer{}
	p := NewNotifyProcessor(repo, mailer)

	job := &Job{Type: JobTypeNotifyReporter, Payload: NotifyReporterPayload{ReportID: "r1", Status: "verified", Notes: "thanks"}.ToMap()}
	require.NoError(t, p.Handle(context.Background(), job))
	assert.Equal(t, "juan@x.test", mailer.to)
	assert.Equal(t, "Report BD-ABCDEFGH is verified", mailer.subject)
	assert.Contains(t, mailer.body, "thanks")

	report.Reporter.Email = ""
	require.NoError(t, p.Handle(context.Background(), job))
	assert.Equal(t, 1, mailer.sent)
}

func TestDispatcherEnqueuesOnlyWhenEnabled(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	settings := models.DefaultAppSettings()
	d := NewDispatcher(q, func() *models.AppSettings { return settings })

	report := reportWithImages(t)
	ev := lifecycle.Event{Kind: lifecycle.EventTransition, ReportID: "r1", From: models.ReportStatusPending, To: models.ReportStatusVerified, Report: report}

	d.ReportChanged(ctx, ev)
	size, _ := q.GetQueueSize(ctx)
	assert.Zero(t, size, "notifications are off by default")

	settings.AutoNotifyReporters = true
	d.ReportChanged(ctx, ev)
	d.ReportChanged(ctx, lifecycle.Event{Kind: lifecycle.EventDelete, ReportID: "r1"})
	size, _ = q.GetQueueSize(ctx)
	assert.Equal(t, int64(1), size)

	require.NoError(t, d.ScheduleAttachments(ctx, "r1"))
	size, _ = q.GetQueueSize(ctx)
	assert.Equal(t, int64(2), size)
}
