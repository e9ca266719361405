package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/app/repository"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/metrics"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/usercontext"
)

type fakeActivityRepo struct {
	entries []models.ActivityLog
	err     error
}

func (f *fakeActivityRepo) Create(_ context.Context, e *models.ActivityLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeActivityRepo) List(_ context.Context, _ repository.ActivityFilter) ([]models.ActivityLog, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

func TestRecordFillsEntry(t *testing.T) {
	repo := &fakeActivityRepo{}
	rec := NewRecorder(repo)
	actor := usercontext.UserContext{Kind: usercontext.KindAdmin, AdminID: 3, Username: "maria", IPAddress: "10.0.0.1"}

	rec.Record(context.Background(), Entry{
		Actor:        actor,
		Action:       models.ActionReportVerify,
		ResourceType: models.ResourceReport,
		ResourceID:   "r1",
		Details:      map[string]interface{}{"from": "pending", "to": "verified"},
	})

	require.Len(t, repo.entries, 1)
	got := repo.entries[0]
	require.NotNil(t, got.AdminID)
	assert.Equal(t, uint(3), *got.AdminID)
	assert.Equal(t, "maria", got.AdminUsername)
	assert.Equal(t, models.ActivitySeverityInfo, got.Severity)
	assert.Equal(t, "verified", got.Details["to"])
	assert.False(t, got.Timestamp.IsZero())
}

func TestRecordSwallowsFailures(t *testing.T) {
	repo := &fakeActivityRepo{err: errors.New("disk full")}
	rec := NewRecorder(repo)

	before := testutil.ToFloat64(metrics.AuditWriteFailures)
	assert.NotPanics(t, func() {
		rec.Record(context.Background(), Entry{Action: models.ActionReportDelete})
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AuditWriteFailures)-before)
}

func TestRecordWithoutAdminActor(t *testing.T) {
	repo := &fakeActivityRepo{}
	NewRecorder(repo).Record(context.Background(), Entry{
		Action:   models.ActionLoginFailed,
		Severity: models.ActivitySeverityWarning,
	})
	require.Len(t, repo.entries, 1)
	assert.Nil(t, repo.entries[0].AdminID)
	assert.Equal(t, models.ActivitySeverityWarning, repo.entries[0].Severity)
}

func TestRecordCutsLongTextOnRuneBoundary(t *testing.T) {
	repo := &fakeActivityRepo{}
	agent := strings.Repeat("a", 254) + "ñ" + "/1.0"
	desc := strings.Repeat("x", 499) + "€"
	NewRecorder(repo).Record(context.Background(), Entry{
		Actor:       usercontext.UserContext{Kind: usercontext.KindAdmin, AdminID: 1, UserAgent: agent},
		Action:      models.ActionLogin,
		Description: desc,
	})

	require.Len(t, repo.entries, 1)
	got := repo.entries[0]
	assert.True(t, utf8.ValidString(got.UserAgent))
	assert.Equal(t, strings.Repeat("a", 254), got.UserAgent)
	assert.True(t, utf8.ValidString(got.Description))
	assert.Len(t, got.Description, 499)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Bantay", truncate("BantayDalan", 6))
	assert.Equal(t, "", truncate("ñ", 1))
	assert.Equal(t, "ab", truncate("abñ", 3))
}
