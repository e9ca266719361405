package audit

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/app/repository"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/metrics"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/usercontext"
)

// Entry is one activity to record. Severity defaults to info.
type Entry struct {
	Actor        usercontext.UserContext
	Action       string
	Description  string
	ResourceType string
	ResourceID   string
	Severity     string
	Details      map[string]interface{}
}

// Recorder appends activity log entries. Writes are best effort: a failure is logged and
// counted, and never reaches the caller.
type Recorder struct {
	repo repository.ActivityLogRepository
	now  func() time.Time
}

func NewRecorder(repo repository.ActivityLogRepository) *Recorder {
	return &Recorder{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Record appends exactly one entry.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	entry := &models.ActivityLog{
		AdminID:       e.Actor.AdminIDPtr(),
		AdminUsername: e.Actor.Username,
		Action:        e.Action,
		Description:   truncate(e.Description, 500),
		ResourceType:  e.ResourceType,
		ResourceID:    e.ResourceID,
		Severity:      e.Severity,
		IPAddress:     e.Actor.IPAddress,
		UserAgent:     truncate(e.Actor.UserAgent, 255),
		Timestamp:     r.now(),
	}
	if entry.Severity == "" {
		entry.Severity = models.ActivitySeverityInfo
	}
	if len(e.Details) > 0 {
		entry.Details = datatypes.JSONMap(e.Details)
	}

	if err := r.repo.Create(ctx, entry); err != nil {
		metrics.AuditWriteFailures.Inc()
		log.Errorf("[Audit] Failed to record %s on %s %s by %q: %v",
			e.Action, e.ResourceType, e.ResourceID, e.Actor.Username, err)
	}
}

// List returns entries newest first with the total number of matches.
func (r *Recorder) List(ctx context.Context, f repository.ActivityFilter) ([]models.ActivityLog, int64, error) {
	return r.repo.List(ctx, f)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
