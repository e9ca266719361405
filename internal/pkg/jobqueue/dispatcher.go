package jobqueue

import (
	"context"

	"github.com/gofiber/fiber/v2/log"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/lifecycle"
)

// Dispatcher turns report events into jobs.
type Dispatcher struct {
	queue    *Queue
	settings func() *models.AppSettings
}

func NewDispatcher(queue *Queue, settings func() *models.AppSettings) *Dispatcher {
	return &Dispatcher{queue: queue, settings: settings}
}

// ScheduleAttachments enqueues the upload of a report's inline photos
func (d *Dispatcher) ScheduleAttachments(ctx context.Context, reportID string) error {
	_, err := d.queue.EnqueueJob(ctx, JobTypeAttachmentUpload, AttachmentUploadPayload{ReportID: reportID}.ToMap())
	return err
}

// ReportChanged enqueues a reporter mail after an applied transition when enabled
func (d *Dispatcher) ReportChanged(ctx context.Context, ev lifecycle.Event) {
	if ev.Kind != lifecycle.EventTransition || ev.Report == nil {
		return
	}
	if !d.settings().AutoNotifyReporters || ev.Report.Reporter.Email == "" {
		return
	}
	payload := NotifyReporterPayload{
		ReportID: ev.ReportID,
		Status:   string(ev.To),
		Notes:    ev.Report.AdminNotes,
	}
	if _, err := d.queue.EnqueueJob(ctx, JobTypeNotifyReporter, payload.ToMap()); err != nil {
		log.Warnf("[JobQueue] Could not enqueue notification for report %s: %v", ev.ReportID, err)
	}
}
