package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/bantaydalan/bantaydalan-api/app/repository"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/mail"
)

// NotifyProcessor mails reporters about status changes of their reports.
type NotifyProcessor struct {
	reports repository.ReportRepository
	mailer  mail.Mailer
}

func NewNotifyProcessor(reports repository.ReportRepository, mailer mail.Mailer) *NotifyProcessor {
	return &NotifyProcessor{reports: reports, mailer: mailer}
}

// Handle is the Handler of JobTypeNotifyReporter
func (p *NotifyProcessor) Handle(ctx context.Context, job *Job) error {
	payload, err := PayloadFromMap[NotifyReporterPayload](job.Payload)
	if err != nil {
		return fmt.Errorf("invalid notify payload: %w", err)
	}

	report, err := p.reports.GetByID(ctx, payload.ReportID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if report.Reporter.Email == "" {
		log.Debugf("[JobQueue] Report %s has no reporter email", report.ID)
		return nil
	}

	subject, body, err := mail.RenderStatusUpdate(mail.StatusUpdate{
		Name:         report.Reporter.Name,
		TrackingCode: report.TrackingCode,
		Type:         string(report.Type),
		Status:       payload.Status,
		Notes:        payload.Notes,
		At:           report.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return p.mailer.Send(report.Reporter.Email, subject, body)
}
