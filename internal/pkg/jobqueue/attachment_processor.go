package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/app/repository"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/imageprocessor"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/objectstore"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/upload"
)

// AttachmentProcessor uploads inline photos of a report and replaces them with URLs.
type AttachmentProcessor struct {
	reports   repository.ReportRepository
	store     objectstore.Store
	config    *objectstore.Config
	thumbnail func([]byte) ([]byte, error)
}

func NewAttachmentProcessor(reports repository.ReportRepository, store objectstore.Store, cfg *objectstore.Config) *AttachmentProcessor {
	return &AttachmentProcessor{
		reports:   reports,
		store:     store,
		config:    cfg,
		thumbnail: imageprocessor.Thumbnail,
	}
}

// Handle is the Handler of JobTypeAttachmentUpload
func (p *AttachmentProcessor) Handle(ctx context.Context, job *Job) error {
	payload, err := PayloadFromMap[AttachmentUploadPayload](job.Payload)
	if err != nil {
		return fmt.Errorf("invalid attachment payload: %w", err)
	}

	report, err := p.reports.GetByID(ctx, payload.ReportID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Infof("[JobQueue] Report %s is gone, skipping attachments", payload.ReportID)
		return nil
	}
	if err != nil {
		return err
	}

	list, err := report.Attachments()
	if err != nil {
		return err
	}

	moved := 0
	for i := range list {
		if list[i].Data == "" {
			continue
		}
		if err := p.moveOne(ctx, report, i, &list[i]); err != nil {
			// Store progress so a retry only handles the rest
			if moved > 0 {
				if serr := p.save(ctx, report, list); serr != nil {
					log.Errorf("[JobQueue] Could not store partial attachment progress of %s: %v", report.ID, serr)
				}
			}
			return err
		}
		moved++
	}
	if moved == 0 {
		return nil
	}
	return p.save(ctx, report, list)
}

func (p *AttachmentProcessor) moveOne(ctx context.Context, report *models.Report, index int, a *models.Attachment) error {
	_, data, err := upload.DecodeDataURL(a.Data)
	if err != nil {
		return fmt.Errorf("attachment %d of report %s: %w", index, report.ID, err)
	}

	key := p.config.ObjectKey(report.ID, index, objectstore.ExtensionFor(a.MimeType), report.CreatedAt)
	url, err := p.store.Put(ctx, key, data, a.MimeType)
	if err != nil {
		return err
	}

	thumb, err := p.thumbnail(data)
	if err != nil {
		log.Warnf("[JobQueue] No thumbnail for attachment %d of report %s: %v", index, report.ID, err)
	} else if thumbURL, err := p.store.Put(ctx, p.config.ThumbnailKey(key), thumb, "image/webp"); err != nil {
		log.Warnf("[JobQueue] Thumbnail upload for report %s failed: %v", report.ID, err)
	} else {
		a.ThumbnailURL = thumbURL
	}

	a.URL = url
	a.Data = ""
	if a.Size == 0 {
		a.Size = int64(len(data))
	}
	return nil
}

func (p *AttachmentProcessor) save(ctx context.Context, report *models.Report, list []models.Attachment) error {
	if err := report.SetAttachments(list); err != nil {
		return err
	}
	err := p.reports.UpdateImages(ctx, report.ID, report.Images)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
