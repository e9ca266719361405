package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bantaydalan/bantaydalan-api/app/models"
)

const defaultActivityLimit = 50

// activityLogRepository implements the ActivityLogRepository interface
type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository creates a new activity log repository instance
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

// Create appends one entry
func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns matching entries newest first and the total number of matches
func (r *activityLogRepository) List(ctx context.Context, f ActivityFilter) ([]models.ActivityLog, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ActivityLog{})
	if f.AdminID != nil {
		q = q.Where("admin_id = ?", *f.AdminID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.ResourceType != "" {
		q = q.Where("resource_type = ?", f.ResourceType)
	}
	if f.ResourceID != "" {
		q = q.Where("resource_id = ?", f.ResourceID)
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", f.Severity)
	}
	if f.From != nil {
		q = q.Where("timestamp >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("timestamp <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	var entries []models.ActivityLog
	err := q.Order("timestamp DESC").Order("id DESC").
		Offset(f.Offset).Limit(limit).
		Find(&entries).Error
	return entries, total, err
}
