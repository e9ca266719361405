package repository

import (
	"context"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/reportquery"
)

// reportRepository implements the ReportRepository interface on GORM
type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository instance
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Create stores a new report
func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

// GetByID retrieves a report by its id
func (r *reportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// GetByTrackingCode retrieves a report by its public tracking code
func (r *reportRepository) GetByTrackingCode(ctx context.Context, code string) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).Where("tracking_code = ?", code).First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// TrackingCodeExists checks whether a tracking code is already taken
func (r *reportRepository) TrackingCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Report{}).Where("tracking_code = ?", code).Count(&count).Error
	return count > 0, err
}

// CountVerifiedBy counts reports whose verification is attributed to an admin
func (r *reportRepository) CountVerifiedBy(ctx context.Context, adminID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Report{}).Where("verified_by = ?", adminID).Count(&count).Error
	return count, err
}

// List returns one page of reports matching f and the total number of matches
func (r *reportRepository) List(ctx context.Context, f reportquery.Filter) ([]models.Report, int64, error) {
	if f.NeedsPostFilter() {
		all, err := r.ListAll(ctx, f)
		if err != nil {
			return nil, 0, err
		}
		return f.Paginate(all), int64(len(all)), nil
	}

	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []models.Report
	err := r.ordered(r.filtered(ctx, f), f).
		Offset(f.Offset()).Limit(f.PageSize()).
		Find(&reports).Error
	return reports, total, err
}

// ListAll returns every report matching f in listing order, ignoring paging
func (r *reportRepository) ListAll(ctx context.Context, f reportquery.Filter) ([]models.Report, error) {
	var reports []models.Report
	if err := r.ordered(r.filtered(ctx, f), f).Find(&reports).Error; err != nil {
		return nil, err
	}
	if f.NeedsPostFilter() {
		reports = f.Apply(reports)
	}
	return reports, nil
}

// CompareAndSwapStatus moves a report from one status to another in a single conditional update.
// It returns false when the report was not in the expected status (or does not exist).
func (r *reportRepository) CompareAndSwapStatus(ctx context.Context, id string, from models.ReportStatus, change StatusChange) (bool, error) {
	updates := map[string]interface{}{
		"status":     string(change.To),
		"updated_at": change.At,
	}
	if change.VerifiedAt != nil {
		updates["verified_at"] = *change.VerifiedAt
		updates["verified_by"] = change.VerifiedBy
	}
	if change.ResolvedAt != nil {
		updates["resolved_at"] = *change.ResolvedAt
	}
	if change.AdminNotes != nil {
		updates["admin_notes"] = *change.AdminNotes
	}

	res := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Update writes the admin-editable fields of a report
func (r *reportRepository) Update(ctx context.Context, id string, patch ReportPatch) error {
	updates := map[string]interface{}{}
	if patch.Severity != nil {
		updates["severity"] = string(*patch.Severity)
	}
	if patch.Priority != nil {
		updates["priority"] = string(*patch.Priority)
	}
	if patch.AdminNotes != nil {
		updates["admin_notes"] = *patch.AdminNotes
	}
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.notFoundUnlessExists(ctx, id)
	}
	return nil
}

// UpdateImages replaces the attachment descriptors of a report
func (r *reportRepository) UpdateImages(ctx context.Context, id string, images datatypes.JSON) error {
	res := r.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).Update("images", images)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.notFoundUnlessExists(ctx, id)
	}
	return nil
}

// notFoundUnlessExists distinguishes "no such row" from "row unchanged", which MySQL
// also reports as zero affected rows.
func (r *reportRepository) notFoundUnlessExists(ctx context.Context, id string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a report permanently
func (r *reportRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Report{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// filtered translates f into WHERE clauses. Radius filters are narrowed to their bounding box here
// and checked exactly in ListAll.
func (r *reportRepository) filtered(ctx context.Context, f reportquery.Filter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Report{})

	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", stringsOf(f.Statuses))
	}
	if len(f.Types) > 0 {
		q = q.Where("type IN ?", stringsOf(f.Types))
	}
	if len(f.Severities) > 0 {
		q = q.Where("severity IN ?", stringsOf(f.Severities))
	}
	if len(f.Priorities) > 0 {
		q = q.Where("priority IN ?", stringsOf(f.Priorities))
	}
	if f.Province != "" {
		q = q.Where("LOWER(province) = ?", strings.ToLower(f.Province))
	}
	if f.City != "" {
		q = q.Where("LOWER(city) = ?", strings.ToLower(f.City))
	}
	if f.Barangay != "" {
		q = q.Where("LOWER(barangay) = ?", strings.ToLower(f.Barangay))
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}
	if f.ReporterID != nil {
		q = q.Where("reporter_id = ?", *f.ReporterID)
	}
	if box := f.StorageBox(); box != nil {
		q = q.Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?", box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	}
	if f.Search != "" {
		needle := "%" + likeEscaper.Replace(strings.ToLower(f.Search)) + "%"
		q = q.Where("(LOWER(type) LIKE ? ESCAPE '!' OR LOWER(address) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!')",
			needle, needle, needle)
	}
	return q
}

func (r *reportRepository) ordered(q *gorm.DB, f reportquery.Filter) *gorm.DB {
	if f.Sort == reportquery.SortOldest {
		return q.Order("created_at ASC").Order("id ASC")
	}
	return q.Order("created_at DESC").Order("id DESC")
}

func stringsOf[T ~string](v []T) []string {
	out := make([]string, len(v))
	for i, s := range v {
		out[i] = string(s)
	}
	return out
}
