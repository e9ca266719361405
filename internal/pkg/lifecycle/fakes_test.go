package lifecycle

import (
	"context"
	"sync"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/app/repository"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/audit"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/reportquery"
)

// memReports is an in-memory ReportRepository with the same swap semantics as the SQL store.
type memReports struct {
	mu        sync.Mutex
	reports   map[string]models.Report
	reads     int
	beforeCAS func(m *memReports)
}

func newMemReports(reports ...*models.Report) *memReports {
	m := &memReports{reports: map[string]models.Report{}}
	for _, r := range reports {
		m.reports[r.ID] = *r
	}
	return m
}

func (m *memReports) Create(_ context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ID] = *r
	return nil
}

func (m *memReports) GetByID(_ context.Context, id string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	r, ok := m.reports[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

func (m *memReports) GetByTrackingCode(_ context.Context, code string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.TrackingCode == code {
			return &r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memReports) List(ctx context.Context, f reportquery.Filter) ([]models.Report, int64, error) {
	all, _ := m.ListAll(ctx, f)
	return f.Paginate(all), int64(len(all)), nil
}

func (m *memReports) ListAll(_ context.Context, f reportquery.Filter) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]models.Report, 0, len(m.reports))
	for _, r := range m.reports {
		all = append(all, r)
	}
	return f.Apply(all), nil
}

func (m *memReports) CompareAndSwapStatus(_ context.Context, id string, from models.ReportStatus, change repository.StatusChange) (bool, error) {
	if m.beforeCAS != nil {
		hook := m.beforeCAS
		m.beforeCAS = nil
		hook(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok || r.Status != from {
		return false, nil
	}
	m.reports[id] = *applyChange(r, change)
	return true, nil
}

func (m *memReports) Update(_ context.Context, id string, patch repository.ReportPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if patch.Severity != nil {
		r.Severity = *patch.Severity
	}
	if patch.Priority != nil {
		r.Priority = *patch.Priority
	}
	if patch.AdminNotes != nil {
		r.AdminNotes = *patch.AdminNotes
	}
	m.reports[id] = r
	return nil
}

func (m *memReports) UpdateImages(_ context.Context, id string, images datatypes.JSON) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.Images = images
	m.reports[id] = r
	return nil
}

func (m *memReports) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.reports, id)
	return nil
}

func (m *memReports) TrackingCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := m.GetByTrackingCode(ctx, code)
	return err == nil, nil
}

func (m *memReports) CountVerifiedBy(_ context.Context, adminID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.reports {
		if r.VerifiedBy != nil && *r.VerifiedBy == adminID {
			n++
		}
	}
	return n, nil
}

func (m *memReports) set(id string, status models.ReportStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.reports[id]
	r.Status = status
	m.reports[id] = r
}

type memRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *memRecorder) Record(_ context.Context, e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *memRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
