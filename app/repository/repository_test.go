package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/permission"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/reportquery"
)

var base = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Admin{}, &models.User{}, &models.Report{}, &models.ActivityLog{}, &models.News{}, &models.Setting{}))
	return db
}

func seedReports(t *testing.T, repo ReportRepository) {
	t.Helper()
	mk := func(id, code string, typ models.ReportType, st models.ReportStatus, addr string, lat, lng float64, age time.Duration) *models.Report {
		r := models.NewReport(typ, models.SeverityMedium, models.Location{Address: addr, City: "Quezon City", Latitude: lat, Longitude: lng}, "hazard at "+addr, models.ReporterRef{Name: "Juan"})
		r.ID = id
		r.TrackingCode = code
		r.Status = st
		r.CreatedAt = base.Add(-age)
		r.UpdatedAt = r.CreatedAt
		return r
	}
	for _, r := range []*models.Report{
		mk("r1", "BD-00000001", models.ReportTypePothole, models.ReportStatusVerified, "Commonwealth Ave", 14.6760, 121.0437, time.Hour),
		mk("r2", "BD-00000002", models.ReportTypePothole, models.ReportStatusVerified, "Katipunan Ave", 14.6390, 121.0760, 2*time.Hour),
		mk("r3", "BD-00000003", models.ReportTypePothole, models.ReportStatusPending, "Aurora Blvd", 14.6224, 121.0530, 3*time.Hour),
		mk("r4", "BD-00000004", models.ReportTypeFlooding, models.ReportStatusVerified, "España Blvd", 14.6110, 120.9890, 4*time.Hour),
		mk("r5", "BD-00000005", models.ReportTypeDebris, models.ReportStatusRejected, "Roxas Blvd", 14.5580, 120.9880, 5*time.Hour),
	} {
		require.NoError(t, repo.Create(context.Background(), r))
	}
}

func reportIDs(reports []models.Report) []string {
	out := make([]string, len(reports))
	for i, r := range reports {
		out[i] = r.ID
	}
	return out
}

func TestReportRepositoryListMatchesFilter(t *testing.T) {
	repo := NewReportRepository(newTestDB(t))
	seedReports(t, repo)
	ctx := context.Background()

	tests := []struct {
		name  string
		query map[string]string
		want  []string
		total int64
	}{
		{"status and type", map[string]string{"status": "verified", "type": "pothole"}, []string{"r1", "r2"}, 2},
		{"all", map[string]string{"status": "all"}, []string{"r1", "r2", "r3", "r4", "r5"}, 5},
		{"search", map[string]string{"search": "BLVD"}, []string{"r3", "r4", "r5"}, 3},
		{"oldest", map[string]string{"sort": "oldest", "limit": "2"}, []string{"r5", "r4"}, 5},
		{"second page", map[string]string{"limit": "2", "page": "2"}, []string{"r3", "r4"}, 5},
		{"bbox", map[string]string{"bbox": "121.0,14.60,121.1,14.70"}, []string{"r1", "r2", "r3"}, 3},
		{"radius", map[string]string{"near": "14.6760,121.0437", "radius_km": "1"}, []string{"r1"}, 1},
		{"city is case insensitive", map[string]string{"city": "quezon city", "status": "rejected"}, []string{"r5"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := reportquery.Parse(tt.query)
			require.NoError(t, err)

			got, total, err := repo.List(ctx, f)
			require.NoError(t, err)
			assert.Equal(t, tt.want, reportIDs(got))
			assert.Equal(t, tt.total, total)
		})
	}
}

func TestReportRepositoryListAgreesWithInMemoryFilter(t *testing.T) {
	repo := NewReportRepository(newTestDB(t))
	seedReports(t, repo)
	ctx := context.Background()

	everything, err := repo.ListAll(ctx, reportquery.Filter{})
	require.NoError(t, err)

	for _, q := range []map[string]string{
		{"status": "verified,pending"},
		{"type": "flooding"},
		{"search": "ave", "sort": "oldest"},
		{"from": base.Add(-3 * time.Hour).Format(time.RFC3339), "to": base.Add(-time.Hour).Format(time.RFC3339)},
	} {
		f, err := reportquery.Parse(q)
		require.NoError(t, err)
		stored, err := repo.ListAll(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, reportIDs(f.Apply(everything)), reportIDs(stored), "%v", q)
	}
}

func TestReportRepositoryCompareAndSwapStatus(t *testing.T) {
	repo := NewReportRepository(newTestDB(t))
	seedReports(t, repo)
	ctx := context.Background()

	adminID := uint(7)
	at := base.Add(time.Minute)
	notes := "confirmed on site"
	ok, err := repo.CompareAndSwapStatus(ctx, "r3", models.ReportStatusPending, StatusChange{
		To:         models.ReportStatusVerified,
		At:         at,
		VerifiedBy: &adminID,
		VerifiedAt: &at,
		AdminNotes: &notes,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(ctx, "r3")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusVerified, got.Status)
	require.NotNil(t, got.VerifiedBy)
	assert.Equal(t, adminID, *got.VerifiedBy)
	require.NotNil(t, got.VerifiedAt)
	assert.True(t, at.Equal(*got.VerifiedAt))
	assert.Equal(t, notes, got.AdminNotes)
	assert.Nil(t, got.ResolvedAt)

	// A second swap from the old status loses.
	ok, err = repo.CompareAndSwapStatus(ctx, "r3", models.ReportStatusPending, StatusChange{To: models.ReportStatusRejected, At: at})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.CompareAndSwapStatus(ctx, "missing", models.ReportStatusPending, StatusChange{To: models.ReportStatusVerified, At: at})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReportRepositoryUpdateAndDelete(t *testing.T) {
	repo := NewReportRepository(newTestDB(t))
	seedReports(t, repo)
	ctx := context.Background()

	high := models.PriorityHigh
	require.NoError(t, repo.Update(ctx, "r1", ReportPatch{Priority: &high}))
	got, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, models.SeverityMedium, got.Severity)

	assert.ErrorIs(t, repo.Update(ctx, "missing", ReportPatch{Priority: &high}), gorm.ErrRecordNotFound)

	require.NoError(t, repo.Delete(ctx, "r1"))
	_, err = repo.GetByID(ctx, "r1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "r1"), gorm.ErrRecordNotFound)

	byCode, err := repo.GetByTrackingCode(ctx, "BD-00000002")
	require.NoError(t, err)
	assert.Equal(t, "r2", byCode.ID)

	exists, err := repo.TrackingCodeExists(ctx, "BD-00000001")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestActivityLogRepositoryListsNewestFirst(t *testing.T) {
	repo := NewActivityLogRepository(newTestDB(t))
	ctx := context.Background()

	adminID := uint(1)
	for i, action := range []string{models.ActionLogin, models.ActionReportVerify, models.ActionReportDelete} {
		require.NoError(t, repo.Create(ctx, &models.ActivityLog{
			AdminID:       &adminID,
			AdminUsername: "root",
			Action:        action,
			ResourceType:  models.ResourceReport,
			ResourceID:    fmt.Sprintf("r%d", i),
			Severity:      models.ActivitySeverityInfo,
			Timestamp:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, total, err := repo.List(ctx, ActivityFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, entries, 3)
	assert.Equal(t, models.ActionReportDelete, entries[0].Action)

	entries, total, err = repo.List(ctx, ActivityFilter{Action: models.ActionReportVerify})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "r1", entries[0].ResourceID)
}

func TestAdminRepositoryCountsActiveSuperAdmins(t *testing.T) {
	repo := NewAdminRepository(newTestDB(t))

	super, err := models.NewAdmin("root", "changeme123", permission.RoleSuperAdmin, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Create(super))

	inactive, err := models.NewAdmin("old", "changeme123", permission.RoleSuperAdmin, nil)
	require.NoError(t, err)
	inactive.IsActive = false
	require.NoError(t, repo.Create(inactive))

	staff, err := models.NewAdmin("staff", "changeme123", permission.RoleAdmin, permission.DefaultAdmin)
	require.NoError(t, err)
	require.NoError(t, repo.Create(staff))

	n, err := repo.CountActiveSuperAdmins()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.GetByUsername("staff")
	require.NoError(t, err)
	assert.True(t, got.PermissionSet().CanViewReports())
	assert.False(t, got.PermissionSet().CanDeleteReports())
}

func TestAdminRepositoryKeepsVerifierOfReports(t *testing.T) {
	db := newTestDB(t)
	reports := NewReportRepository(db)
	admins := NewAdminRepository(db)
	seedReports(t, reports)
	ctx := context.Background()

	reviewer, err := models.NewAdmin("reviewer", "changeme123", permission.RoleAdmin, []permission.Token{permission.ReportView, permission.ReportVerify})
	require.NoError(t, err)
	require.NoError(t, admins.Create(reviewer))
	idle, err := models.NewAdmin("idle", "changeme123", permission.RoleAdmin, nil)
	require.NoError(t, err)
	require.NoError(t, admins.Create(idle))

	at := base.Add(time.Minute)
	ok, err := reports.CompareAndSwapStatus(ctx, "r3", models.ReportStatusPending, StatusChange{
		To:         models.ReportStatusVerified,
		At:         at,
		VerifiedBy: &reviewer.ID,
		VerifiedAt: &at,
	})
	require.NoError(t, err)
	require.True(t, ok)

	n, err := reports.CountVerifiedBy(ctx, reviewer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.ErrorIs(t, admins.Delete(reviewer.ID), ErrAdminReferenced)

	r, err := reports.GetByID(ctx, "r3")
	require.NoError(t, err)
	require.NotNil(t, r.VerifiedAt)
	require.NotNil(t, r.VerifiedBy)
	verifier, err := admins.GetByID(*r.VerifiedBy)
	require.NoError(t, err)
	assert.Equal(t, "reviewer", verifier.Username)

	require.NoError(t, admins.Delete(idle.ID))
	_, err = admins.GetByID(idle.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// Two verified potholes, one verified flood and two pending potholes.
func TestReportRepositoryVerifiedPotholeFixture(t *testing.T) {
	repo := NewReportRepository(newTestDB(t))
	ctx := context.Background()
	for i, fx := range []struct {
		typ models.ReportType
		st  models.ReportStatus
	}{
		{models.ReportTypePothole, models.ReportStatusVerified},
		{models.ReportTypePothole, models.ReportStatusVerified},
		{models.ReportTypeFlooding, models.ReportStatusVerified},
		{models.ReportTypePothole, models.ReportStatusPending},
		{models.ReportTypePothole, models.ReportStatusPending},
	} {
		r := models.NewReport(fx.typ, models.SeverityMedium, models.Location{Address: "EDSA", Latitude: 14.6, Longitude: 121.0}, "", models.ReporterRef{Name: "Juan"})
		r.ID = fmt.Sprintf("f%d", i+1)
		r.TrackingCode = fmt.Sprintf("BD-F000000%d", i+1)
		r.Status = fx.st
		r.CreatedAt = base.Add(-time.Duration(i) * time.Hour)
		r.UpdatedAt = r.CreatedAt
		require.NoError(t, repo.Create(ctx, r))
	}

	f, err := reportquery.Parse(map[string]string{"status": "verified", "type": "pothole"})
	require.NoError(t, err)
	got, total, err := repo.List(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, []string{"f1", "f2"}, reportIDs(got))
}
