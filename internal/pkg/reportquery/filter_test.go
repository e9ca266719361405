package reportquery

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/apperror"
)

var base = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

func fixture() []models.Report {
	mk := func(id string, typ models.ReportType, st models.ReportStatus, sev models.Severity, addr, desc string, lat, lng float64, age time.Duration) models.Report {
		return models.Report{
			ID:          id,
			Type:        typ,
			Status:      st,
			Severity:    sev,
			Priority:    models.PriorityMedium,
			Location:    models.Location{Address: addr, City: "Quezon City", Latitude: lat, Longitude: lng},
			Description: desc,
			CreatedAt:   base.Add(-age),
		}
	}
	return []models.Report{
		mk("r1", models.ReportTypePothole, models.ReportStatusVerified, models.SeverityHigh, "Commonwealth Ave", "Large pothole near the flyover", 14.6760, 121.0437, 1*time.Hour),
		mk("r2", models.ReportTypePothole, models.ReportStatusVerified, models.SeverityLow, "Katipunan Ave", "small crack", 14.6390, 121.0760, 2*time.Hour),
		mk("r3", models.ReportTypePothole, models.ReportStatusPending, models.SeverityMedium, "Aurora Blvd", "Pothole filling with water", 14.6224, 121.0530, 3*time.Hour),
		mk("r4", models.ReportTypeFlooding, models.ReportStatusVerified, models.SeverityHigh, "España Blvd", "Knee deep flood", 14.6110, 120.9890, 4*time.Hour),
		mk("r5", models.ReportTypeDebris, models.ReportStatusRejected, models.SeverityLow, "Roxas Blvd", "Fallen branches", 14.5580, 120.9880, 5*time.Hour),
	}
}

func ids(reports []models.Report) []string {
	out := make([]string, len(reports))
	for i, r := range reports {
		out[i] = r.ID
	}
	return out
}

func TestParseDefaults(t *testing.T) {
	f, err := Parse(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultLimit, f.Limit)
	assert.Equal(t, SortNewest, f.Sort)
	assert.Empty(t, f.Statuses)
	assert.Equal(t, 0, f.Offset())
}

func TestParseAllMeansUnconstrained(t *testing.T) {
	f, err := Parse(map[string]string{"status": "all", "type": "", "severity": "ALL", "city": "all"})
	require.NoError(t, err)
	assert.Empty(t, f.Statuses)
	assert.Empty(t, f.Types)
	assert.Empty(t, f.Severities)
	assert.Empty(t, f.City)
	assert.Len(t, f.Apply(fixture()), 5)
}

func TestStatusAndTypeFilter(t *testing.T) {
	f, err := Parse(map[string]string{"status": "verified", "type": "pothole"})
	require.NoError(t, err)

	got := f.Apply(fixture())
	assert.Equal(t, []string{"r1", "r2"}, ids(got))
}

func TestMultiValueFilter(t *testing.T) {
	f, err := Parse(map[string]string{"status": "verified,rejected", "severity": "low"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r5"}, ids(f.Apply(fixture())))
}

func TestSearchIsCaseInsensitiveAcrossFields(t *testing.T) {
	tests := []struct {
		search string
		want   []string
	}{
		{"POTHOLE", []string{"r1", "r2", "r3"}},
		{"blvd", []string{"r3", "r4", "r5"}},
		{"knee deep", []string{"r4"}},
		{"nothing matches", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			f, err := Parse(map[string]string{"search": tt.search})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(f.Apply(fixture())))
		})
	}
}

func TestDateRange(t *testing.T) {
	from := base.Add(-3 * time.Hour).Format(time.RFC3339)
	to := base.Add(-2 * time.Hour).Format(time.RFC3339)
	f, err := Parse(map[string]string{"from": from, "to": to})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r3"}, ids(f.Apply(fixture())))

	day, err := Parse(map[string]string{"from": "2024-07-01", "to": "2024-07-01"})
	require.NoError(t, err)
	assert.Len(t, day.Apply(fixture()), 5)

	_, err = Parse(map[string]string{"from": "2024-07-02", "to": "2024-07-01"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestBBoxAndRadius(t *testing.T) {
	f, err := Parse(map[string]string{"bbox": "121.0,14.60,121.1,14.70"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3"}, ids(f.Apply(fixture())))

	near, err := Parse(map[string]string{"near": "14.6760,121.0437", "radius_km": "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids(near.Apply(fixture())))
	assert.True(t, near.NeedsPostFilter())

	box := near.StorageBox()
	require.NotNil(t, box)
	assert.True(t, box.Contains(14.6760, 121.0437))
	assert.False(t, box.Contains(14.5580, 120.9880))
}

func TestSortIsStableWithIDTieBreak(t *testing.T) {
	reports := fixture()
	for i := range reports {
		reports[i].CreatedAt = base
	}
	SortReports(reports, SortNewest)
	assert.Equal(t, []string{"r5", "r4", "r3", "r2", "r1"}, ids(reports))

	SortReports(reports, SortOldest)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4", "r5"}, ids(reports))
}

func TestPaginate(t *testing.T) {
	f, err := Parse(map[string]string{"page": "2", "limit": "2"})
	require.NoError(t, err)
	all := f.Apply(fixture())
	assert.Equal(t, []string{"r3", "r4"}, ids(f.Paginate(all)))

	f.Page = 9
	assert.Empty(t, f.Paginate(all))

	big, err := Parse(map[string]string{"limit": "1000"})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, big.Limit)
}

func TestParseRejectsBadInput(t *testing.T) {
	bad := []map[string]string{
		{"status": "archived"},
		{"type": "volcano"},
		{"severity": "extreme"},
		{"priority": "asap"},
		{"bbox": "1,2,3"},
		{"bbox": "121.1,14.7,121.0,14.6"},
		{"near": "95,120"},
		{"near": "14,121", "radius_km": "-1"},
		{"page": "0"},
		{"page": "922337203685477581"},
		{"sort": "random"},
		{"from": "yesterday"},
	}
	for _, q := range bad {
		_, err := Parse(q)
		assert.ErrorIs(t, err, apperror.ErrValidation, "%v", q)
	}
}

func TestCacheKeyIsCanonical(t *testing.T) {
	a, err := Parse(map[string]string{"status": "verified,pending", "city": "Makati"})
	require.NoError(t, err)
	b, err := Parse(map[string]string{"status": "pending,verified", "city": "makati", "page": "3"})
	require.NoError(t, err)
	assert.Equal(t, a.CacheKey(), b.CacheKey())
}

func TestHaversine(t *testing.T) {
	// Rizal Park to Quezon Memorial Circle, about 9 km.
	d := HaversineKm(14.5995, 120.9842, 14.6516, 121.0493)
	assert.InDelta(t, 9.1, d, 1.0)
	assert.InDelta(t, 0, HaversineKm(14.5, 121.0, 14.5, 121.0), 1e-9)
}

func TestHugePageIsRejectedAndNeverPanics(t *testing.T) {
	_, err := Parse(map[string]string{"near": "14.6,121.0", "radius_km": "50", "page": "922337203685477581"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	f, err := Parse(map[string]string{"near": "14.6,121.0", "radius_km": "50", "page": "21474836"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, f.Offset(), 0)
	assert.Empty(t, f.Paginate(f.Apply(fixture())))

	built := Filter{Page: math.MaxInt, Limit: MaxLimit}
	assert.Equal(t, (MaxPage-1)*MaxLimit, built.Offset())
	assert.NotPanics(t, func() { assert.Empty(t, built.Paginate(fixture())) })
}

func TestRadiusBoxAcrossAntimeridianAndPole(t *testing.T) {
	tests := []struct {
		name     string
		near     string
		lat, lng float64
	}{
		{"east of the antimeridian", "0,179.99", 0, -179.9},
		{"west of the antimeridian", "-16.5,-179.95", -16.5, 179.95},
		{"over the north pole", "89.9,0", 89.9, 180},
		{"over the south pole", "-89.9,90", -89.9, -90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(map[string]string{"near": tt.near, "radius_km": "50"})
			require.NoError(t, err)
			require.True(t, f.Near.Contains(tt.lat, tt.lng))
			box := f.StorageBox()
			require.NotNil(t, box)
			assert.True(t, box.Contains(tt.lat, tt.lng), "box %s", box)
		})
	}

	// A circle away from the edges keeps a tight longitude span.
	local := Radius{Lat: 14.6, Lng: 121.0, Km: 10}.BoundingBox()
	assert.Greater(t, local.MinLng, 120.8)
	assert.Less(t, local.MaxLng, 121.2)
}

// Two verified potholes, one verified flood and two pending potholes.
func TestVerifiedPotholeFixture(t *testing.T) {
	mk := func(id string, typ models.ReportType, st models.ReportStatus, age time.Duration) models.Report {
		return models.Report{ID: id, Type: typ, Status: st, CreatedAt: base.Add(-age)}
	}
	reports := []models.Report{
		mk("a", models.ReportTypePothole, models.ReportStatusVerified, time.Hour),
		mk("b", models.ReportTypePothole, models.ReportStatusVerified, 2*time.Hour),
		mk("c", models.ReportTypeFlooding, models.ReportStatusVerified, 3*time.Hour),
		mk("d", models.ReportTypePothole, models.ReportStatusPending, 4*time.Hour),
		mk("e", models.ReportTypePothole, models.ReportStatusPending, 5*time.Hour),
	}
	f, err := Parse(map[string]string{"status": "verified", "type": "pothole"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(f.Apply(reports)))
}
