package reportquery

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/apperror"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit inside a 32-bit offset.
	MaxPage = math.MaxInt32 / MaxLimit
)

// Sort order of a listing.
type Sort string

const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
)

// Filter holds the criteria of a report listing. Zero values mean "no constraint".
type Filter struct {
	Statuses   []models.ReportStatus `json:"status,omitempty"`
	Types      []models.ReportType   `json:"type,omitempty"`
	Severities []models.Severity     `json:"severity,omitempty"`
	Priorities []models.Priority     `json:"priority,omitempty"`
	Province   string                `json:"province,omitempty"`
	City       string                `json:"city,omitempty"`
	Barangay   string                `json:"barangay,omitempty"`
	From       *time.Time            `json:"from,omitempty"`
	To         *time.Time            `json:"to,omitempty"`
	Search     string                `json:"search,omitempty"`
	BBox       *BBox                 `json:"bbox,omitempty"`
	Near       *Radius               `json:"near,omitempty"`
	ReporterID *uint                 `json:"reporter_id,omitempty"`
	Sort       Sort                  `json:"sort,omitempty"`
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
}

// Parse builds a Filter from query parameters. Empty values and "all" are ignored.
func Parse(q map[string]string) (Filter, error) {
	f := Filter{Page: 1, Limit: DefaultLimit, Sort: SortNewest}

	for _, s := range splitValues(q["status"]) {
		st, err := models.ParseReportStatus(s)
		if err != nil {
			return f, apperror.Validation("%v", err)
		}
		f.Statuses = append(f.Statuses, st)
	}
	for _, s := range splitValues(q["type"]) {
		t := models.ReportType(s)
		if !slices.Contains(models.ReportTypes, t) {
			return f, apperror.Validation("unknown report type %q", s)
		}
		f.Types = append(f.Types, t)
	}
	for _, s := range splitValues(q["severity"]) {
		sv := models.Severity(s)
		if !slices.Contains(models.Severities, sv) {
			return f, apperror.Validation("unknown severity %q", s)
		}
		f.Severities = append(f.Severities, sv)
	}
	for _, s := range splitValues(q["priority"]) {
		p := models.Priority(s)
		if !slices.Contains(models.Priorities, p) {
			return f, apperror.Validation("unknown priority %q", s)
		}
		f.Priorities = append(f.Priorities, p)
	}

	f.Province = singleValue(q["province"])
	f.City = singleValue(q["city"])
	f.Barangay = singleValue(q["barangay"])
	f.Search = strings.TrimSpace(q["search"])

	if v := singleValue(q["from"]); v != "" {
		t, err := parseTime(v, false)
		if err != nil {
			return f, apperror.Validation("from: %v", err)
		}
		f.From = &t
	}
	if v := singleValue(q["to"]); v != "" {
		t, err := parseTime(v, true)
		if err != nil {
			return f, apperror.Validation("to: %v", err)
		}
		f.To = &t
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, apperror.Validation("to must not be before from")
	}

	if v := strings.TrimSpace(q["bbox"]); v != "" {
		b, err := ParseBBox(v)
		if err != nil {
			return f, apperror.Validation("%v", err)
		}
		f.BBox = &b
	}
	if v := strings.TrimSpace(q["near"]); v != "" {
		r, err := ParseNear(v, strings.TrimSpace(q["radius_km"]))
		if err != nil {
			return f, apperror.Validation("%v", err)
		}
		f.Near = &r
	}

	switch s := Sort(strings.ToLower(strings.TrimSpace(q["sort"]))); s {
	case "":
	case SortNewest, SortOldest:
		f.Sort = s
	default:
		return f, apperror.Validation("sort must be newest or oldest")
	}

	if v := strings.TrimSpace(q["page"]); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, apperror.Validation("page must be a positive number")
		}
		if n > MaxPage {
			return f, apperror.Validation("page must be at most %d", MaxPage)
		}
		f.Page = n
	}
	if v := strings.TrimSpace(q["limit"]); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, apperror.Validation("limit must be a positive number")
		}
		f.Limit = n
	}
	f.normalizePaging()

	return f, nil
}

func (f *Filter) normalizePaging() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
}

// Offset is the number of rows skipped for the current page.
func (f Filter) Offset() int {
	f.normalizePaging()
	return (f.Page - 1) * f.Limit
}

// PageSize is the effective limit after clamping.
func (f Filter) PageSize() int {
	f.normalizePaging()
	return f.Limit
}

// StorageBox returns the rectangle storage should prefilter on, if any.
// A radius contributes its enclosing box; an explicit bbox is intersected with it.
func (f Filter) StorageBox() *BBox {
	var box *BBox
	if f.BBox != nil {
		b := *f.BBox
		box = &b
	}
	if f.Near != nil {
		nb := f.Near.BoundingBox()
		if box == nil {
			box = &nb
		} else {
			box.MinLng = max(box.MinLng, nb.MinLng)
			box.MinLat = max(box.MinLat, nb.MinLat)
			box.MaxLng = min(box.MaxLng, nb.MaxLng)
			box.MaxLat = min(box.MaxLat, nb.MaxLat)
		}
	}
	return box
}

// NeedsPostFilter is true when storage can only approximate the filter.
func (f Filter) NeedsPostFilter() bool {
	return f.Near != nil
}

// Match evaluates the filter against one report, paging aside.
func (f Filter) Match(r *models.Report) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, r.Status) {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, r.Type) {
		return false
	}
	if len(f.Severities) > 0 && !slices.Contains(f.Severities, r.Severity) {
		return false
	}
	if len(f.Priorities) > 0 && !slices.Contains(f.Priorities, r.Priority) {
		return false
	}
	if f.Province != "" && !strings.EqualFold(f.Province, r.Location.Province) {
		return false
	}
	if f.City != "" && !strings.EqualFold(f.City, r.Location.City) {
		return false
	}
	if f.Barangay != "" && !strings.EqualFold(f.Barangay, r.Location.Barangay) {
		return false
	}
	if f.From != nil && r.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && r.CreatedAt.After(*f.To) {
		return false
	}
	if f.ReporterID != nil && (r.Reporter.ID == nil || *r.Reporter.ID != *f.ReporterID) {
		return false
	}
	if f.BBox != nil && !f.BBox.Contains(r.Location.Latitude, r.Location.Longitude) {
		return false
	}
	if f.Near != nil && !f.Near.Contains(r.Location.Latitude, r.Location.Longitude) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(string(r.Type)), needle) &&
			!strings.Contains(strings.ToLower(r.Location.Address), needle) &&
			!strings.Contains(strings.ToLower(r.Description), needle) {
			return false
		}
	}
	return true
}

// Apply filters and sorts reports in memory. Paging is not applied.
func (f Filter) Apply(reports []models.Report) []models.Report {
	out := make([]models.Report, 0, len(reports))
	for i := range reports {
		if f.Match(&reports[i]) {
			out = append(out, reports[i])
		}
	}
	SortReports(out, f.Sort)
	return out
}

// Paginate returns the page of an already sorted slice.
func (f Filter) Paginate(reports []models.Report) []models.Report {
	start := f.Offset()
	if start < 0 || start >= len(reports) {
		return []models.Report{}
	}
	end := start + f.PageSize()
	if end > len(reports) {
		end = len(reports)
	}
	return reports[start:end]
}

// SortReports orders by creation time, ties broken by id, so the order is total.
func SortReports(reports []models.Report, order Sort) {
	sort.SliceStable(reports, func(i, j int) bool {
		a, b := reports[i], reports[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if order == SortOldest {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if order == SortOldest {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
}

// CacheKey is a canonical representation used to key cached aggregates.
func (f Filter) CacheKey() string {
	var b strings.Builder
	writeList := func(name string, vals []string) {
		if len(vals) == 0 {
			return
		}
		sorted := append([]string(nil), vals...)
		sort.Strings(sorted)
		fmt.Fprintf(&b, "%s=%s;", name, strings.Join(sorted, ","))
	}
	writeList("status", toStrings(f.Statuses))
	writeList("type", toStrings(f.Types))
	writeList("severity", toStrings(f.Severities))
	writeList("priority", toStrings(f.Priorities))
	for _, kv := range [][2]string{{"province", f.Province}, {"city", f.City}, {"barangay", f.Barangay}, {"search", strings.ToLower(f.Search)}} {
		if kv[1] != "" {
			fmt.Fprintf(&b, "%s=%s;", kv[0], strings.ToLower(kv[1]))
		}
	}
	if f.From != nil {
		fmt.Fprintf(&b, "from=%d;", f.From.Unix())
	}
	if f.To != nil {
		fmt.Fprintf(&b, "to=%d;", f.To.Unix())
	}
	if f.BBox != nil {
		fmt.Fprintf(&b, "bbox=%s;", f.BBox.String())
	}
	if f.Near != nil {
		fmt.Fprintf(&b, "near=%g,%g,%g;", f.Near.Lat, f.Near.Lng, f.Near.Km)
	}
	if f.ReporterID != nil {
		fmt.Fprintf(&b, "reporter=%d;", *f.ReporterID)
	}
	return b.String()
}

func splitValues(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || p == "all" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func singleValue(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "all") {
		return ""
	}
	return raw
}

func parseTime(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 or YYYY-MM-DD, got %q", v)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func toStrings[T ~string](v []T) []string {
	out := make([]string, len(v))
	for i, s := range v {
		out[i] = string(s)
	}
	return out
}
