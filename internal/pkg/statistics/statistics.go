package statistics

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/app/repository"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/lifecycle"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/reportquery"
)

const (
	CacheKeyPrefix  = "statistics:reports:"
	CacheKeyVersion = "statistics:version"
	CacheExpiration = 60 * time.Second
	DefaultDays     = 30
	MaxDays         = 365
)

// Bucket is the count and share of one category value.
type Bucket struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Summary is the aggregate shown on the admin dashboard.
type Summary struct {
	Total             int                 `json:"total"`
	ByStatus          map[string]Bucket   `json:"by_status"`
	ByType            map[string]Bucket   `json:"by_type"`
	BySeverity        map[string]Bucket   `json:"by_severity"`
	ByPriority        map[string]Bucket   `json:"by_priority"`
	Daily             []models.DailyStats `json:"daily"`
	VerificationRate  float64             `json:"verification_rate"`
	MeanHoursToVerify *float64            `json:"mean_hours_to_verify"`
	GeneratedAt       time.Time           `json:"generated_at"`
}

// Aggregate computes a Summary over reports. Daily covers the days ending with now's date.
func Aggregate(reports []models.Report, days int, now time.Time) Summary {
	if days <= 0 {
		days = DefaultDays
	}
	now = now.UTC()
	s := Summary{
		Total:       len(reports),
		ByStatus:    zeroBuckets(models.ReportStatuses),
		ByType:      zeroBuckets(models.ReportTypes),
		BySeverity:  zeroBuckets(models.Severities),
		ByPriority:  zeroBuckets(models.Priorities),
		GeneratedAt: now,
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	first := today.AddDate(0, 0, -(days - 1))
	daily := make(map[string]int, days)

	var reviewed, verified int
	var verifyHours float64
	var verifyCount int
	for i := range reports {
		r := &reports[i]
		bump(s.ByStatus, string(r.Status))
		bump(s.ByType, string(r.Type))
		bump(s.BySeverity, string(r.Severity))
		bump(s.ByPriority, string(r.Priority))

		created := r.CreatedAt.UTC()
		if !created.Before(first) {
			daily[created.Format("2006-01-02")]++
		}

		if r.Status != models.ReportStatusPending {
			reviewed++
		}
		if r.Status == models.ReportStatusVerified || r.Status == models.ReportStatusResolved {
			verified++
		}
		if r.VerifiedAt != nil && !r.VerifiedAt.Before(r.CreatedAt) {
			verifyHours += r.VerifiedAt.Sub(r.CreatedAt).Hours()
			verifyCount++
		}
	}

	for _, m := range []map[string]Bucket{s.ByStatus, s.ByType, s.BySeverity, s.ByPriority} {
		for k, b := range m {
			b.Percent = percent(b.Count, s.Total)
			m[k] = b
		}
	}

	s.Daily = make([]models.DailyStats, 0, days)
	for d := first; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		s.Daily = append(s.Daily, models.DailyStats{Date: key, Count: daily[key]})
	}

	s.VerificationRate = percent(verified, reviewed)
	if verifyCount > 0 {
		mean := round2(verifyHours / float64(verifyCount))
		s.MeanHoursToVerify = &mean
	}
	return s
}

func zeroBuckets[T ~string](values []T) map[string]Bucket {
	m := make(map[string]Bucket, len(values))
	for _, v := range values {
		m[string(v)] = Bucket{}
	}
	return m
}

func bump(m map[string]Bucket, key string) {
	b := m[key]
	b.Count++
	m[key] = b
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) * 100 / float64(total))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Service computes summaries over filtered reports and caches them in redis.
type Service struct {
	reports repository.ReportRepository
	client  *redis.Client
	now     func() time.Time
}

// NewService wires the aggregator. A nil client disables caching.
func NewService(reports repository.ReportRepository, client *redis.Client) *Service {
	return &Service{reports: reports, client: client, now: time.Now}
}

// Summary returns the aggregate of every report matching f.
func (s *Service) Summary(ctx context.Context, f reportquery.Filter, days int) (Summary, error) {
	if days <= 0 {
		days = DefaultDays
	}
	if days > MaxDays {
		days = MaxDays
	}

	key := s.cacheKey(ctx, f, days)
	if key != "" {
		if raw, err := s.client.Get(ctx, key).Bytes(); err == nil {
			var cached Summary
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	reports, err := s.reports.ListAll(ctx, f)
	if err != nil {
		return Summary{}, fmt.Errorf("load reports for statistics: %w", err)
	}
	sum := Aggregate(reports, days, s.now())

	if key != "" {
		if raw, err := json.Marshal(sum); err == nil {
			if err := s.client.Set(ctx, key, raw, CacheExpiration).Err(); err != nil {
				log.Warnf("[Statistics] Could not cache summary: %v", err)
			}
		}
	}
	return sum, nil
}

// Invalidate drops every cached summary by bumping the cache generation.
func (s *Service) Invalidate(ctx context.Context) {
	if s.client == nil {
		return
	}
	if err := s.client.Incr(ctx, CacheKeyVersion).Err(); err != nil {
		log.Warnf("[Statistics] Could not invalidate cache: %v", err)
	}
}

// ReportChanged invalidates the cache after any report mutation.
func (s *Service) ReportChanged(ctx context.Context, _ lifecycle.Event) {
	s.Invalidate(ctx)
}

func (s *Service) cacheKey(ctx context.Context, f reportquery.Filter, days int) string {
	if s.client == nil {
		return ""
	}
	version, err := s.client.Get(ctx, CacheKeyVersion).Int64()
	if err != nil && err != redis.Nil {
		return ""
	}
	return fmt.Sprintf("%sv%d:d%d:%s", CacheKeyPrefix, version, days, f.CacheKey())
}
