package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bantaydalan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bantaydalan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bantaydalan_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// AuditWriteFailures counts activity log entries that could not be stored.
	AuditWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bantaydalan_audit_write_failures_total",
			Help: "Activity log entries that failed to persist",
		},
	)

	statusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bantaydalan_report_transitions_total",
			Help: "Report status transition attempts by target and outcome",
		},
		[]string{"target", "outcome"},
	)

	reportsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bantaydalan_reports_submitted_total",
			Help: "Reports submitted by hazard type",
		},
		[]string{"type"},
	)

	jobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bantaydalan_jobs_processed_total",
			Help: "Background jobs processed by type and result",
		},
		[]string{"type", "result"},
	)

	jobQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bantaydalan_job_queue_depth",
			Help: "Jobs waiting or in progress",
		},
		[]string{"state"},
	)
)

// Middleware records request count, latency and in-flight requests per route pattern.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		route := "unknown"
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}

		httpRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// RecordTransition counts one gate decision. Outcome is applied, noop or an error kind.
func RecordTransition(target, outcome string) {
	statusTransitions.WithLabelValues(target, outcome).Inc()
}

// RecordSubmission counts one accepted report
func RecordSubmission(reportType string) {
	reportsSubmitted.WithLabelValues(reportType).Inc()
}

// RecordJob counts one finished background job
func RecordJob(jobType string, success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	jobsProcessed.WithLabelValues(jobType, result).Inc()
}

// SetQueueDepth publishes the current pending and processing job counts
func SetQueueDepth(pending, processing int64) {
	jobQueueDepth.WithLabelValues("pending").Set(float64(pending))
	jobQueueDepth.WithLabelValues("processing").Set(float64(processing))
}
