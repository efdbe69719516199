// Package metrics exposes the Prometheus collectors of the API.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Business metrics
	LeadsCreated   *prometheus.CounterVec
	LeadsConverted prometheus.Counter
	LoginAttempts  *prometheus.CounterVec
	ChangeRequests *prometheus.CounterVec
	ExportsCreated *prometheus.CounterVec

	// Outbound integrations
	NotificationsSent *prometheus.CounterVec
	OutboundDuration  *prometheus.HistogramVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Background jobs
	JobRuns *prometheus.CounterVec
}

// New creates all collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		HTTPResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
			},
			[]string{"method", "path"},
		),

		LeadsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_created_total",
				Help: "Total number of leads created",
			},
			[]string{"source"},
		),
		LeadsConverted: f.NewCounter(prometheus.CounterOpts{
			Name: "leads_converted_total",
			Help: "Total number of leads converted into students",
		}),
		LoginAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "login_attempts_total",
				Help: "Total number of login attempts",
			},
			[]string{"status"}, // success, failed
		),
		ChangeRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "change_requests_total",
				Help: "Custom field change requests by outcome",
			},
			[]string{"status"}, // pending, approved, rejected
		),
		ExportsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exports_created_total",
				Help: "Total number of student exports generated",
			},
			[]string{"format"},
		),

		NotificationsSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_sent_total",
				Help: "Notification deliveries by channel and outcome",
			},
			[]string{"channel", "status"},
		),
		OutboundDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "outbound_request_duration_seconds",
				Help:    "Latency of calls to external services",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"service"},
		),

		CacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMisses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),

		JobRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "job_runs_total",
				Help: "Background job executions by outcome",
			},
			[]string{"job", "status"},
		),
	}
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // route pattern keeps label cardinality bounded

			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, status).Observe(time.Since(start).Seconds())
			m.HTTPResponseSize.WithLabelValues(req.Method, path).Observe(float64(c.Response().Size))

			return err
		}
	}
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failed"
}

// RecordLeadCreated counts a new lead by source.
func (m *Metrics) RecordLeadCreated(source string) {
	if m == nil {
		return
	}
	m.LeadsCreated.WithLabelValues(source).Inc()
}

// RecordLeadConverted counts a lead turned into a student.
func (m *Metrics) RecordLeadConverted() {
	if m == nil {
		return
	}
	m.LeadsConverted.Inc()
}

// RecordLoginAttempt increments login attempts counter
func (m *Metrics) RecordLoginAttempt(success bool) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome(success)).Inc()
}

// RecordChangeRequest counts a change request entering status.
func (m *Metrics) RecordChangeRequest(status string) {
	if m == nil {
		return
	}
	m.ChangeRequests.WithLabelValues(status).Inc()
}

// RecordExport counts a generated export.
func (m *Metrics) RecordExport(format string) {
	if m == nil {
		return
	}
	m.ExportsCreated.WithLabelValues(format).Inc()
}

// RecordNotification counts one delivery attempt on a channel.
func (m *Metrics) RecordNotification(channel string, success bool) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(channel, outcome(success)).Inc()
}

// ObserveOutbound records the latency of a call to an external service.
func (m *Metrics) ObserveOutbound(service string, d time.Duration) {
	if m == nil {
		return
	}
	m.OutboundDuration.WithLabelValues(service).Observe(d.Seconds())
}

// RecordCache counts a cache lookup.
func (m *Metrics) RecordCache(cacheType string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(cacheType).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordJobRun counts a background job execution.
func (m *Metrics) RecordJobRun(job string, success bool) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, outcome(success)).Inc()
}
