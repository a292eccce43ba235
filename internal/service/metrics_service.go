package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	dayOrderLookups  *prometheus.HistogramVec
	dayOrderFallback *prometheus.CounterVec
	absenceOutcomes  *prometheus.CounterVec
	transferRows     prometheus.Counter
	attendanceMarks  *prometheus.CounterVec
	emailDeliveries  *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dayOrderLookups := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "day_order_lookup_seconds",
		Help:    "Latency of day-order lookups by source and outcome",
		Buckets: prometheus.DefBuckets,
	}, []string{"source", "outcome"})

	dayOrderFallback := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "day_order_fallback_total",
		Help: "Resolutions that fell back to the default day order",
	}, []string{"department"})

	absenceOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "absence_submissions_total",
		Help: "Absence submissions by outcome",
	}, []string{"outcome"})

	transferRows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "class_transfer_rows_total",
		Help: "Class transfer rows written",
	})

	attendanceMarks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_marks_total",
		Help: "Attendance marks by status",
	}, []string{"status"})

	emailDeliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_deliveries_total",
		Help: "Outbound email attempts by result",
	}, []string{"kind", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		dayOrderLookups, dayOrderFallback, absenceOutcomes, transferRows, attendanceMarks, emailDeliveries, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		dayOrderLookups:  dayOrderLookups,
		dayOrderFallback: dayOrderFallback,
		absenceOutcomes:  absenceOutcomes,
		transferRows:     transferRows,
		attendanceMarks:  attendanceMarks,
		emailDeliveries:  emailDeliveries,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDayOrderLookup records a lookup against the configured day-order source.
func (m *MetricsService) ObserveDayOrderLookup(source string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.dayOrderLookups.WithLabelValues(source, outcome).Observe(duration.Seconds())
}

// IncDayOrderFallback counts a fallback resolution.
func (m *MetricsService) IncDayOrderFallback(department string) {
	if m == nil {
		return
	}
	m.dayOrderFallback.WithLabelValues(department).Inc()
}

// RecordAbsenceOutcome counts an absence submission by outcome (created, partial, failed, rejected).
func (m *MetricsService) RecordAbsenceOutcome(outcome string, transfers int) {
	if m == nil {
		return
	}
	m.absenceOutcomes.WithLabelValues(outcome).Inc()
	if transfers > 0 {
		m.transferRows.Add(float64(transfers))
	}
}

// RecordAttendanceMark counts a student mark.
func (m *MetricsService) RecordAttendanceMark(status string) {
	if m == nil {
		return
	}
	m.attendanceMarks.WithLabelValues(status).Inc()
}

// RecordEmail counts an email delivery attempt.
func (m *MetricsService) RecordEmail(kind string, delivered bool) {
	if m == nil {
		return
	}
	result := "sent"
	if !delivered {
		result = "failed"
	}
	m.emailDeliveries.WithLabelValues(kind, result).Inc()
}
