package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/school-fees-api/internal/models"
)

const metricsNamespace = "fees"

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// runningAverage keeps a lock-free count and nanosecond sum.
type runningAverage struct {
	count uint64
	total uint64
}

func (r *runningAverage) add(d time.Duration) {
	atomic.AddUint64(&r.count, 1)
	atomic.AddUint64(&r.total, uint64(d.Nanoseconds()))
}

func (r *runningAverage) load() (uint64, float64) {
	count := atomic.LoadUint64(&r.count)
	if count == 0 {
		return 0, 0
	}
	return count, float64(atomic.LoadUint64(&r.total)) / float64(count) / float64(time.Millisecond)
}

// MetricsService owns the Prometheus registry for the fees API and mirrors
// the headline numbers into a snapshot served by the readiness probe.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpLatency   *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	cacheLatency  *prometheus.HistogramVec
	cacheHitRatio prometheus.Gauge
	autoAssign    *prometheus.HistogramVec
	assignments   prometheus.Counter
	payments      prometheus.Counter
	exports       *prometheus.CounterVec

	requests    runningAverage
	autoAssigns runningAverage
	cacheHits   uint64
	cacheMisses uint64
	assigned    uint64
	paid        uint64
	exportsOK   uint64
	exportsFail uint64
}

// NewMetricsService builds and registers every collector on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of API requests by route",
			Buckets:   latencyBuckets,
		}, []string{"method", "route", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by route and status",
		}, []string{"method", "route", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "List cache lookups by result",
		}, []string{"result"}),
		cacheLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "operation_seconds",
			Help:      "Latency of list cache reads and writes",
			Buckets:   latencyBuckets,
		}, []string{"op"}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "hit_ratio",
			Help:      "Share of list cache lookups served from cache",
		}),
		autoAssign: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fee_auto_assign_duration_seconds",
			Help:    "Duration of auto-assign runs by mode",
			Buckets: latencyBuckets,
		}, []string{"mode"}),
		assignments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fee_assignments_created_total",
			Help: "Student fee assignments inserted by auto-assign commits",
		}),
		payments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fee_payments_recorded_total",
			Help: "Installment payments recorded against assignments",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fee_exports_total",
			Help: "Fee export jobs by terminal status",
		}, []string{"format", "status"}),
	}

	m.registry.MustRegister(
		m.httpLatency,
		m.httpRequests,
		m.cacheLookups,
		m.cacheLatency,
		m.cacheHitRatio,
		m.autoAssign,
		m.assignments,
		m.payments,
		m.exports,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "goroutines",
			Help:      "Goroutines currently running",
		}, func() float64 { return float64(runtime.NumGoroutine()) }),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one completed request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpLatency.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.httpRequests.WithLabelValues(method, route, code).Inc()
	m.requests.add(duration)
}

// RecordCacheOperation records a list cache read.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("get").Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHits, 1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		atomic.AddUint64(&m.cacheMisses, 1)
	}
	m.cacheHitRatio.Set(m.hitRatio())
}

// ObserveCacheWrite records a list cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("set").Observe(duration.Seconds())
}

// ObserveAutoAssign records an auto-assign run that began at started.
func (m *MetricsService) ObserveAutoAssign(dryRun bool, started time.Time) {
	if m == nil {
		return
	}
	mode := "commit"
	if dryRun {
		mode = "preview"
	}
	elapsed := time.Since(started)
	m.autoAssign.WithLabelValues(mode).Observe(elapsed.Seconds())
	m.autoAssigns.add(elapsed)
}

// RecordAssignments counts assignments created by a commit.
func (m *MetricsService) RecordAssignments(created int64) {
	if m == nil || created <= 0 {
		return
	}
	m.assignments.Add(float64(created))
	atomic.AddUint64(&m.assigned, uint64(created))
}

// RecordPayment counts one recorded payment.
func (m *MetricsService) RecordPayment() {
	if m == nil {
		return
	}
	m.payments.Inc()
	atomic.AddUint64(&m.paid, 1)
}

// RecordExport counts an export job reaching a terminal status.
func (m *MetricsService) RecordExport(format models.ExportFormat, status models.ExportStatus) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(string(format), string(status)).Inc()
	switch status {
	case models.ExportFinished:
		atomic.AddUint64(&m.exportsOK, 1)
	case models.ExportFailed:
		atomic.AddUint64(&m.exportsFail, 1)
	}
}

func (m *MetricsService) hitRatio() float64 {
	hits := atomic.LoadUint64(&m.cacheHits)
	total := hits + atomic.LoadUint64(&m.cacheMisses)
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Snapshot summarises the counters for the readiness endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	requests, avgRequest := m.requests.load()
	runs, avgRun := m.autoAssigns.load()
	return models.SystemMetrics{
		CacheHitRatio:            m.hitRatio(),
		CacheHits:                atomic.LoadUint64(&m.cacheHits),
		CacheMisses:              atomic.LoadUint64(&m.cacheMisses),
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequest,
		AutoAssignRuns:           runs,
		AverageAutoAssignMs:      avgRun,
		AssignmentsCreated:       atomic.LoadUint64(&m.assigned),
		PaymentsRecorded:         atomic.LoadUint64(&m.paid),
		ExportsFinished:          atomic.LoadUint64(&m.exportsOK),
		ExportsFailed:            atomic.LoadUint64(&m.exportsFail),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
