package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP, cache and ledger activity.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	paymentsTotal      *prometheus.CounterVec
	paymentAmount      *prometheus.CounterVec
	waiversTotal       *prometheus.CounterVec
	provisionedTotal   *prometheus.CounterVec
	conflictsTotal     *prometheus.CounterVec
	overdueSweepMarked prometheus.Counter
	eventsDropped      prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
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

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	paymentsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transactions_total",
		Help: "Journal rows written by kind and payment method",
	}, []string{"kind", "method"})

	paymentAmount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_payment_amount_total",
		Help: "Sum of positive payment amounts by payment method",
	}, []string{"method"})

	waiversTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_waivers_total",
		Help: "Waivers granted or revoked by type",
	}, []string{"action", "type"})

	provisionedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_entries_provisioned_total",
		Help: "Ledger entries provisioned from enrollment events",
	}, []string{"outcome"})

	conflictsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_concurrency_conflicts_total",
		Help: "Concurrent modification conflicts by operation",
	}, []string{"operation"})

	overdueSweepMarked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_overdue_sweep_updates_total",
		Help: "Entries whose late fee or status changed during sweeps",
	})

	eventsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrollment_events_dropped_total",
		Help: "Enrollment events abandoned after exhausting retries",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		paymentsTotal, paymentAmount, waiversTotal, provisionedTotal, conflictsTotal, overdueSweepMarked, eventsDropped, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		paymentsTotal:      paymentsTotal,
		paymentAmount:      paymentAmount,
		waiversTotal:       waiversTotal,
		provisionedTotal:   provisionedTotal,
		conflictsTotal:     conflictsTotal,
		overdueSweepMarked: overdueSweepMarked,
		eventsDropped:      eventsDropped,
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

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordTransaction counts a journal row. Only positive amounts feed the amount counter.
func (m *MetricsService) RecordTransaction(kind, method string, amount float64) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(kind, method).Inc()
	if amount > 0 {
		m.paymentAmount.WithLabelValues(method).Add(amount)
	}
}

// RecordWaiver counts a waiver grant or revocation.
func (m *MetricsService) RecordWaiver(action, waiverType string) {
	if m == nil {
		return
	}
	m.waiversTotal.WithLabelValues(action, waiverType).Inc()
}

// RecordProvisioned counts provisioning outcomes (created, existing, failed).
func (m *MetricsService) RecordProvisioned(outcome string) {
	if m == nil {
		return
	}
	m.provisionedTotal.WithLabelValues(outcome).Inc()
}

// RecordConflict counts a concurrency conflict for the operation.
func (m *MetricsService) RecordConflict(operation string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(operation).Inc()
}

// RecordSweepUpdates adds the number of entries changed by an overdue sweep.
func (m *MetricsService) RecordSweepUpdates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.overdueSweepMarked.Add(float64(n))
}

// RecordEventDropped counts an enrollment event abandoned by the bus.
func (m *MetricsService) RecordEventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}
