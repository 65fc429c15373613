package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "perf_insights"

// Metrics holds the Prometheus collectors of the service. Every instance
// owns its registry, so tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	ComparisonsTotal   *prometheus.CounterVec
	ComparisonDuration *prometheus.HistogramVec
	ComparedMetrics    prometheus.Histogram
	DiffTrends         *prometheus.CounterVec
	PerformanceScore   prometheus.Histogram
	RevenueRisk        *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec

	CacheLookups *prometheus.CounterVec

	HistoryOperations *prometheus.CounterVec
	HistoryDuration   *prometheus.HistogramVec
	HistoryRecords    prometheus.Gauge

	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	HTTPResponseSize prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ComparisonsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "comparisons_total",
			Help:      "Completed comparisons by cache outcome",
		}, []string{"cache"}),
		ComparisonDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "comparison_stage_duration_seconds",
			Help:      "Time spent in each comparison stage",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
		}, []string{"stage"}),
		ComparedMetrics: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "compared_metrics",
			Help:      "Number of metric diffs per comparison",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		DiffTrends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "diff_trends_total",
			Help:      "Metric diffs by trend",
		}, []string{"trend"}),
		PerformanceScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "performance_score",
			Help:      "Composite performance score of each comparison",
			Buckets:   prometheus.LinearBuckets(-1, 0.25, 9),
		}),
		RevenueRisk: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "revenue_risk_total",
			Help:      "Comparisons by revenue risk level",
		}, []string{"level"}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "validation_failures_total",
			Help:      "Rejected payloads by side",
		}, []string{"side"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Result cache lookups by outcome",
		}, []string{"result"}),

		HistoryOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "history",
			Name:      "operations_total",
			Help:      "History store operations by operation and status",
		}, []string{"operation", "status"}),
		HistoryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "history",
			Name:      "operation_duration_seconds",
			Help:      "History store operation latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}, []string{"operation"}),
		HistoryRecords: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "history",
			Name:      "records",
			Help:      "Records currently held by the history store",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HTTPResponseSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response body size",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}),
	}
}

// Registry exposes the underlying registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ComparisonObservation is everything recorded about one comparison.
type ComparisonObservation struct {
	CacheHit         bool
	Diffs            int
	Improved         int
	Worse            int
	Same             int
	Unknown          int
	PerformanceScore float64
	RevenueRisk      string
}

func (m *Metrics) ObserveComparison(o ComparisonObservation) {
	cacheLabel := "miss"
	if o.CacheHit {
		cacheLabel = "hit"
	}
	m.ComparisonsTotal.WithLabelValues(cacheLabel).Inc()
	m.ComparedMetrics.Observe(float64(o.Diffs))
	m.DiffTrends.WithLabelValues("improved").Add(float64(o.Improved))
	m.DiffTrends.WithLabelValues("worse").Add(float64(o.Worse))
	m.DiffTrends.WithLabelValues("same").Add(float64(o.Same))
	m.DiffTrends.WithLabelValues("unknown").Add(float64(o.Unknown))
	m.PerformanceScore.Observe(o.PerformanceScore)
	if o.RevenueRisk != "" {
		m.RevenueRisk.WithLabelValues(o.RevenueRisk).Inc()
	}
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.ComparisonDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveValidationFailure(side string) {
	m.ValidationFailures.WithLabelValues(side).Inc()
}

func (m *Metrics) ObserveCacheLookup(hit bool) {
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) ObserveHistoryOperation(operation string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.HistoryOperations.WithLabelValues(operation, status).Inc()
	m.HistoryDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) ObserveHTTPRequest(method, route string, statusCode int, d time.Duration, size int64) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
	if size > 0 {
		m.HTTPResponseSize.Observe(float64(size))
	}
}
