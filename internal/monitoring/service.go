package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dil-najha/Performance-Insights-sub001/internal/cache"
	"github.com/dil-najha/Performance-Insights-sub001/internal/logging"
	"github.com/dil-najha/Performance-Insights-sub001/internal/storage"
)

// MonitoringService bundles health checks and Prometheus metrics.
type MonitoringService struct {
	Health  *HealthManager
	Metrics *Metrics
}

// NewMonitoringService registers the default checkers. history and resultCache
// may be nil when the feature is disabled.
func NewMonitoringService(version string, history storage.HistoryStore, resultCache cache.Cache) *MonitoringService {
	metrics := NewMetrics()
	health := NewHealthManager(version)

	if history != nil {
		health.RegisterChecker(NewHistoryHealthChecker(history, metrics))
	}
	if resultCache != nil {
		health.RegisterChecker(NewCacheHealthChecker(resultCache))
	}
	health.RegisterChecker(NewMemoryHealthChecker(1024))
	health.RegisterChecker(NewGoroutineHealthChecker(10000))

	return &MonitoringService{Health: health, Metrics: metrics}
}

// HealthHandler answers 200 when healthy or degraded and 503 when unhealthy.
func (ms *MonitoringService) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		health := ms.Health.CheckHealth(ctx)

		statusCode := http.StatusOK
		if health.Status == HealthStatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(health)
	}
}

func (ms *MonitoringService) MetricsHandler() http.Handler {
	return ms.Metrics.Handler()
}

// Middleware records request metrics labelled by the matched route template
// rather than the raw path, which keeps history IDs out of label values.
func (ms *MonitoringService) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := logging.NewResponseRecorder(w)

		next.ServeHTTP(wrapped, r)

		ms.Metrics.ObserveHTTPRequest(r.Method, routeLabel(r), wrapped.StatusCode(), time.Since(start), wrapped.Size())
	})
}

func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}
