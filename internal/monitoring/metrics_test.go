package monitoring

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveComparison(t *testing.T) {
	m := NewMetrics()

	m.ObserveComparison(ComparisonObservation{
		CacheHit:         false,
		Diffs:            5,
		Improved:         2,
		Worse:            1,
		Same:             1,
		Unknown:          1,
		PerformanceScore: 0.2,
		RevenueRisk:      "low",
	})
	m.ObserveComparison(ComparisonObservation{CacheHit: true, Diffs: 5, Improved: 2})

	if got := testutil.ToFloat64(m.ComparisonsTotal.WithLabelValues("miss")); got != 1 {
		t.Errorf("Expected 1 cache-miss comparison, got %v", got)
	}
	if got := testutil.ToFloat64(m.ComparisonsTotal.WithLabelValues("hit")); got != 1 {
		t.Errorf("Expected 1 cache-hit comparison, got %v", got)
	}
	if got := testutil.ToFloat64(m.DiffTrends.WithLabelValues("improved")); got != 4 {
		t.Errorf("Expected 4 improved diffs, got %v", got)
	}
	if got := testutil.ToFloat64(m.RevenueRisk.WithLabelValues("low")); got != 1 {
		t.Errorf("Expected 1 low-risk comparison, got %v", got)
	}
}

func TestMetrics_HistoryAndCache(t *testing.T) {
	m := NewMetrics()

	m.ObserveHistoryOperation("save", time.Millisecond, nil)
	m.ObserveHistoryOperation("save", time.Millisecond, errors.New("disk full"))
	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)
	m.ObserveCacheLookup(false)
	m.ObserveValidationFailure("baseline")

	if got := testutil.ToFloat64(m.HistoryOperations.WithLabelValues("save", "error")); got != 1 {
		t.Errorf("Expected 1 failed save, got %v", got)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")); got != 2 {
		t.Errorf("Expected 2 cache misses, got %v", got)
	}
	if got := testutil.ToFloat64(m.ValidationFailures.WithLabelValues("baseline")); got != 1 {
		t.Errorf("Expected 1 baseline validation failure, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveHTTPRequest("GET", "/health", 200, 3*time.Millisecond, 120)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	for _, want := range []string{
		`perf_insights_http_requests_total{method="GET",route="/health",status="200"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected exposition to contain %q", want)
		}
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.ObserveCacheLookup(true)

	if got := testutil.ToFloat64(b.CacheLookups.WithLabelValues("hit")); got != 0 {
		t.Errorf("Expected registries to be independent, got %v", got)
	}
}
