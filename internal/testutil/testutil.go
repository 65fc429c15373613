package testutil

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dil-najha/Performance-Insights-sub001/internal/config"
	"github.com/dil-najha/Performance-Insights-sub001/internal/logging"
	"github.com/dil-najha/Performance-Insights-sub001/internal/storage"
)

// TestHistoryStore creates an in-memory history store closed at test end.
func TestHistoryStore(t *testing.T) *storage.BadgerStore {
	t.Helper()

	store, err := storage.NewBadgerStore(config.HistoryConfig{Enabled: true, InMemory: true}, TestLogger())
	if err != nil {
		t.Fatalf("Failed to create test history store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestConfig returns defaults with in-memory history and an OS-chosen port.
func TestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.History.InMemory = true
	cfg.History.ValueLogGC = false
	cfg.Server.Port = 0
	cfg.Server.GRPCPort = 0
	cfg.Logging = logging.TestLoggingConfig()
	return cfg
}

// TestLogger returns a logger that only reports errors.
func TestLogger() *logging.Logger {
	cfg := logging.TestLoggingConfig()
	return logging.NewLoggerWithWriter(&cfg, &strings.Builder{})
}

// ReportJSON renders a report in the plain {name, metrics} export shape.
func ReportJSON(name string, metrics map[string]float64) json.RawMessage {
	data, _ := json.Marshal(map[string]interface{}{"name": name, "metrics": metrics})
	return data
}

// K6Summary renders a nested k6-style summary where each metric keeps its
// statistics under "values".
func K6Summary(avgMs, p95Ms, failedRate, reqRate float64) json.RawMessage {
	data, _ := json.Marshal(map[string]interface{}{
		"metrics": map[string]interface{}{
			"http_req_duration": map[string]interface{}{
				"type":     "trend",
				"contains": "time",
				"values":   map[string]interface{}{"avg": avgMs, "p(95)": p95Ms},
			},
			"http_req_failed": map[string]interface{}{
				"type":   "rate",
				"values": map[string]interface{}{"rate": failedRate},
			},
			"http_reqs": map[string]interface{}{
				"type":   "counter",
				"values": map[string]interface{}{"rate": reqRate},
			},
		},
	})
	return data
}

// WebVitals renders a page-load report with the core web vitals.
func WebVitals(name string, lcp, fcp, cls, ttfb float64) json.RawMessage {
	return ReportJSON(name, map[string]float64{
		"lcp":  lcp,
		"fcp":  fcp,
		"cls":  cls,
		"ttfb": ttfb,
	})
}

// MockHTTPRequest builds a request with a JSON body when body is non-empty.
func MockHTTPRequest(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func AssertHTTPStatus(t *testing.T, recorder *httptest.ResponseRecorder, expectedStatus int) {
	t.Helper()
	if recorder.Code != expectedStatus {
		t.Errorf("Expected HTTP status %d, got %d: %s", expectedStatus, recorder.Code, recorder.Body.String())
	}
}

func AssertContains(t *testing.T, str, substr string) {
	t.Helper()
	if !strings.Contains(str, substr) {
		t.Errorf("Expected %q to contain %q", str, substr)
	}
}

// WithTimeout fails the test when fn does not return within timeout.
func WithTimeout(t *testing.T, timeout time.Duration, fn func()) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatalf("Test timed out after %v", timeout)
	}
}

// TestDataGenerator produces reproducible random metric sets.
type TestDataGenerator struct {
	rand *rand.Rand
}

func NewTestDataGenerator(seed int64) *TestDataGenerator {
	return &TestDataGenerator{rand: rand.New(rand.NewSource(seed))}
}

var metricFamilies = []string{
	"responseTimeAvg", "responseTimeP95", "throughput", "errorRate",
	"cpuUsage", "memoryUsage", "lcp", "fcp", "ttfb", "cls",
}

// Metrics returns n metrics: the well-known families first, then nested
// custom keys.
func (g *TestDataGenerator) Metrics(n int) map[string]float64 {
	metrics := make(map[string]float64, n)
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("custom.group%d.metric%d", i%7, i)
		if i < len(metricFamilies) {
			key = metricFamilies[i]
		}
		metrics[key] = float64(g.rand.Intn(10000)) / 10
	}
	return metrics
}

// Drift returns a copy of metrics with every value scaled by a random factor
// in [1-spread, 1+spread].
func (g *TestDataGenerator) Drift(metrics map[string]float64, spread float64) map[string]float64 {
	out := make(map[string]float64, len(metrics))
	for k, v := range metrics {
		factor := 1 + (g.rand.Float64()*2-1)*spread
		out[k] = v * factor
	}
	return out
}
