package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dil-najha/Performance-Insights-sub001/internal/analysis"
	"github.com/dil-najha/Performance-Insights-sub001/internal/api"
	"github.com/dil-najha/Performance-Insights-sub001/internal/cache"
	"github.com/dil-najha/Performance-Insights-sub001/internal/config"
	"github.com/dil-najha/Performance-Insights-sub001/internal/logging"
	"github.com/dil-najha/Performance-Insights-sub001/internal/monitoring"
	"github.com/dil-najha/Performance-Insights-sub001/internal/storage"
	"github.com/dil-najha/Performance-Insights-sub001/internal/testutil"
)

func fastConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 5 * time.Millisecond
	cfg.Retry.Jitter = false
	return cfg
}

// setupTestService starts the real HTTP API over an in-memory history store.
func setupTestService(t *testing.T) *Client {
	t.Helper()
	return setupTestServiceWith(t, testutil.TestHistoryStore(t), fastConfig)
}

// setupTestServiceWith starts the real HTTP API over history, which may be
// nil to run without a history store.
func setupTestServiceWith(t *testing.T, history storage.HistoryStore, configure func(string) Config) *Client {
	t.Helper()

	lru := cache.NewLRUCache(50)
	t.Cleanup(func() { lru.Close() })
	mon := monitoring.NewMonitoringService("test", history, lru)

	handler := api.NewRESTHandler(api.Options{
		Analyzer: analysis.New(analysis.Options{
			Config:  config.DefaultConfig().Analysis,
			Cache:   lru,
			History: history,
			Logger:  testutil.TestLogger(),
			Metrics: mon.Metrics,
		}),
		Logger:     testutil.TestLogger(),
		Monitoring: mon,
		Version:    "test",
	})

	srv := httptest.NewServer(api.SetupRoutes(handler))
	t.Cleanup(srv.Close)

	c, err := New(configure(srv.URL))
	require.NoError(t, err)
	return c
}

func compareRequest() CompareRequest {
	return CompareRequest{
		Baseline: testutil.ReportJSON("v1", map[string]float64{"responseTimeAvg": 200, "errorRate": 1}),
		Current:  testutil.ReportJSON("v2", map[string]float64{"responseTimeAvg": 150, "errorRate": 3}),
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"valid", "http://localhost:8080", false},
		{"trailing slash", "http://localhost:8080/", false},
		{"empty", "", true},
		{"bad scheme", "ftp://localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.BaseURL = tt.baseURL
			_, err := New(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%q) error = %v, wantErr %v", tt.baseURL, err, tt.wantErr)
			}
		})
	}
}

func TestClient_CompareAndHistory(t *testing.T) {
	c := setupTestService(t)
	ctx := context.Background()

	resp, err := c.Compare(ctx, compareRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Summary.Improved)
	assert.Equal(t, 1, resp.Summary.Worse)
	assert.Len(t, resp.Diffs, 2)
	assert.Empty(t, resp.ID)

	req := compareRequest()
	req.Save = true
	saved, err := c.Compare(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	list, err := c.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)

	record, err := c.Record(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1", record.BaselineName)
	assert.Len(t, record.Diffs, 2)

	require.NoError(t, c.DeleteRecord(ctx, saved.ID))
	_, err = c.Record(ctx, saved.ID)
	assert.True(t, IsNotFound(err), "expected not found, got %v", err)
}

func TestClient_CompareInvalid(t *testing.T) {
	c := setupTestService(t)

	req := compareRequest()
	req.Baseline = json.RawMessage(`[1,2]`)

	_, err := c.Compare(context.Background(), req)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.NotEmpty(t, apiErr.Details)
}

func TestClient_Export(t *testing.T) {
	c := setupTestService(t)

	data, err := c.Export(context.Background(), compareRequest(), "csv")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Metric,Baseline,Current,Change,Percentage Change,Trend")

	_, err = c.Export(context.Background(), compareRequest(), "pdf")
	assert.Error(t, err)
}

func TestClient_Normalize(t *testing.T) {
	c := setupTestService(t)
	ctx := context.Background()

	res, err := c.Normalize(ctx, testutil.WebVitals("home", 2400, 1200, 0.1, 300), "")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "home", res.Report.Name)

	res, err = c.Normalize(ctx, json.RawMessage(`{"name":"nothing"}`), "")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Errors)
}

func TestClient_Health(t *testing.T) {
	c := setupTestService(t)

	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy())
	assert.Equal(t, "test", status.Version)
}

func TestClient_PropagatesCorrelationID(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get(logging.CorrelationIDHeader))
		w.Write([]byte(`{"records":[]}`))
	}))
	defer srv.Close()

	c, err := New(fastConfig(srv.URL))
	require.NoError(t, err)

	ctx := logging.CreateContextWithIDs(context.Background(), "cor_client", "req_client")
	_, err = c.History(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "cor_client", got.Load())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"records":[{"id":"a"}]}`))
	}))
	defer srv.Close()

	c, err := New(fastConfig(srv.URL))
	require.NoError(t, err)

	list, err := c.History(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_NoRetryOnClientErrorOrSave(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path == "/api/v1/history/x" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Not Found","code":404,"message":"record not found"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(fastConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.Record(context.Background(), "x")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	req := compareRequest()
	req.Save = true
	_, err = c.Compare(context.Background(), req)
	assert.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "saving compare must not be retried")
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := fastConfig(srv.URL)
	cfg.Retry.MaxRetries = 0
	cfg.FailureThreshold = 2
	cfg.RecoveryTimeout = time.Hour
	c, err := New(cfg)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := c.History(context.Background(), 0)
		assert.Error(t, err)
	}

	_, err = c.History(context.Background(), 0)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, CircuitBreakerOpen, c.BreakerStats().State)
}

func TestClient_HistoryDisabledKeepsBreakerClosed(t *testing.T) {
	c := setupTestServiceWith(t, nil, func(baseURL string) Config {
		cfg := fastConfig(baseURL)
		cfg.FailureThreshold = 2
		cfg.RecoveryTimeout = time.Hour
		return cfg
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.History(ctx, 10)
		require.Error(t, err)
		assert.True(t, IsHistoryDisabled(err), "expected history disabled, got %v", err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}

	stats := c.BreakerStats()
	assert.Equal(t, CircuitBreakerClosed, stats.State)
	assert.Equal(t, 0, stats.Failures)

	resp, err := c.Compare(ctx, compareRequest())
	require.NoError(t, err)
	assert.Len(t, resp.Diffs, 2)
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := fastConfig(srv.URL)
	cfg.Retry.BaseDelay = time.Hour
	cfg.Retry.MaxDelay = time.Hour
	c, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.History(ctx, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
