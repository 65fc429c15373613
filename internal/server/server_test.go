package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dil-najha/Performance-Insights-sub001/internal/testutil"
)

func TestServer_ServeAndShutdown(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.Server.GRPCPort = 1 // enables gRPC; the test supplies the listener

	srv, err := NewServer(context.Background(), cfg, "test")
	require.NoError(t, err)

	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, httpLis, grpcLis) }()

	base := fmt.Sprintf("http://%s", httpLis.Addr())
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	body, _ := json.Marshal(map[string]interface{}{
		"baseline": testutil.ReportJSON("v1", map[string]float64{"lcp": 2500}),
		"current":  testutil.ReportJSON("v2", map[string]float64{"lcp": 2000}),
		"save":     true,
	})
	resp, err := http.Post(base+"/api/v1/compare", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	history, err := srv.Analyzer().History(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	conn, err := grpc.NewClient(grpcLis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	hc, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hc.Status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}

	assert.NoError(t, srv.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestServer_WithoutGRPC(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.History.Enabled = false
	cfg.Cache.Enabled = false

	srv, err := NewServer(context.Background(), cfg, "test")
	require.NoError(t, err)
	assert.Nil(t, srv.grpcServer)
	assert.False(t, srv.Analyzer().HistoryEnabled())
	assert.Nil(t, srv.Analyzer().CacheStats())

	require.NoError(t, srv.Shutdown(context.Background()))
}

func TestNewServer_BadTracingExporter(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.ExporterType = "jaeger"

	_, err := NewServer(context.Background(), cfg, "test")
	assert.Error(t, err)
}
