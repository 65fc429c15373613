package server

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dil-najha/Performance-Insights-sub001/internal/analysis"
	"github.com/dil-najha/Performance-Insights-sub001/internal/config"
	"github.com/dil-najha/Performance-Insights-sub001/internal/storage"
	"github.com/dil-najha/Performance-Insights-sub001/internal/testutil"
	"github.com/dil-najha/Performance-Insights-sub001/pkg/insights"
)

const bufSize = 1024 * 1024

func setupTestGRPCServer(t *testing.T, history storage.HistoryStore) *grpc.ClientConn {
	t.Helper()

	analyzer := analysis.New(analysis.Options{
		Config:  config.DefaultConfig().Analysis,
		History: history,
		Logger:  testutil.TestLogger(),
	})
	server := NewGRPCServer(analyzer, testutil.TestLogger(), nil)

	lis := bufconn.Listen(bufSize)
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func compareFields() map[string]interface{} {
	return map[string]interface{}{
		"baseline": map[string]interface{}{
			"name":    "v1",
			"metrics": map[string]interface{}{"responseTimeAvg": 200.0, "errorRate": 1.0, "throughput": 100.0},
		},
		"current": map[string]interface{}{
			"name":    "v2",
			"metrics": map[string]interface{}{"responseTimeAvg": 150.0, "errorRate": 3.0, "throughput": 101.0},
		},
	}
}

func TestGRPCServer_Compare(t *testing.T) {
	client := NewComparisonClient(setupTestGRPCServer(t, nil))

	var header metadata.MD
	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-correlation-id", "cor_grpc")
	resp, err := client.Compare(ctx, mustStruct(t, compareFields()), grpc.Header(&header))
	require.NoError(t, err)

	out := resp.AsMap()
	summary, ok := out["summary"].(map[string]interface{})
	require.True(t, ok, "summary missing: %v", out)
	assert.Equal(t, 1.0, summary["improved"])
	assert.Equal(t, 1.0, summary["worse"])
	assert.Equal(t, 1.0, summary["same"])
	assert.Len(t, out["diffs"], 3)
	assert.Equal(t, []string{"cor_grpc"}, header.Get("x-correlation-id"))
}

func TestGRPCServer_CompareMaxMetrics(t *testing.T) {
	client := NewComparisonClient(setupTestGRPCServer(t, nil))

	fields := compareFields()
	fields["max_metrics"] = 1.0
	resp, err := client.Compare(context.Background(), mustStruct(t, fields))
	require.NoError(t, err)

	out := resp.AsMap()
	assert.Len(t, out["diffs"], 1)
	assert.Equal(t, true, out["truncated"])
	assert.Equal(t, 3.0, out["totalDiffs"])
}

func TestGRPCServer_CompareErrors(t *testing.T) {
	client := NewComparisonClient(setupTestGRPCServer(t, nil))

	missing := compareFields()
	delete(missing, "current")

	notObject := compareFields()
	notObject["baseline"] = "a string"

	negative := compareFields()
	negative["max_metrics"] = -2.0

	save := compareFields()
	save["save"] = true

	tests := []struct {
		name     string
		fields   map[string]interface{}
		wantCode codes.Code
	}{
		{"missing current", missing, codes.InvalidArgument},
		{"baseline not an object", notObject, codes.InvalidArgument},
		{"negative max", negative, codes.InvalidArgument},
		{"save without history", save, codes.FailedPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Compare(context.Background(), mustStruct(t, tt.fields))
			assert.Equal(t, tt.wantCode, status.Code(err), "error: %v", err)
		})
	}
}

func TestGRPCServer_CompareSaves(t *testing.T) {
	history := testutil.TestHistoryStore(t)
	client := NewComparisonClient(setupTestGRPCServer(t, history))

	fields := compareFields()
	fields["save"] = true
	resp, err := client.Compare(context.Background(), mustStruct(t, fields))
	require.NoError(t, err)

	id, _ := resp.AsMap()["id"].(string)
	require.NotEmpty(t, id)

	record, err := history.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "v1", record.BaselineName)
}

func TestGRPCServer_Normalize(t *testing.T) {
	client := NewComparisonClient(setupTestGRPCServer(t, nil))

	resp, err := client.Normalize(context.Background(), mustStruct(t, map[string]interface{}{
		"payload": map[string]interface{}{"lcp": 2100.0, "cls": "0.05"},
		"name":    "homepage",
	}))
	require.NoError(t, err)

	out := resp.AsMap()
	assert.Equal(t, true, out["valid"])
	report := out["report"].(map[string]interface{})
	assert.Equal(t, "homepage", report["name"])

	_, err = client.Normalize(context.Background(), mustStruct(t, map[string]interface{}{
		"payload": map[string]interface{}{"note": "nothing numeric"},
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Normalize(context.Background(), mustStruct(t, map[string]interface{}{}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCServer_Health(t *testing.T) {
	conn := setupTestGRPCServer(t, nil)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{
		Service: ComparisonServiceName,
	})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestSplitMethod(t *testing.T) {
	tests := []struct {
		full, service, method string
	}{
		{"/insights.v1.Comparison/Compare", "insights.v1.Comparison", "Compare"},
		{"/grpc.health.v1.Health/Check", "grpc.health.v1.Health", "Check"},
		{"Compare", "unknown", "Compare"},
	}

	for _, tt := range tests {
		service, method := splitMethod(tt.full)
		if service != tt.service || method != tt.method {
			t.Errorf("splitMethod(%q) = %q, %q; want %q, %q", tt.full, service, method, tt.service, tt.method)
		}
	}
}

func TestGRPCError(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{&insights.InvalidInputError{Source: "baseline"}, codes.InvalidArgument},
		{storage.ErrRecordNotFound, codes.NotFound},
		{analysis.ErrHistoryDisabled, codes.FailedPrecondition},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("disk on fire"), codes.Internal},
	}

	for _, tt := range tests {
		if got := status.Code(grpcError(tt.err)); got != tt.want {
			t.Errorf("grpcError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
