package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dil-najha/Performance-Insights-sub001/internal/analysis"
	"github.com/dil-najha/Performance-Insights-sub001/internal/logging"
	"github.com/dil-najha/Performance-Insights-sub001/internal/storage"
	"github.com/dil-najha/Performance-Insights-sub001/internal/tracing"
	"github.com/dil-najha/Performance-Insights-sub001/pkg/insights"
)

const (
	ComparisonServiceName = "insights.v1.Comparison"

	compareMethod   = "/" + ComparisonServiceName + "/Compare"
	normalizeMethod = "/" + ComparisonServiceName + "/Normalize"
)

// ComparisonServer is the gRPC surface of the analyzer. Messages are
// google.protobuf.Struct so clients need no generated stubs.
type ComparisonServer interface {
	Compare(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Normalize(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var ComparisonServiceDesc = grpc.ServiceDesc{
	ServiceName: ComparisonServiceName,
	HandlerType: (*ComparisonServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Compare", Handler: compareHandler},
		{MethodName: "Normalize", Handler: normalizeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "insights/v1/comparison.proto",
}

func compareHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ComparisonServer).Compare(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: compareMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ComparisonServer).Compare(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func normalizeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ComparisonServer).Normalize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: normalizeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ComparisonServer).Normalize(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ComparisonClient calls the Comparison service over any connection.
type ComparisonClient struct {
	cc grpc.ClientConnInterface
}

func NewComparisonClient(cc grpc.ClientConnInterface) *ComparisonClient {
	return &ComparisonClient{cc: cc}
}

func (c *ComparisonClient) Compare(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, compareMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ComparisonClient) Normalize(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, normalizeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GRPCServer serves the Comparison and health services.
type GRPCServer struct {
	analyzer *analysis.Analyzer
	logger   *logging.Logger
	tracing  *tracing.TracingService
	health   *health.Server
	server   *grpc.Server
}

func NewGRPCServer(analyzer *analysis.Analyzer, logger *logging.Logger, ts *tracing.TracingService) *GRPCServer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if ts == nil {
		ts = tracing.NewNoopTracingService()
	}

	s := &GRPCServer{
		analyzer: analyzer,
		logger:   logger,
		tracing:  ts,
		health:   health.NewServer(),
	}

	s.server = grpc.NewServer(grpc.ChainUnaryInterceptor(s.correlationInterceptor, s.loggingInterceptor))
	s.server.RegisterService(&ComparisonServiceDesc, s)
	healthpb.RegisterHealthServer(s.server, s.health)
	s.health.SetServingStatus(ComparisonServiceName, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return s
}

// Serve blocks until the listener fails or Stop is called.
func (s *GRPCServer) Serve(lis net.Listener) error {
	s.logger.Info("Starting gRPC server", "address", lis.Addr().String())
	return s.server.Serve(lis)
}

// Stop marks the services as not serving and drains in-flight calls.
func (s *GRPCServer) Stop() {
	s.logger.Info("Stopping gRPC server")
	s.health.Shutdown()
	s.server.GracefulStop()
}

// Compare expects {baseline, current, baseline_name?, current_name?,
// max_metrics?, save?, insights?, system_context?} and answers with the
// same JSON document the REST API returns.
func (s *GRPCServer) Compare(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.AsMap()

	req := analysis.Request{
		BaselineName: stringField(fields, "baseline_name"),
		CurrentName:  stringField(fields, "current_name"),
		Save:         boolField(fields, "save"),
	}

	var err error
	if req.Baseline, err = requiredJSON(fields, "baseline"); err != nil {
		return nil, err
	}
	if req.Current, err = requiredJSON(fields, "current"); err != nil {
		return nil, err
	}
	if v, ok := fields["max_metrics"].(float64); ok {
		if v < 0 {
			return nil, status.Error(codes.InvalidArgument, "max_metrics cannot be negative")
		}
		req.MaxMetrics = int(v)
	}
	req.Insights = optionalJSON(fields, "insights")
	req.SystemContext = optionalJSON(fields, "system_context")

	result, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(result)
}

// Normalize expects {payload, name?}. Rejected payloads return
// InvalidArgument listing every error.
func (s *GRPCServer) Normalize(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.AsMap()

	payload, err := requiredJSON(fields, "payload")
	if err != nil {
		return nil, err
	}

	res := s.analyzer.Normalize(ctx, payload, stringField(fields, "name"))
	if !res.Valid {
		return nil, status.Error(codes.InvalidArgument, strings.Join(res.Errors, "; "))
	}
	return toStruct(res)
}

func (s *GRPCServer) correlationInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	var correlationID string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(strings.ToLower(logging.CorrelationIDHeader)); len(values) > 0 {
			correlationID = logging.SanitizeCorrelationID(values[0])
		}
	}
	if correlationID == "" {
		correlationID = logging.GenerateCorrelationID()
	}
	grpc.SetHeader(ctx, metadata.Pairs(strings.ToLower(logging.CorrelationIDHeader), correlationID))

	ctx = logging.CreateContextWithIDs(ctx, correlationID, logging.GenerateRequestID())
	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	service, method := splitMethod(info.FullMethod)
	ctx, span := s.tracing.InstrumentGRPCRequest(ctx, service, method)
	defer span.End()

	start := time.Now()
	resp, err := handler(ctx, req)
	duration := time.Since(start)

	logger := s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"method":      info.FullMethod,
		"duration_ms": duration.Milliseconds(),
		"code":        status.Code(err).String(),
	})
	if err != nil {
		s.tracing.RecordError(span, err)
		if status.Code(err) == codes.Internal {
			logger.WithError(err).Error("gRPC request failed")
		} else {
			logger.Info("gRPC request rejected")
		}
		return resp, err
	}
	logger.Debug("gRPC request completed")
	return resp, nil
}

func splitMethod(fullMethod string) (string, string) {
	trimmed := strings.TrimPrefix(fullMethod, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[:i], trimmed[i+1:]
	}
	return "unknown", trimmed
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, insights.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrRecordNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, analysis.ErrHistoryDisabled):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func requiredJSON(fields map[string]interface{}, key string) (json.RawMessage, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s: %v", key, err)
	}
	return data, nil
}

func optionalJSON(fields map[string]interface{}, key string) json.RawMessage {
	v, ok := fields[key]
	if !ok || v == nil {
		return nil
	}
	data, _ := json.Marshal(v)
	return data
}

func stringField(fields map[string]interface{}, key string) string {
	s, _ := fields[key].(string)
	return s
}

func boolField(fields map[string]interface{}, key string) bool {
	b, _ := fields[key].(bool)
	return b
}

// toStruct converts v through its JSON form.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}
