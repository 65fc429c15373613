package tracing

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dil-najha/Performance-Insights-sub001/internal/config"
)

const instrumentationName = "github.com/dil-najha/Performance-Insights-sub001"

// TracingService manages OpenTelemetry tracing. A disabled service hands out
// no-op spans, so callers never need to check whether tracing is on.
type TracingService struct {
	tracer   oteltrace.Tracer
	provider *trace.TracerProvider
}

func NewTracingService(cfg config.TracingConfig) (*TracingService, error) {
	if !cfg.Enabled {
		return NewNoopTracingService(), nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter trace.SpanExporter
	switch cfg.ExporterType {
	case "otlp":
		client := otlptracehttp.NewClient(
			otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint),
			otlptracehttp.WithHeaders(cfg.OTLPHeaders),
		)
		exporter, err = otlptrace.New(context.Background(), client)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
	case "console":
		exporter = NewConsoleExporter(os.Stdout)
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}

	samplingRatio := cfg.SamplingRatio
	if samplingRatio <= 0 {
		samplingRatio = 1.0
	}

	tp := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithBatcher(exporter),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(samplingRatio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return NewTracingServiceFromProvider(tp), nil
}

// NewTracingServiceFromProvider wraps an existing provider. Close shuts the
// provider down.
func NewTracingServiceFromProvider(tp *trace.TracerProvider) *TracingService {
	return &TracingService{
		tracer:   tp.Tracer(instrumentationName),
		provider: tp,
	}
}

func NewNoopTracingService() *TracingService {
	return &TracingService{tracer: noop.NewTracerProvider().Tracer(instrumentationName)}
}

func (ts *TracingService) StartSpan(ctx context.Context, name string, opts ...oteltrace.SpanStartOption) (context.Context, oteltrace.Span) {
	return ts.tracer.Start(ctx, name, opts...)
}

func (ts *TracingService) RecordError(span oteltrace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (ts *TracingService) Close(ctx context.Context) error {
	if ts.provider != nil {
		return ts.provider.Shutdown(ctx)
	}
	return nil
}

func (ts *TracingService) Tracer() oteltrace.Tracer {
	return ts.tracer
}

// TraceOperation runs fn inside a span named name and records its error.
func (ts *TracingService) TraceOperation(ctx context.Context, name string, fn func(context.Context, oteltrace.Span) error) error {
	ctx, span := ts.StartSpan(ctx, name)
	defer span.End()

	if err := fn(ctx, span); err != nil {
		ts.RecordError(span, err)
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (ts *TracingService) InstrumentHistoryOperation(ctx context.Context, operation, id string) (context.Context, oteltrace.Span) {
	return ts.StartSpan(ctx, "history."+operation,
		oteltrace.WithAttributes(
			attribute.String("history.operation", operation),
			attribute.String("history.record_id", id),
			attribute.String("component", "history"),
		),
	)
}

func (ts *TracingService) InstrumentGRPCRequest(ctx context.Context, service, method string) (context.Context, oteltrace.Span) {
	return ts.StartSpan(ctx, fmt.Sprintf("grpc.%s/%s", service, method),
		oteltrace.WithSpanKind(oteltrace.SpanKindServer),
		oteltrace.WithAttributes(
			attribute.String("rpc.service", service),
			attribute.String("rpc.method", method),
			attribute.String("rpc.system", "grpc"),
		),
	)
}

// Middleware starts a server span per request, continuing any trace context
// carried by the incoming headers.
func (ts *TracingService) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		ctx, span := ts.StartSpan(ctx, fmt.Sprintf("http.%s %s", r.Method, route),
			oteltrace.WithSpanKind(oteltrace.SpanKindServer),
			oteltrace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
