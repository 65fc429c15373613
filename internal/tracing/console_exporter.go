package tracing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace"
)

// ConsoleExporter writes one JSON line per finished span.
type ConsoleExporter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

var _ trace.SpanExporter = (*ConsoleExporter)(nil)

func NewConsoleExporter(w io.Writer) *ConsoleExporter {
	return &ConsoleExporter{enc: json.NewEncoder(w)}
}

type spanRecord struct {
	TraceID    string                 `json:"trace_id"`
	SpanID     string                 `json:"span_id"`
	ParentID   string                 `json:"parent_id,omitempty"`
	Name       string                 `json:"name"`
	DurationMs float64                `json:"duration_ms"`
	Status     string                 `json:"status"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Events     []string               `json:"events,omitempty"`
}

func (ce *ConsoleExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	for _, span := range spans {
		rec := spanRecord{
			TraceID:    span.SpanContext().TraceID().String(),
			SpanID:     span.SpanContext().SpanID().String(),
			Name:       span.Name(),
			DurationMs: float64(span.EndTime().Sub(span.StartTime()).Microseconds()) / 1000,
			Status:     span.Status().Code.String(),
			Attributes: attributesToMap(span.Attributes()),
		}
		if span.Parent().IsValid() {
			rec.ParentID = span.Parent().SpanID().String()
		}
		for _, event := range span.Events() {
			rec.Events = append(rec.Events, event.Name)
		}

		if err := ce.enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to write span: %w", err)
		}
	}
	return nil
}

func (ce *ConsoleExporter) Shutdown(ctx context.Context) error {
	return nil
}

func attributesToMap(attrs []attribute.KeyValue) map[string]interface{} {
	if len(attrs) == 0 {
		return nil
	}
	result := make(map[string]interface{}, len(attrs))
	for _, attr := range attrs {
		result[string(attr.Key)] = attr.Value.AsInterface()
	}
	return result
}
