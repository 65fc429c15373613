// Package api exposes the comparison engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/dil-najha/Performance-Insights-sub001/internal/analysis"
	"github.com/dil-najha/Performance-Insights-sub001/internal/export"
	"github.com/dil-najha/Performance-Insights-sub001/internal/logging"
	"github.com/dil-najha/Performance-Insights-sub001/internal/monitoring"
	"github.com/dil-najha/Performance-Insights-sub001/internal/tracing"
)

var validate = validator.New()

// DefaultMaxBodySize applies when Options.MaxBodySize is unset.
const DefaultMaxBodySize = 10 << 20

type Options struct {
	Analyzer    *analysis.Analyzer
	Logger      *logging.Logger
	Monitoring  *monitoring.MonitoringService // optional
	Tracing     *tracing.TracingService       // optional
	MaxBodySize int64
	// RequestTimeout bounds each API call. 0 disables the bound.
	RequestTimeout time.Duration
	MetricsPath    string
	Version        string
}

// RESTHandler handles REST API requests
type RESTHandler struct {
	analyzer    *analysis.Analyzer
	logger      *logging.Logger
	monitoring  *monitoring.MonitoringService
	tracing     *tracing.TracingService
	maxBodySize int64
	timeout     time.Duration
	metricsPath string
	version     string
}

func NewRESTHandler(opts Options) *RESTHandler {
	h := &RESTHandler{
		analyzer:    opts.Analyzer,
		logger:      opts.Logger,
		monitoring:  opts.Monitoring,
		tracing:     opts.Tracing,
		maxBodySize: opts.MaxBodySize,
		timeout:     opts.RequestTimeout,
		metricsPath: opts.MetricsPath,
		version:     opts.Version,
	}
	if h.logger == nil {
		h.logger = logging.NewNopLogger()
	}
	if h.maxBodySize <= 0 {
		h.maxBodySize = DefaultMaxBodySize
	}
	if h.metricsPath == "" {
		h.metricsPath = "/metrics"
	}
	return h
}

// CompareHandler handles POST /api/v1/compare
func (h *RESTHandler) CompareHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.analyze(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, result)
}

// ExportHandler handles POST /api/v1/export?format=csv|json
func (h *RESTHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.analyze(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	name := "comparison"
	if result.ID != "" {
		name = "comparison-" + result.ID
	}
	h.writeExport(w, r, format, name, result)
}

// NormalizeHandler handles POST /api/v1/normalize. The body is one raw
// export; ?name= sets the fallback report name.
func (h *RESTHandler) NormalizeHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res := h.analyzer.Normalize(r.Context(), body, r.URL.Query().Get("name"))
	status := http.StatusOK
	if !res.Valid {
		status = http.StatusBadRequest
	}
	h.writeJSONResponse(w, status, res)
}

// ListHistoryHandler handles GET /api/v1/history?limit=N
func (h *RESTHandler) ListHistoryHandler(w http.ResponseWriter, r *http.Request) {
	query := HistoryQuery{Limit: analysis.DefaultHistoryLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.writeErrorResponse(w, http.StatusBadRequest, "Invalid limit parameter", nil)
			return
		}
		query.Limit = limit
	}
	if err := validate.Struct(query); err != nil {
		h.writeError(w, r, err)
		return
	}

	records, err := h.analyzer.History(r.Context(), query.Limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, HistoryResponse{Records: records, Count: len(records)})
}

// GetHistoryHandler handles GET /api/v1/history/{id}
func (h *RESTHandler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	record, err := h.analyzer.Record(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, record)
}

// DeleteHistoryHandler handles DELETE /api/v1/history/{id}
func (h *RESTHandler) DeleteHistoryHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.analyzer.DeleteRecord(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, DeleteResponse{Success: true, ID: id})
}

// ExportHistoryHandler handles GET /api/v1/history/{id}/export?format=csv|json
// and exports every diff of the saved comparison.
func (h *RESTHandler) ExportHistoryHandler(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	record, err := h.analyzer.Record(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeExport(w, r, format, "comparison-"+record.ID, &analysis.Result{Diffs: record.Diffs})
}

// StatsHandler handles GET /api/v1/stats
func (h *RESTHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	history, err := h.analyzer.HistoryStats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, StatsResponse{
		Cache:   h.analyzer.CacheStats(),
		History: history,
	})
}

// HealthHandler handles GET /health. Without a monitoring service it only
// reports liveness.
func (h *RESTHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.monitoring != nil {
		h.monitoring.HealthHandler()(w, r)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"version":   h.version,
		"timestamp": time.Now().UTC(),
	})
}

// RootHandler lists the available endpoints.
func (h *RESTHandler) RootHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"service": "Performance Insights",
		"version": h.version,
		"endpoints": map[string]string{
			"compare":        "POST /api/v1/compare",
			"export":         "POST /api/v1/export?format=csv|json",
			"normalize":      "POST /api/v1/normalize",
			"history":        "GET /api/v1/history",
			"history_record": "GET|DELETE /api/v1/history/{id}",
			"history_export": "GET /api/v1/history/{id}/export?format=csv|json",
			"stats":          "GET /api/v1/stats",
			"health":         "GET /health",
			"metrics":        "GET " + h.metricsPath,
		},
	})
}

// analyze decodes and validates a CompareRequest and runs it. ?max=
// overrides maxMetrics from the body.
func (h *RESTHandler) analyze(w http.ResponseWriter, r *http.Request) (*analysis.Result, error) {
	var req CompareRequest
	if err := h.decode(w, r, &req); err != nil {
		return nil, err
	}
	if raw := r.URL.Query().Get("max"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: max must be an integer", errBadRequest)
		}
		req.MaxMetrics = limit
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	return h.analyzer.Analyze(r.Context(), analysis.Request{
		Baseline:      req.Baseline,
		Current:       req.Current,
		BaselineName:  req.BaselineName,
		CurrentName:   req.CurrentName,
		MaxMetrics:    req.MaxMetrics,
		Save:          req.Save,
		Insights:      req.Insights,
		SystemContext: req.SystemContext,
	})
}

func (h *RESTHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err := dec.Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (h *RESTHandler) writeExport(w http.ResponseWriter, r *http.Request, format export.Format, name string, result *analysis.Result) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+format.Extension()))
	w.WriteHeader(http.StatusOK)

	if err := export.Write(w, format, result.Diffs); err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("Failed to write export")
	}
}

// writeError maps err to a status code and writes it. Server errors are
// logged; client errors are not.
func (h *RESTHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		h.logger.WithContext(r.Context()).WithError(err).Error("Request failed")
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	h.writeErrorResponse(w, status, message, errorDetails(err))
}

func (h *RESTHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

func (h *RESTHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, details []string) {
	h.writeJSONResponse(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
		Details: details,
	})
}

// CORSMiddleware adds CORS headers
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Correlation-ID, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Correlation-ID, X-Request-ID, Content-Disposition")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withTimeout bounds handler work by d.
func withTimeout(d time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
