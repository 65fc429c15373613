package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dil-najha/Performance-Insights-sub001/internal/config"
)

type Logger struct {
	*slog.Logger
	config *config.LoggingConfig
}

type ContextKey string

const (
	CorrelationIDKey ContextKey = "correlation_id"
	RequestIDKey     ContextKey = "request_id"
	ServiceKey       ContextKey = "service"
)

// NewLogger creates a structured logger and installs it as the slog default.
func NewLogger(cfg *config.LoggingConfig) *Logger {
	logger := NewLoggerWithWriter(cfg, openOutput(cfg.Output))
	slog.SetDefault(logger.Logger)
	return logger
}

// NewLoggerWithWriter creates a structured logger that writes to w.
func NewLoggerWithWriter(cfg *config.LoggingConfig, w io.Writer) *Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case "text", "console":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
		config: cfg,
	}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	cfg := TestLoggingConfig()
	return NewLoggerWithWriter(&cfg, io.Discard)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openOutput(output string) io.Writer {
	switch output {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	}
	file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		slog.Warn("Failed to open log file, using stdout", "error", err, "file", output)
		return os.Stdout
	}
	return file
}

func (l *Logger) derive(logger *slog.Logger) *Logger {
	return &Logger{Logger: logger, config: l.config}
}

// WithContext creates a new logger with context values
func (l *Logger) WithContext(ctx context.Context) *Logger {
	logger := l.Logger
	for _, key := range []ContextKey{CorrelationIDKey, RequestIDKey, ServiceKey} {
		if v := ctx.Value(key); v != nil {
			logger = logger.With(string(key), v)
		}
	}
	return l.derive(logger)
}

// WithFields creates a new logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, key, value)
	}
	return l.derive(l.Logger.With(args...))
}

// WithField creates a new logger with a single additional field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.derive(l.Logger.With(key, value))
}

// WithError creates a new logger with an error field
func (l *Logger) WithError(err error) *Logger {
	return l.derive(l.Logger.With("error", err.Error()))
}

// RequestStart logs the start of a request
func (l *Logger) RequestStart(ctx context.Context, method, path, userAgent string) {
	if l.config != nil && !l.config.EnableRequestTracing {
		return
	}
	l.WithContext(ctx).Debug("Request started",
		"method", method,
		"path", path,
		"user_agent", userAgent,
	)
}

// RequestEnd logs the end of a request
func (l *Logger) RequestEnd(ctx context.Context, method, path string, statusCode int, duration time.Duration, size int64) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	l.WithContext(ctx).Log(ctx, level, "Request completed",
		"method", method,
		"path", path,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
		"response_size", size,
	)
}

// StoreOperation logs a history store operation
func (l *Logger) StoreOperation(ctx context.Context, operation, id string, duration time.Duration, err error) {
	logger := l.WithContext(ctx).With(
		"operation", operation,
		"record_id", id,
		"duration_ms", duration.Milliseconds(),
	)

	if err != nil {
		logger.Error("History operation failed", "error", err.Error())
	} else {
		logger.Debug("History operation completed")
	}
}

// ComparisonStats is the per-comparison data logged by ComparisonEvent.
type ComparisonStats struct {
	Baseline         string
	Current          string
	Metrics          int
	Improved         int
	Worse            int
	Same             int
	Unknown          int
	PerformanceScore float64
	RevenueRisk      string
	CacheHit         bool
	Duration         time.Duration
}

// ComparisonEvent logs one line per completed comparison. Regressions are
// logged at warn level.
func (l *Logger) ComparisonEvent(ctx context.Context, stats ComparisonStats) {
	level := slog.LevelInfo
	if stats.Worse > stats.Improved {
		level = slog.LevelWarn
	}

	l.WithContext(ctx).Log(ctx, level, "Comparison completed",
		"baseline", stats.Baseline,
		"current", stats.Current,
		"metrics", stats.Metrics,
		"improved", stats.Improved,
		"worse", stats.Worse,
		"same", stats.Same,
		"unknown", stats.Unknown,
		"performance_score", stats.PerformanceScore,
		"revenue_risk", stats.RevenueRisk,
		"cache_hit", stats.CacheHit,
		"duration_ms", stats.Duration.Milliseconds(),
	)
}

// CacheEvent logs cache activity that is worth seeing at debug level, and
// backend failures at warn level.
func (l *Logger) CacheEvent(ctx context.Context, event, key string, err error) {
	logger := l.WithContext(ctx).With("event", event, "cache_key", key)
	if err != nil {
		logger.Warn("Cache backend error", "error", err.Error())
		return
	}
	logger.Debug("Cache event")
}
