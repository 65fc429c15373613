// Package analysis runs the comparison pipeline for the service: validate
// both payloads, compare, aggregate, suggest and select the displayed diffs,
// with result caching, history, metrics, logs and traces around it.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/dil-najha/Performance-Insights-sub001/internal/cache"
	"github.com/dil-najha/Performance-Insights-sub001/internal/config"
	"github.com/dil-najha/Performance-Insights-sub001/internal/logging"
	"github.com/dil-najha/Performance-Insights-sub001/internal/monitoring"
	"github.com/dil-najha/Performance-Insights-sub001/internal/storage"
	"github.com/dil-najha/Performance-Insights-sub001/internal/tracing"
	"github.com/dil-najha/Performance-Insights-sub001/pkg/insights"
)

// ErrHistoryDisabled is returned by history operations when no store is
// configured.
var ErrHistoryDisabled = errors.New("comparison history is disabled")

type Request struct {
	Baseline     json.RawMessage
	Current      json.RawMessage
	BaselineName string
	CurrentName  string
	// MaxMetrics bounds the displayed diffs. 0 uses the configured default.
	MaxMetrics int
	Save       bool
	// Insights and SystemContext are passed through untouched.
	Insights      json.RawMessage
	SystemContext json.RawMessage
}

// PromptPayload is what an external prompt builder needs to explain a
// comparison.
type PromptPayload struct {
	Diffs         []insights.MetricDiff `json:"diffs"`
	SystemContext json.RawMessage       `json:"systemContext,omitempty"`
}

type Result struct {
	ID          string                      `json:"id,omitempty"`
	Baseline    *insights.PerformanceReport `json:"baseline"`
	Current     *insights.PerformanceReport `json:"current"`
	Diffs       []insights.MetricDiff       `json:"diffs"`
	TotalDiffs  int                         `json:"totalDiffs"`
	Truncated   bool                        `json:"truncated"`
	Summary     insights.Summary            `json:"summary"`
	Impact      *insights.ImpactSummary     `json:"impact"`
	Suggestions []string                    `json:"suggestions"`
	Warnings    []string                    `json:"warnings"`
	Cached      bool                        `json:"cached"`
	Prompt      PromptPayload               `json:"prompt"`
}

// computed is the cached part of a comparison: everything derived from the
// two reports alone.
type computed struct {
	Diffs       []insights.MetricDiff   `json:"diffs"`
	Summary     insights.Summary        `json:"summary"`
	Impact      *insights.ImpactSummary `json:"impact"`
	Suggestions []string                `json:"suggestions"`
}

type Options struct {
	Config   config.AnalysisConfig
	Cache    cache.Cache // optional
	CacheTTL time.Duration
	History  storage.HistoryStore // optional
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
	Tracing  *tracing.TracingService
}

type Analyzer struct {
	cfg        config.AnalysisConfig
	thresholds insights.Thresholds
	variant    string
	cache      cache.Cache
	cacheTTL   time.Duration
	history    storage.HistoryStore
	logger     *logging.Logger
	metrics    *monitoring.Metrics
	tracing    *tracing.TracingService
}

func New(opts Options) *Analyzer {
	a := &Analyzer{
		cfg:        opts.Config,
		thresholds: opts.Config.Thresholds.WithDefaults(),
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		history:    opts.History,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		tracing:    opts.Tracing,
	}
	if a.logger == nil {
		a.logger = logging.NewNopLogger()
	}
	if a.metrics == nil {
		a.metrics = monitoring.NewMetrics()
	}
	if a.tracing == nil {
		a.tracing = tracing.NewNoopTracingService()
	}
	a.variant = cache.Fingerprint(a.thresholds)
	return a
}

// Thresholds returns the impact table in effect.
func (a *Analyzer) Thresholds() insights.Thresholds {
	return a.thresholds
}

// CacheStats returns nil when result caching is disabled.
func (a *Analyzer) CacheStats() *cache.Stats {
	if a.cache == nil {
		return nil
	}
	stats := a.cache.Stats()
	return &stats
}

// HistoryEnabled reports whether comparisons can be saved.
func (a *Analyzer) HistoryEnabled() bool {
	return a.history != nil
}

// Analyze compares two raw payloads. Invalid payloads return an error
// wrapping insights.ErrInvalidInput that names the rejected side.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	ctx, span := a.tracing.StartSpan(ctx, "analysis.Analyze")
	defer span.End()

	if req.Save && a.history == nil {
		return nil, ErrHistoryDisabled
	}

	baseline, current, warnings, err := a.validate(ctx, req)
	if err != nil {
		a.tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("analysis.baseline_metrics", baseline.Len()),
		attribute.Int("analysis.current_metrics", current.Len()),
	)

	out, hit := a.compute(ctx, baseline, current)

	selectStart := time.Now()
	limit := a.maxMetrics(req.MaxMetrics)
	display := out.Diffs
	if limit > 0 {
		display = insights.SelectTop(out.Diffs, limit)
	}
	a.metrics.ObserveStage("select", time.Since(selectStart))

	result := &Result{
		Baseline:    baseline,
		Current:     current,
		Diffs:       display,
		TotalDiffs:  len(out.Diffs),
		Truncated:   len(display) < len(out.Diffs),
		Summary:     out.Summary,
		Impact:      out.Impact,
		Suggestions: out.Suggestions,
		Warnings:    warnings,
		Cached:      hit,
		Prompt: PromptPayload{
			Diffs:         display,
			SystemContext: req.SystemContext,
		},
	}

	if req.Save {
		record := &storage.Record{
			BaselineName: baseline.Name,
			CurrentName:  current.Name,
			Baseline:     baseline,
			Current:      current,
			Diffs:        out.Diffs,
			Summary:      out.Summary,
			Impact:       out.Impact,
			Suggestions:  out.Suggestions,
			Insights:     req.Insights,
		}
		if err := a.save(ctx, record); err != nil {
			a.tracing.RecordError(span, err)
			return nil, err
		}
		result.ID = record.ID
	}

	a.observe(ctx, result, time.Since(start))
	return result, nil
}

func (a *Analyzer) validate(ctx context.Context, req Request) (*insights.PerformanceReport, *insights.PerformanceReport, []string, error) {
	stageStart := time.Now()
	_, span := a.tracing.StartSpan(ctx, "analysis.validate")
	defer span.End()
	defer func() { a.metrics.ObserveStage("validate", time.Since(stageStart)) }()

	baseline, bw, err := a.normalizeSide(req.Baseline, "baseline", req.BaselineName)
	if err != nil {
		return nil, nil, nil, err
	}
	current, cw, err := a.normalizeSide(req.Current, "current", req.CurrentName)
	if err != nil {
		return nil, nil, nil, err
	}

	warnings := make([]string, 0, len(bw)+len(cw))
	for _, w := range bw {
		warnings = append(warnings, "baseline: "+w)
	}
	for _, w := range cw {
		warnings = append(warnings, "current: "+w)
	}
	return baseline, current, warnings, nil
}

func (a *Analyzer) normalizeSide(raw json.RawMessage, side, name string) (*insights.PerformanceReport, []string, error) {
	fallback := side
	if name != "" {
		fallback = name
	}

	res := insights.ValidateJSON(raw, fallback)
	if err := res.ErrFor(side); err != nil {
		a.metrics.ObserveValidationFailure(side)
		return nil, nil, err
	}
	if name != "" {
		res.Report.Name = name
	}
	return res.Report, res.Warnings, nil
}

// compute returns the cached comparison for the two reports or runs it.
// Cache failures only cost a recomputation.
func (a *Analyzer) compute(ctx context.Context, baseline, current *insights.PerformanceReport) (computed, bool) {
	key, keyErr := cache.ComparisonKey(baseline, current, a.variant)

	if a.cache != nil && keyErr == nil {
		if data, found := a.cache.Get(ctx, key); found {
			var out computed
			if err := json.Unmarshal(data, &out); err == nil {
				a.metrics.ObserveCacheLookup(true)
				a.logger.CacheEvent(ctx, "hit", key, nil)
				return out, true
			}
			a.logger.CacheEvent(ctx, "corrupt", key, nil)
		}
		a.metrics.ObserveCacheLookup(false)
	}

	out := a.run(ctx, baseline, current)

	if a.cache != nil && keyErr == nil {
		if data, err := json.Marshal(out); err == nil {
			if err := a.cache.Set(ctx, key, data, a.cacheTTL); err != nil {
				a.logger.CacheEvent(ctx, "set", key, err)
			}
		}
	}
	return out, false
}

func (a *Analyzer) run(ctx context.Context, baseline, current *insights.PerformanceReport) computed {
	var out computed
	var result *insights.ComparisonResult

	a.stage(ctx, "compare", func(span oteltrace.Span) {
		result = insights.CompareReports(baseline, current)
		span.SetAttributes(attribute.Int("analysis.diffs", len(result.Diffs)))
	})
	a.stage(ctx, "aggregate", func(span oteltrace.Span) {
		out.Impact = insights.AggregateWith(result, a.thresholds)
		span.SetAttributes(attribute.Float64("analysis.performance_score", out.Impact.PerformanceScore))
	})
	a.stage(ctx, "suggest", func(oteltrace.Span) {
		out.Suggestions = insights.Suggest(result.Diffs)
	})

	out.Diffs = result.Diffs
	out.Summary = result.Summary
	return out
}

func (a *Analyzer) stage(ctx context.Context, name string, fn func(oteltrace.Span)) {
	start := time.Now()
	_, span := a.tracing.StartSpan(ctx, "analysis."+name)
	fn(span)
	span.End()
	a.metrics.ObserveStage(name, time.Since(start))
}

func (a *Analyzer) maxMetrics(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = a.cfg.DefaultMaxMetrics
	}
	if a.cfg.MaxMaxMetrics > 0 && limit > a.cfg.MaxMaxMetrics {
		limit = a.cfg.MaxMaxMetrics
	}
	return limit
}

func (a *Analyzer) observe(ctx context.Context, result *Result, d time.Duration) {
	a.metrics.ObserveComparison(monitoring.ComparisonObservation{
		CacheHit:         result.Cached,
		Diffs:            result.TotalDiffs,
		Improved:         result.Summary.Improved,
		Worse:            result.Summary.Worse,
		Same:             result.Summary.Same,
		Unknown:          result.Summary.Unknown,
		PerformanceScore: result.Impact.PerformanceScore,
		RevenueRisk:      string(result.Impact.BusinessImpact.RevenueRisk),
	})

	a.logger.ComparisonEvent(ctx, logging.ComparisonStats{
		Baseline:         result.Baseline.Name,
		Current:          result.Current.Name,
		Metrics:          result.TotalDiffs,
		Improved:         result.Summary.Improved,
		Worse:            result.Summary.Worse,
		Same:             result.Summary.Same,
		Unknown:          result.Summary.Unknown,
		PerformanceScore: result.Impact.PerformanceScore,
		RevenueRisk:      string(result.Impact.BusinessImpact.RevenueRisk),
		CacheHit:         result.Cached,
		Duration:         d,
	})
}

// Normalize validates a single payload without comparing it.
func (a *Analyzer) Normalize(ctx context.Context, raw json.RawMessage, name string) insights.ValidationResult {
	_, span := a.tracing.StartSpan(ctx, "analysis.Normalize")
	defer span.End()

	fallback := name
	if fallback == "" {
		fallback = "report"
	}
	res := insights.ValidateJSON(raw, fallback)
	if !res.Valid {
		a.metrics.ObserveValidationFailure("normalize")
	}
	return res
}
