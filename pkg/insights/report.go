// Package insights compares two performance snapshots and scores the impact
// of the change. Every function in this package is pure: it performs no I/O,
// holds no shared mutable state and returns the same output for the same
// input, so it is safe to call from any number of goroutines.
package insights

// PerformanceReport is the canonical flat form of a performance export.
// Metric keys are dot-separated paths rebuilt from the nested input.
type PerformanceReport struct {
	Name      string             `json:"name"`
	Timestamp string             `json:"timestamp,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Value returns the metric stored under key.
func (r *PerformanceReport) Value(key string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	v, ok := r.Metrics[key]
	return v, ok
}

// Len returns the number of metrics in the report.
func (r *PerformanceReport) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Metrics)
}

// BetterWhen states which direction of change counts as an improvement.
type BetterWhen string

const (
	LowerIsBetter  BetterWhen = "lower"
	HigherIsBetter BetterWhen = "higher"
)

// Trend is the classification of a single metric change.
type Trend string

const (
	TrendImproved Trend = "improved"
	TrendWorse    Trend = "worse"
	TrendSame     Trend = "same"
	TrendUnknown  Trend = "unknown"
)

// NoiseFloorPct is the absolute percent change below which a metric is
// reported as unchanged.
const NoiseFloorPct = 5.0

// MetricDiff is the comparison of one metric key across both reports.
// Baseline or Current is nil when the key is missing on that side; Change
// and Pct are nil whenever they cannot be computed.
type MetricDiff struct {
	Key        string     `json:"key"`
	Label      string     `json:"label"`
	Baseline   *float64   `json:"baseline"`
	Current    *float64   `json:"current"`
	Change     *float64   `json:"change"`
	Pct        *float64   `json:"pct"`
	BetterWhen BetterWhen `json:"betterWhen"`
	Trend      Trend      `json:"trend"`
}

// NormalizedPct returns the percent change signed so that a positive value is
// always an improvement.
func (d MetricDiff) NormalizedPct() (float64, bool) {
	if d.Pct == nil {
		return 0, false
	}
	if d.BetterWhen == LowerIsBetter {
		return -*d.Pct, true
	}
	return *d.Pct, true
}

// Summary counts diffs per trend.
type Summary struct {
	Improved int `json:"improved"`
	Worse    int `json:"worse"`
	Same     int `json:"same"`
	Unknown  int `json:"unknown"`
}

// Total returns the number of diffs the summary was built from.
func (s Summary) Total() int {
	return s.Improved + s.Worse + s.Same + s.Unknown
}

func (s *Summary) add(t Trend) {
	switch t {
	case TrendImproved:
		s.Improved++
	case TrendWorse:
		s.Worse++
	case TrendSame:
		s.Same++
	default:
		s.Unknown++
	}
}

// ComparisonResult holds every diff between two reports, ordered by label.
type ComparisonResult struct {
	Diffs   []MetricDiff `json:"diffs"`
	Summary Summary      `json:"summary"`
}

func float64Ptr(v float64) *float64 {
	return &v
}
