package insights

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// ImpactSummary is the aggregate business and technical view of a comparison.
type ImpactSummary struct {
	ImprovedCount       int     `json:"improvedCount"`
	WorseCount          int     `json:"worseCount"`
	SameCount           int     `json:"sameCount"`
	AvgImprovementPct   float64 `json:"avgImprovementPct"`
	NetImprovementScore int     `json:"netImprovementScore"`

	LatencyMetric         string   `json:"latencyMetric,omitempty"`
	LatencyImprovementMs  *float64 `json:"latencyImprovementMs"`
	LatencyImprovementPct *float64 `json:"latencyImprovementPct"`

	PerformanceScore float64           `json:"performanceScore"`
	CategoryScores   CategoryScores    `json:"categoryScores"`
	CoreWebVitals    *WebVitalsSummary `json:"coreWebVitals"`
	BusinessImpact   BusinessImpact    `json:"businessImpact"`

	TopImproved  []TopMetric `json:"topImproved"`
	TopRegressed []TopMetric `json:"topRegressed"`
}

// CategoryScores are mean normalized percent changes per category, clamped
// to [-100, 100]. Zero means no data or no net change.
type CategoryScores struct {
	SystemReliability float64 `json:"systemReliability"`
	Performance       float64 `json:"performance"`
	UserExperience    float64 `json:"userExperience"`
}

// WebVitalsSummary rates the current value of every vital found.
type WebVitalsSummary struct {
	Score   VitalRating    `json:"score"`
	Metrics []VitalReading `json:"metrics"`
}

// VitalReading is the rating of one vital.
type VitalReading struct {
	Name      string      `json:"name"`
	Key       string      `json:"key"`
	Value     float64     `json:"value"`
	Threshold float64     `json:"threshold"`
	Rating    VitalRating `json:"rating"`
}

// BusinessImpact holds the ordinal labels derived from the threshold table.
type BusinessImpact struct {
	RevenueRisk    RiskLevel `json:"revenueRisk"`
	UserExperience UXLevel   `json:"userExperience"`
	SEOImpact      SEOImpact `json:"seoImpact"`
}

// TopMetric is one entry of the top improved or regressed lists. Pct is
// normalized so that positive always means better, and is nil when the
// baseline was zero.
type TopMetric struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Pct   *float64 `json:"pct"`
	Trend Trend    `json:"trend"`

	rank float64
}

const (
	topListSize = 3
	scoreLimit  = 100.0
)

var (
	latencyPattern = regexp.MustCompile(`(?i)(latency|response|time|duration|lcp|fcp|ttfb|load)`)
	centralPattern = regexp.MustCompile(`(?i)(avg|median|p95|p99)`)

	reliabilityPattern = regexp.MustCompile(`(?i)(error|fail|success|pass|uptime|availab|timeout)`)
	performancePattern = regexp.MustCompile(`(?i)(latency|response|duration|time|throughput|rps|tps|reqs?|cpu|mem|heap|rss|p\d+)`)
	uxPattern          = regexp.MustCompile(`(?i)(lcp|fcp|cls|fid|inp|ttfb|load|render|paint|interactive)`)

	errorPattern      = regexp.MustCompile(`(?i)(error|fail)`)
	throughputPattern = regexp.MustCompile(`(?i)(throughput|rps|tps|reqs?)`)
	resourcePattern   = regexp.MustCompile(`(?i)(cpu|mem(ory)?|heap|rss)`)
)

// Aggregate summarizes result with DefaultThresholds.
func Aggregate(result *ComparisonResult) *ImpactSummary {
	return AggregateWith(result, DefaultThresholds())
}

// AggregateWith summarizes result using the given threshold table. Empty
// sections of t fall back to the defaults.
func AggregateWith(result *ComparisonResult, t Thresholds) *ImpactSummary {
	t = t.WithDefaults()
	if result == nil {
		result = &ComparisonResult{}
	}
	diffs := result.Diffs

	s := &ImpactSummary{
		ImprovedCount: result.Summary.Improved,
		WorseCount:    result.Summary.Worse,
		SameCount:     result.Summary.Same,
		TopImproved:   []TopMetric{},
		TopRegressed:  []TopMetric{},
	}
	s.NetImprovementScore = s.ImprovedCount - s.WorseCount
	s.AvgImprovementPct = averageImprovement(diffs)
	s.PerformanceScore = compositeScore(diffs)

	if latency, ok := selectLatencyMetric(diffs); ok {
		s.LatencyMetric = latency.Key
		if latency.Trend == TrendImproved && latency.Baseline != nil && latency.Current != nil {
			saved := *latency.Baseline - *latency.Current
			s.LatencyImprovementMs = float64Ptr(saved)
			if *latency.Baseline != 0 {
				s.LatencyImprovementPct = float64Ptr(saved / *latency.Baseline * 100)
			}
		}
	}

	s.CategoryScores = CategoryScores{
		SystemReliability: categoryScore(diffs, reliabilityPattern),
		Performance:       categoryScore(diffs, performancePattern),
		UserExperience:    categoryScore(diffs, uxPattern),
	}

	vitals, vitalDiffs := classifyVitals(diffs, t)
	s.CoreWebVitals = vitals
	s.BusinessImpact = BusinessImpact{
		RevenueRisk:    revenueRisk(diffs, t),
		UserExperience: uxLevel(diffs, vitals, t),
		SEOImpact:      seoImpact(vitalDiffs, vitals, t),
	}

	s.TopImproved, s.TopRegressed = topMovers(diffs, t)
	return s
}

// averageImprovement is the mean normalized percent change over improved
// diffs, counting only positive values.
func averageImprovement(diffs []MetricDiff) float64 {
	sum, n := 0.0, 0
	for _, d := range diffs {
		if d.Trend != TrendImproved {
			continue
		}
		if v, ok := d.NormalizedPct(); ok && v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// compositeScore is the clamped mean of normalized percent changes over every
// improved or worse diff. It is unweighted by importance.
func compositeScore(diffs []MetricDiff) float64 {
	positive, negative := 0.0, 0.0
	count := 0
	for _, d := range diffs {
		if d.Trend != TrendImproved && d.Trend != TrendWorse {
			continue
		}
		v, ok := d.NormalizedPct()
		if !ok {
			continue
		}
		if v >= 0 {
			positive += v
		} else {
			negative += v
		}
		count++
	}
	if count == 0 {
		return 0
	}
	return clamp((positive+negative)/float64(count), -scoreLimit, scoreLimit)
}

// selectLatencyMetric picks one representative latency metric, preferring an
// improved central or percentile metric, then any central or percentile
// metric, then anything that looks like latency.
func selectLatencyMetric(diffs []MetricDiff) (MetricDiff, bool) {
	cascade := []func(MetricDiff) bool{
		func(d MetricDiff) bool {
			return d.Trend == TrendImproved && latencyPattern.MatchString(d.Key) && centralPattern.MatchString(d.Key)
		},
		func(d MetricDiff) bool {
			return latencyPattern.MatchString(d.Key) && centralPattern.MatchString(d.Key)
		},
		func(d MetricDiff) bool {
			return latencyPattern.MatchString(d.Key)
		},
	}
	for _, match := range cascade {
		for _, d := range diffs {
			if match(d) {
				return d, true
			}
		}
	}
	return MetricDiff{}, false
}

func categoryScore(diffs []MetricDiff, pattern *regexp.Regexp) float64 {
	sum, n := 0.0, 0
	for _, d := range diffs {
		if !pattern.MatchString(d.Key) {
			continue
		}
		if v, ok := d.NormalizedPct(); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return clamp(sum/float64(n), -scoreLimit, scoreLimit)
}

// classifyVitals rates the first diff (in label order) with a current value
// for each vital in the table. It returns nil when no vital is present.
func classifyVitals(diffs []MetricDiff, t Thresholds) (*WebVitalsSummary, []MetricDiff) {
	var readings []VitalReading
	var matched []MetricDiff
	worst := VitalGood

	for _, vt := range t.Vitals {
		for _, d := range diffs {
			if d.Current == nil || !isVitalKey(d.Key, vt) {
				continue
			}
			rating := vt.rate(*d.Current, t.PoorMultiplier)
			readings = append(readings, VitalReading{
				Name:      strings.ToUpper(vt.Name),
				Key:       d.Key,
				Value:     *d.Current,
				Threshold: vt.Threshold,
				Rating:    rating,
			})
			matched = append(matched, d)
			if vitalRank[rating] > vitalRank[worst] {
				worst = rating
			}
			break
		}
	}

	if len(readings) == 0 {
		return nil, nil
	}
	return &WebVitalsSummary{Score: worst, Metrics: readings}, matched
}

// isVitalKey matches whole words of the key so that "confidence" is not
// mistaken for FID.
func isVitalKey(key string, vt VitalThreshold) bool {
	compact := strings.ToLower(strings.NewReplacer(".", "", "_", "", "-", "", " ", "").Replace(key))
	for _, alias := range vt.Aliases {
		if strings.Contains(compact, alias) {
			return true
		}
	}
	for _, w := range splitWords(key) {
		if strings.EqualFold(w, vt.Name) {
			return true
		}
	}
	return false
}

// degradation returns how much worse d got, in percent, or zero.
func degradation(d MetricDiff, t Thresholds) float64 {
	if d.Trend != TrendWorse {
		return 0
	}
	v, ok := d.NormalizedPct()
	if !ok {
		return t.UnknownPctDegradation
	}
	return math.Max(0, -v)
}

func maxDegradation(diffs []MetricDiff, pattern *regexp.Regexp, t Thresholds) float64 {
	worst := 0.0
	for _, d := range diffs {
		if pattern.MatchString(d.Key) {
			worst = math.Max(worst, degradation(d, t))
		}
	}
	return worst
}

func revenueRisk(diffs []MetricDiff, t Thresholds) RiskLevel {
	errorRise := maxDegradation(diffs, errorPattern, t)
	throughputDrop := maxDegradation(diffs, throughputPattern, t)
	resourceRise := maxDegradation(diffs, resourcePattern, t)

	reaches := func(signal, threshold float64) bool {
		return threshold > 0 && signal >= threshold
	}
	for _, band := range t.RevenueRisk {
		if reaches(errorRise, band.ErrorRateRisePct) ||
			reaches(throughputDrop, band.ThroughputDropPct) ||
			reaches(resourceRise, band.ResourceRisePct) {
			return band.Level
		}
	}
	return RiskLow
}

// uxLevel grades the mean normalized change of latency and UX metrics. A poor
// vitals score caps the level at degraded.
func uxLevel(diffs []MetricDiff, vitals *WebVitalsSummary, t Thresholds) UXLevel {
	sum, n := 0.0, 0
	for _, d := range diffs {
		if !latencyPattern.MatchString(d.Key) && !uxPattern.MatchString(d.Key) {
			continue
		}
		if v, ok := d.NormalizedPct(); ok {
			sum += v
			n++
		}
	}
	delta := 0.0
	if n > 0 {
		delta = sum / float64(n)
	}

	level := UXPoor
	for _, band := range t.UserExperience {
		if delta >= band.MinDeltaPct {
			level = band.Level
			break
		}
	}
	if vitals != nil && vitals.Score == VitalPoor && (level == UXGood || level == UXExcellent) {
		level = UXDegraded
	}
	return level
}

func seoImpact(vitalDiffs []MetricDiff, vitals *WebVitalsSummary, t Thresholds) SEOImpact {
	if vitals == nil {
		return SEONeutral
	}
	sum, n := 0.0, 0
	for _, d := range vitalDiffs {
		if v, ok := d.NormalizedPct(); ok {
			sum += v
			n++
		}
	}
	delta := 0.0
	if n > 0 {
		delta = sum / float64(n)
	}

	switch {
	case vitals.Score == VitalPoor || delta <= -t.SEODeltaPct:
		return SEONegative
	case delta >= t.SEODeltaPct:
		return SEOPositive
	default:
		return SEONeutral
	}
}

// topMovers returns the largest improvements and regressions by normalized
// percent change.
// topMovers ranks improved and worse diffs by normalized pct. A diff with a
// zero baseline has no pct and ranks at UnknownPctDegradation, the same
// weight revenueRisk gives it.
func topMovers(diffs []MetricDiff, t Thresholds) ([]TopMetric, []TopMetric) {
	var improved, regressed []TopMetric
	for _, d := range diffs {
		if d.Trend != TrendImproved && d.Trend != TrendWorse {
			continue
		}
		m := TopMetric{Key: d.Key, Label: d.Label, Trend: d.Trend}
		if v, ok := d.NormalizedPct(); ok {
			m.Pct = float64Ptr(v)
			m.rank = v
		} else if d.Trend == TrendImproved {
			m.rank = t.UnknownPctDegradation
		} else {
			m.rank = -t.UnknownPctDegradation
		}
		switch {
		case m.rank > 0:
			improved = append(improved, m)
		case m.rank < 0:
			regressed = append(regressed, m)
		}
	}

	sort.SliceStable(improved, func(i, j int) bool { return improved[i].rank > improved[j].rank })
	sort.SliceStable(regressed, func(i, j int) bool { return regressed[i].rank < regressed[j].rank })
	return head(improved, topListSize), head(regressed, topListSize)
}

func head(m []TopMetric, n int) []TopMetric {
	if len(m) > n {
		m = m[:n]
	}
	if m == nil {
		return []TopMetric{}
	}
	return m
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
