package insights

import (
	"math"
	"sort"
)

// CompareReports diffs every metric key present in either report. A nil
// report is treated as having no metrics. Diffs are sorted by label, then by
// key, so output order does not depend on map iteration.
func CompareReports(baseline, current *PerformanceReport) *ComparisonResult {
	return compareWith(defaultResolver, baseline, current)
}

// CompareReportsWith is CompareReports using a custom direction resolver.
func CompareReportsWith(resolver *DirectionResolver, baseline, current *PerformanceReport) *ComparisonResult {
	if resolver == nil {
		resolver = defaultResolver
	}
	return compareWith(resolver, baseline, current)
}

func compareWith(resolver *DirectionResolver, baseline, current *PerformanceReport) *ComparisonResult {
	keys := unionKeys(baseline, current)
	result := &ComparisonResult{Diffs: make([]MetricDiff, 0, len(keys))}

	for _, key := range keys {
		d := diffMetric(resolver, key, baseline, current)
		result.Summary.add(d.Trend)
		result.Diffs = append(result.Diffs, d)
	}

	sortByLabel(result.Diffs)
	return result
}

func diffMetric(resolver *DirectionResolver, key string, baseline, current *PerformanceReport) MetricDiff {
	d := MetricDiff{
		Key:        key,
		Label:      Label(key),
		BetterWhen: resolver.BetterWhen(key),
		Trend:      TrendUnknown,
	}

	b, hasB := baseline.Value(key)
	c, hasC := current.Value(key)
	if hasB {
		d.Baseline = float64Ptr(b)
	}
	if hasC {
		d.Current = float64Ptr(c)
	}
	if !hasB || !hasC {
		return d
	}

	change := c - b
	d.Change = float64Ptr(change)
	if b != 0 {
		d.Pct = float64Ptr(change / b * 100)
	}
	d.Trend = classify(d.BetterWhen, change, d.Pct)
	return d
}

// classify derives the trend of a metric present on both sides. A nil pct
// means the baseline was zero; the sign of change then decides on its own.
func classify(dir BetterWhen, change float64, pct *float64) Trend {
	if pct != nil && math.Abs(*pct) < NoiseFloorPct {
		return TrendSame
	}
	if pct == nil && change == 0 {
		return TrendSame
	}
	if dir == HigherIsBetter {
		if change > 0 {
			return TrendImproved
		}
		return TrendWorse
	}
	if change < 0 {
		return TrendImproved
	}
	return TrendWorse
}

func unionKeys(a, b *PerformanceReport) []string {
	seen := make(map[string]struct{}, a.Len()+b.Len())
	keys := make([]string, 0, a.Len()+b.Len())
	for _, r := range []*PerformanceReport{a, b} {
		if r == nil {
			continue
		}
		for k := range r.Metrics {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// sortByLabel orders diffs by byte-wise label comparison with the key as a
// tie-breaker.
func sortByLabel(diffs []MetricDiff) {
	sort.SliceStable(diffs, func(i, j int) bool {
		if diffs[i].Label != diffs[j].Label {
			return diffs[i].Label < diffs[j].Label
		}
		return diffs[i].Key < diffs[j].Key
	})
}
