package insights

import (
	"regexp"
	"sort"
	"strings"
)

type importanceWeight struct {
	name    string
	pattern *regexp.Regexp
	weight  float64
}

// importanceWeights are additive: a key collects the weight of every group it
// matches. Patterns run against the lowercased key.
var importanceWeights = []importanceWeight{
	{"web-vitals", regexp.MustCompile(`lcp|fcp|cls|fid|inp|ttfb`), 9},
	{"timing", regexp.MustCompile(`latency|response|duration|time|load`), 8},
	{"reliability", regexp.MustCompile(`error|fail`), 8},
	{"capacity", regexp.MustCompile(`throughput|rps|reqs?`), 7},
	{"resource", regexp.MustCompile(`cpu|memory|heap|rss`), 6},
	{"tail-latency", regexp.MustCompile(`p95|p99`), 5},
	{"central", regexp.MustCompile(`avg|median|med`), 3},
	{"rate", regexp.MustCompile(`rate`), 2},
}

// depthPenaltyFree is how many dot-separated segments a key may have before
// each extra segment costs one point.
const depthPenaltyFree = 3

// ImportanceScore ranks a metric key by how much it usually matters.
func ImportanceScore(key string) float64 {
	lower := strings.ToLower(key)
	score := 0.0
	for _, w := range importanceWeights {
		if w.pattern.MatchString(lower) {
			score += w.weight
		}
	}
	depth := len(strings.Split(key, "."))
	if depth > depthPenaltyFree {
		score -= float64(depth - depthPenaltyFree)
	}
	return score
}

// SelectTop keeps the max most important diffs. When there are no more than
// max diffs the input is returned unchanged. Otherwise the highest scoring
// diffs are kept, ties resolved by input order, and the subset is re-sorted
// by label. A max below one selects nothing.
func SelectTop(diffs []MetricDiff, max int) []MetricDiff {
	if max < 1 {
		return []MetricDiff{}
	}
	if len(diffs) <= max {
		return diffs
	}

	type scored struct {
		diff  MetricDiff
		score float64
	}
	ranked := make([]scored, len(diffs))
	for i, d := range diffs {
		ranked[i] = scored{diff: d, score: ImportanceScore(d.Key)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	top := make([]MetricDiff, max)
	for i := 0; i < max; i++ {
		top[i] = ranked[i].diff
	}
	sortByLabel(top)
	return top
}
