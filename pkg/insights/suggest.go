package insights

import (
	"math"
	"regexp"
)

// SuggestionRule maps a metric category to remediation tips. It fires when
// any diff whose key matches Pattern got worse by at least the noise floor.
type SuggestionRule struct {
	Category string
	Pattern  *regexp.Regexp
	Tips     []string
}

// RebaselineTip is appended whenever any metric regressed.
const RebaselineTip = "Re-run both baseline and current tests under identical, controlled conditions (same environment, data set and load profile) to confirm the regression is real."

// DefaultSuggestionRules is the built-in rule table, evaluated in order.
var DefaultSuggestionRules = []SuggestionRule{
	{
		Category: "latency",
		Pattern:  regexp.MustCompile(`(?i)(latency|response|duration|time|p\d+)`),
		Tips: []string{
			"Profile the slowest endpoints and look for N+1 queries or missing database indexes.",
			"Add caching for frequently requested, rarely changing data.",
			"Check downstream service and network latency for new hops or timeouts.",
		},
	},
	{
		Category: "throughput",
		Pattern:  regexp.MustCompile(`(?i)(throughput|rps|tps|reqs?)`),
		Tips: []string{
			"Review connection pool and worker limits for saturation.",
			"Look for new lock contention or serialized sections on the request path.",
		},
	},
	{
		Category: "errors",
		Pattern:  regexp.MustCompile(`(?i)(error|fail)`),
		Tips: []string{
			"Inspect application logs for the new error types introduced between runs.",
			"Verify timeouts, retries and circuit breaker settings for dependencies.",
		},
	},
	{
		Category: "cpu",
		Pattern:  regexp.MustCompile(`(?i)cpu`),
		Tips: []string{
			"Capture a CPU profile under load to find hot paths.",
			"Check for busy loops, excessive serialization or regex compilation on hot paths.",
		},
	},
	{
		Category: "memory",
		Pattern:  regexp.MustCompile(`(?i)(mem(ory)?|heap|rss)`),
		Tips: []string{
			"Capture a heap profile and compare allocation sites between versions.",
			"Look for unbounded caches, leaked goroutines or retained buffers.",
		},
	},
}

// Suggest returns remediation tips for regressed metrics using
// DefaultSuggestionRules.
func Suggest(diffs []MetricDiff) []string {
	return SuggestWith(DefaultSuggestionRules, diffs)
}

// SuggestWith is Suggest over a custom rule table. Output is deduplicated and
// keeps first-seen order.
func SuggestWith(rules []SuggestionRule, diffs []MetricDiff) []string {
	out := []string{}
	seen := make(map[string]struct{})
	add := func(tip string) {
		if _, ok := seen[tip]; ok {
			return
		}
		seen[tip] = struct{}{}
		out = append(out, tip)
	}

	for _, rule := range rules {
		if rule.Pattern == nil || !ruleTriggered(rule, diffs) {
			continue
		}
		for _, tip := range rule.Tips {
			add(tip)
		}
	}

	for _, d := range diffs {
		if d.Trend == TrendWorse {
			add(RebaselineTip)
			break
		}
	}
	return out
}

func ruleTriggered(rule SuggestionRule, diffs []MetricDiff) bool {
	for _, d := range diffs {
		if d.Trend != TrendWorse || !rule.Pattern.MatchString(d.Key) {
			continue
		}
		// A zero baseline leaves pct undefined; treat it as significant.
		if d.Pct == nil || math.Abs(*d.Pct) >= NoiseFloorPct {
			return true
		}
	}
	return false
}
