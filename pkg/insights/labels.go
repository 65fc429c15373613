package insights

import (
	"regexp"
	"strings"
	"unicode"
)

// friendlyNames holds display labels for well-known metric keys.
var friendlyNames = map[string]string{
	"responseTimeAvg":       "Avg Response Time (ms)",
	"responseTimeMedian":    "Median Response Time (ms)",
	"responseTimeP50":       "P50 Response Time (ms)",
	"responseTimeP90":       "P90 Response Time (ms)",
	"responseTimeP95":       "P95 Response Time (ms)",
	"responseTimeP99":       "P99 Response Time (ms)",
	"responseTimeMin":       "Min Response Time (ms)",
	"responseTimeMax":       "Max Response Time (ms)",
	"throughput":            "Throughput (req/s)",
	"requestsPerSecond":     "Requests per Second",
	"errorRate":             "Error Rate (%)",
	"successRate":           "Success Rate (%)",
	"cpuUsage":              "CPU Usage (%)",
	"memoryUsage":           "Memory Usage (MB)",
	"lcp":                   "Largest Contentful Paint (ms)",
	"fcp":                   "First Contentful Paint (ms)",
	"ttfb":                  "Time to First Byte (ms)",
	"fid":                   "First Input Delay (ms)",
	"inp":                   "Interaction to Next Paint (ms)",
	"cls":                   "Cumulative Layout Shift",
	"http_req_duration.avg": "Avg Request Duration (ms)",
	"http_req_duration.med": "Median Request Duration (ms)",
	"http_req_failed.rate":  "Failed Request Rate",
	"http_reqs.rate":        "Request Rate (req/s)",
}

var (
	percentileToken = regexp.MustCompile(`^p\(?\d+(\.\d+)?\)?$`)
	acronyms        = map[string]bool{
		"cpu": true, "rps": true, "tps": true, "ttfb": true, "lcp": true,
		"fcp": true, "cls": true, "fid": true, "inp": true, "http": true,
		"api": true, "gc": true, "io": true, "db": true, "ms": true,
	}
)

// Label returns the display label for a metric key.
func Label(key string) string {
	if name, ok := friendlyNames[key]; ok {
		return name
	}
	return formatKey(key)
}

// formatKey turns camelCase, snake_case and dotted keys into spaced words.
func formatKey(key string) string {
	words := splitWords(key)
	if len(words) == 0 {
		return key
	}
	for i, w := range words {
		lower := strings.ToLower(w)
		switch {
		case percentileToken.MatchString(lower), acronyms[lower]:
			words[i] = strings.ToUpper(lower)
		default:
			rs := []rune(lower)
			rs[0] = unicode.ToUpper(rs[0])
			words[i] = string(rs)
		}
	}
	return strings.Join(words, " ")
}

func splitWords(key string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}

	runes := []rune(key)
	for i, r := range runes {
		if r == '.' || r == '_' || r == '-' || r == ' ' || r == '/' {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			// "responseTime" splits before T; "HTTPRequests" splits before R.
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}
