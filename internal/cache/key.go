package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/dil-najha/Performance-Insights-sub001/pkg/insights"
)

// ComparisonKey derives a cache key from the canonical JSON form of both
// reports. encoding/json writes map keys in sorted order, so equal reports
// always hash alike. variant separates results computed under different
// settings, such as another threshold table.
func ComparisonKey(baseline, current *insights.PerformanceReport, variant string) (string, error) {
	payload, err := json.Marshal(struct {
		Baseline *insights.PerformanceReport `json:"baseline"`
		Current  *insights.PerformanceReport `json:"current"`
		Variant  string                      `json:"variant"`
	}{baseline, current, variant})
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(payload)
	return "cmp:" + hex.EncodeToString(sum[:]), nil
}

// Fingerprint hashes any JSON-serializable settings into a short variant
// string for ComparisonKey.
func Fingerprint(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
