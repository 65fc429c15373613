package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dil-najha/Performance-Insights-sub001/pkg/insights"
)

// CompareRequest mirrors the body of POST /api/v1/compare.
type CompareRequest struct {
	Baseline      json.RawMessage `json:"baseline"`
	Current       json.RawMessage `json:"current"`
	BaselineName  string          `json:"baselineName,omitempty"`
	CurrentName   string          `json:"currentName,omitempty"`
	MaxMetrics    int             `json:"maxMetrics,omitempty"`
	Save          bool            `json:"save,omitempty"`
	Insights      json.RawMessage `json:"insights,omitempty"`
	SystemContext json.RawMessage `json:"systemContext,omitempty"`
}

type CompareResponse struct {
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
}

type RecordSummary struct {
	ID               string           `json:"id"`
	CreatedAt        time.Time        `json:"createdAt"`
	BaselineName     string           `json:"baselineName"`
	CurrentName      string           `json:"currentName"`
	Summary          insights.Summary `json:"summary"`
	PerformanceScore float64          `json:"performanceScore"`
}

type Record struct {
	ID           string                      `json:"id"`
	CreatedAt    time.Time                   `json:"createdAt"`
	BaselineName string                      `json:"baselineName"`
	CurrentName  string                      `json:"currentName"`
	Baseline     *insights.PerformanceReport `json:"baseline"`
	Current      *insights.PerformanceReport `json:"current"`
	Diffs        []insights.MetricDiff       `json:"diffs"`
	Summary      insights.Summary            `json:"summary"`
	Impact       *insights.ImpactSummary     `json:"impact,omitempty"`
	Suggestions  []string                    `json:"suggestions"`
	Insights     json.RawMessage             `json:"insights,omitempty"`
}

// HealthStatus is the subset of the health document clients act on.
type HealthStatus struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func (h HealthStatus) Healthy() bool {
	return h.Status == "healthy" || h.Status == "degraded"
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int      `json:"code"`
	Message    string   `json:"message"`
	Details    []string `json:"details,omitempty"`

	body []byte
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("perf-insights: %d: %s", e.StatusCode, e.Message)
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	return msg
}

// IsHistoryDisabled reports whether err is the 501 a server without a history
// store answers to history operations.
func IsHistoryDisabled(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 501
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
