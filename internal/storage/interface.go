package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dil-najha/Performance-Insights-sub001/internal/cache"
	"github.com/dil-najha/Performance-Insights-sub001/pkg/insights"
)

// HistoryStore persists completed comparisons.
type HistoryStore interface {
	// Save assigns an ID and creation time when the record has none.
	Save(ctx context.Context, record *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	// List returns record summaries, newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]RecordSummary, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Record is one saved comparison.
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
	// Insights is stored as given and never interpreted.
	Insights json.RawMessage `json:"insights,omitempty"`
}

// RecordSummary is the list view of a Record.
type RecordSummary struct {
	ID               string           `json:"id"`
	CreatedAt        time.Time        `json:"createdAt"`
	BaselineName     string           `json:"baselineName"`
	CurrentName      string           `json:"currentName"`
	Summary          insights.Summary `json:"summary"`
	PerformanceScore float64          `json:"performanceScore"`
}

// Summarize returns the list view of r.
func (r *Record) Summarize() RecordSummary {
	s := RecordSummary{
		ID:           r.ID,
		CreatedAt:    r.CreatedAt,
		BaselineName: r.BaselineName,
		CurrentName:  r.CurrentName,
		Summary:      r.Summary,
	}
	if r.Impact != nil {
		s.PerformanceScore = r.Impact.PerformanceScore
	}
	return s
}

type Stats struct {
	Records   int          `json:"records"`
	LSMSize   int64        `json:"lsm_size"`
	VLogSize  int64        `json:"vlog_size"`
	TotalSize int64        `json:"total_size"`
	Cache     *cache.Stats `json:"cache,omitempty"`
}

var ErrRecordNotFound = errors.New("record not found")
