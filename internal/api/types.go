package api

import (
	"encoding/json"

	"github.com/dil-najha/Performance-Insights-sub001/internal/cache"
	"github.com/dil-najha/Performance-Insights-sub001/internal/storage"
)

// CompareRequest is the body of POST /api/v1/compare and /api/v1/export.
// Baseline and Current are raw exports in any supported shape.
type CompareRequest struct {
	Baseline      json.RawMessage `json:"baseline" validate:"required"`
	Current       json.RawMessage `json:"current" validate:"required"`
	BaselineName  string          `json:"baselineName,omitempty" validate:"max=200"`
	CurrentName   string          `json:"currentName,omitempty" validate:"max=200"`
	MaxMetrics    int             `json:"maxMetrics,omitempty" validate:"gte=0"`
	Save          bool            `json:"save,omitempty"`
	Insights      json.RawMessage `json:"insights,omitempty"`
	SystemContext json.RawMessage `json:"systemContext,omitempty"`
}

// HistoryQuery holds the query parameters of GET /api/v1/history.
type HistoryQuery struct {
	Limit int `validate:"gte=0,lte=1000"`
}

type HistoryResponse struct {
	Records []storage.RecordSummary `json:"records"`
	Count   int                     `json:"count"`
}

type DeleteResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type StatsResponse struct {
	Cache   *cache.Stats   `json:"cache"`
	History *storage.Stats `json:"history"`
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}
