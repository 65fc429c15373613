package analysis

import (
	"context"
	"time"

	"github.com/dil-najha/Performance-Insights-sub001/internal/storage"
)

// DefaultHistoryLimit is used when a listing does not ask for a size.
const DefaultHistoryLimit = 20

func (a *Analyzer) save(ctx context.Context, record *storage.Record) error {
	return a.historyOp(ctx, "save", "", func(ctx context.Context) error {
		return a.history.Save(ctx, record)
	})
}

// History lists saved comparisons, newest first.
func (a *Analyzer) History(ctx context.Context, limit int) ([]storage.RecordSummary, error) {
	if a.history == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var list []storage.RecordSummary
	err := a.historyOp(ctx, "list", "", func(ctx context.Context) error {
		var err error
		list, err = a.history.List(ctx, limit)
		return err
	})
	return list, err
}

// Record returns one saved comparison. Unknown IDs return
// storage.ErrRecordNotFound.
func (a *Analyzer) Record(ctx context.Context, id string) (*storage.Record, error) {
	if a.history == nil {
		return nil, ErrHistoryDisabled
	}

	var record *storage.Record
	err := a.historyOp(ctx, "get", id, func(ctx context.Context) error {
		var err error
		record, err = a.history.Get(ctx, id)
		return err
	})
	return record, err
}

func (a *Analyzer) DeleteRecord(ctx context.Context, id string) error {
	if a.history == nil {
		return ErrHistoryDisabled
	}
	return a.historyOp(ctx, "delete", id, func(ctx context.Context) error {
		return a.history.Delete(ctx, id)
	})
}

// HistoryStats returns nil stats when history is disabled.
func (a *Analyzer) HistoryStats(ctx context.Context) (*storage.Stats, error) {
	if a.history == nil {
		return nil, nil
	}
	stats, err := a.history.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (a *Analyzer) historyOp(ctx context.Context, op, id string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := a.tracing.InstrumentHistoryOperation(ctx, op, id)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		a.tracing.RecordError(span, err)
	}
	a.metrics.ObserveHistoryOperation(op, time.Since(start), err)
	return err
}
