package storage

import (
	"github.com/dil-najha/Performance-Insights-sub001/internal/config"
	"github.com/dil-najha/Performance-Insights-sub001/internal/logging"
)

// Open creates the history store described by cfg, fronted by a record
// cache when cfg.CacheSize is positive. It returns nil when history is
// disabled.
func Open(cfg config.HistoryConfig, logger *logging.Logger) (HistoryStore, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	base, err := NewBadgerStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize <= 0 {
		return base, nil
	}

	return NewCachedStore(base, CachedStoreConfig{
		Size:            cfg.CacheSize,
		TTL:             cfg.CacheTTL,
		CleanupInterval: cfg.CacheTTL,
	}), nil
}
