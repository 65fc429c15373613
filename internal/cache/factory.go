package cache

import (
	"context"
	"fmt"

	"github.com/dil-najha/Performance-Insights-sub001/internal/config"
)

// New builds the cache selected by cfg. It returns nil when caching is
// disabled.
func New(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Backend {
	case "", "memory":
		return NewLRUCache(cfg.Size), nil
	case "redis":
		rc, err := NewRedisCache(ctx, RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}
