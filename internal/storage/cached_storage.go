package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dil-najha/Performance-Insights-sub001/internal/cache"
)

// CachedStore keeps recently read records in an LRU cache in front of
// another HistoryStore. Lists always go to the underlying store.
type CachedStore struct {
	store         HistoryStore
	cache         *cache.LRUCache
	ttl           time.Duration
	cancelCleanup context.CancelFunc
}

var _ HistoryStore = (*CachedStore)(nil)

type CachedStoreConfig struct {
	Size            int
	TTL             time.Duration
	CleanupInterval time.Duration
}

func NewCachedStore(store HistoryStore, cfg CachedStoreConfig) *CachedStore {
	c := &CachedStore{
		store: store,
		cache: cache.NewLRUCache(cfg.Size),
		ttl:   cfg.TTL,
	}

	if cfg.CleanupInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancelCleanup = cancel
		go c.cache.RunCleanup(ctx, cfg.CleanupInterval, nil)
	}

	return c
}

func (c *CachedStore) Save(ctx context.Context, record *Record) error {
	if err := c.store.Save(ctx, record); err != nil {
		return err
	}
	c.put(ctx, record)
	return nil
}

func (c *CachedStore) Get(ctx context.Context, id string) (*Record, error) {
	if data, found := c.cache.Get(ctx, id); found {
		var record Record
		if err := json.Unmarshal(data, &record); err == nil {
			return &record, nil
		}
		c.cache.Delete(ctx, id)
	}

	record, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(ctx, record)
	return record, nil
}

// put caches a serialized copy so callers can't mutate the cached record.
func (c *CachedStore) put(ctx context.Context, record *Record) {
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	c.cache.Set(ctx, record.ID, data, c.ttl)
}

func (c *CachedStore) List(ctx context.Context, limit int) ([]RecordSummary, error) {
	return c.store.List(ctx, limit)
}

func (c *CachedStore) Delete(ctx context.Context, id string) error {
	c.cache.Delete(ctx, id)
	return c.store.Delete(ctx, id)
}

func (c *CachedStore) Stats(ctx context.Context) (Stats, error) {
	stats, err := c.store.Stats(ctx)
	if err != nil {
		return stats, err
	}
	cacheStats := c.cache.Stats()
	stats.Cache = &cacheStats
	return stats, nil
}

func (c *CachedStore) Close() error {
	if c.cancelCleanup != nil {
		c.cancelCleanup()
	}
	c.cache.Close()
	return c.store.Close()
}
