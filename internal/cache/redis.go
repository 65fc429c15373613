package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisConfig configures a RedisCache.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisCache shares comparison results between service instances.
type RedisCache struct {
	client *redis.Client
	prefix string

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
	// OnError receives backend failures that were turned into misses.
	OnError func(op, key string, err error)
}

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisCache{client: client, prefix: cfg.KeyPrefix}, nil
}

func (r *RedisCache) key(key string) string {
	return r.prefix + key
}

func (r *RedisCache) fail(op, key string, err error) {
	r.errors.Add(1)
	if r.OnError != nil {
		r.OnError(op, key, err)
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.fail("get", key, err)
		}
		r.misses.Add(1)
		return nil, false
	}
	r.hits.Add(1)
	return value, true
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		r.fail("set", key, err)
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.fail("delete", key, err)
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Stats reports client-side counters. Size is the number of keys in the
// selected database, or -1 when Redis cannot be reached.
func (r *RedisCache) Stats() Stats {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	size := -1
	if n, err := r.client.DBSize(ctx).Result(); err == nil {
		size = int(n)
	}

	hits, misses := r.hits.Load(), r.misses.Load()
	return Stats{
		Backend:  "redis",
		Hits:     hits,
		Misses:   misses,
		Errors:   r.errors.Load(),
		Size:     size,
		HitRatio: hitRatio(hits, misses),
	}
}

// Ping checks that Redis is reachable.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
