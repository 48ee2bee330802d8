// Package cache provides the read-through cache used for catalog queries.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/subhub/telecom-subscriptions/pkg/config"
	"github.com/subhub/telecom-subscriptions/pkg/redis"
)

// Generation identifies the cache contents between two invalidations.
type Generation uint64

// Cache stores opaque values by key. Get reports the generation it read, and
// Set only stores a value for that generation, so a value loaded before an
// Invalidate never becomes visible after it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, Generation, bool, error)
	Set(ctx context.Context, key string, value []byte, gen Generation) error
	Invalidate(ctx context.Context) error
}

// New selects the backend configured for the catalog.
func New(cfg config.CatalogConfig, rdb *redis.Client) (Cache, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.CacheBackend)) {
	case config.CacheBackendMemory, "":
		return NewMemory(cfg.CacheSize, cfg.CacheTTL), nil
	case config.CacheBackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis client required for redis cache backend")
		}
		return NewRedis(rdb, "catalog", cfg.CacheTTL), nil
	case config.CacheBackendNone:
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// Remember returns the cached value for key, or calls load and caches its
// result. Cache failures degrade to calling load.
func Remember[T any](ctx context.Context, c Cache, key string, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}
	raw, gen, ok, err := c.Get(ctx, key)
	if err != nil {
		return load(ctx)
	}
	if ok {
		var cached T
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if encoded, jsonErr := json.Marshal(value); jsonErr == nil {
		_ = c.Set(ctx, key, encoded, gen)
	}
	return value, nil
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, Generation, bool, error) { return nil, 0, false, nil }
func (Noop) Set(context.Context, string, []byte, Generation) error         { return nil }
func (Noop) Invalidate(context.Context) error                              { return nil }

func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 5 * time.Minute
	}
	return ttl
}
