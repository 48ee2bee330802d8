package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	CacheKey(scope string, parts ...string) string
}

// Redis shares cached values across API replicas. Entries are namespaced by a
// generation counter; Invalidate bumps the counter and lets old entries expire.
type Redis struct {
	store redisStore
	scope string
	ttl   time.Duration
}

func NewRedis(store redisStore, scope string, ttl time.Duration) *Redis {
	return &Redis{store: store, scope: scope, ttl: normalizeTTL(ttl)}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, Generation, bool, error) {
	gen, err := r.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}
	raw, err := r.store.Get(ctx, r.entryKey(gen, key))
	if errors.Is(err, redislib.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	return []byte(raw), gen, true, nil
}

// Set writes under gen. A value loaded before Invalidate lands in the retired
// namespace and is never read.
func (r *Redis) Set(ctx context.Context, key string, value []byte, gen Generation) error {
	return r.store.Set(ctx, r.entryKey(gen, key), string(value), r.ttl)
}

func (r *Redis) Invalidate(ctx context.Context) error {
	_, err := r.store.Incr(ctx, r.generationKey())
	return err
}

func (r *Redis) generation(ctx context.Context) (Generation, error) {
	raw, err := r.store.Get(ctx, r.generationKey())
	if errors.Is(err, redislib.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, nil
	}
	return Generation(n), nil
}

func (r *Redis) entryKey(gen Generation, key string) string {
	return r.store.CacheKey(r.scope, "g"+strconv.FormatUint(uint64(gen), 10), key)
}

func (r *Redis) generationKey() string {
	return r.store.CacheKey(r.scope, "generation")
}
