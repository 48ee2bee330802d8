package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/subhub/telecom-subscriptions/pkg/config"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newFakeCommands()
	client := &Client{cmd: mock}

	for i, want := range []bool{true, true, false} {
		allowed, count, err := client.FixedWindowAllow(ctx, "login:ip:1.2.3.4", 2, time.Minute)
		require.NoError(t, err)
		require.Equal(t, want, allowed, "attempt %d", i)
		require.EqualValues(t, i+1, count)
	}
	require.Equal(t, []string{"subhub:rate_limit:login:ip:1.2.3.4"}, mock.expired, "window set once")
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommands()}

	key := client.AccessSessionKey("access-1")
	require.NoError(t, client.Set(ctx, key, "token-value", 10*time.Minute))

	got, err := client.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "token-value", got)

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	require.ErrorIs(t, err, redis.Nil)
}

func TestCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	mock := newFakeCommands()
	client := &Client{cmd: mock}
	key := client.LockKey("cron")

	ok, err := client.SetNX(ctx, key, "worker-a/1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	deleted, err := client.CompareAndDelete(ctx, key, "worker-b/2")
	require.NoError(t, err)
	require.False(t, deleted)

	deleted, err = client.CompareAndDelete(ctx, key, "worker-a/1")
	require.NoError(t, err)
	require.True(t, deleted)
	require.Equal(t, 1, mock.evals, "script loaded after NOSCRIPT")
}

func TestUninitializedClientErrors(t *testing.T) {
	var client *Client
	require.ErrorIs(t, client.Ping(context.Background()), errNotInitialized)
	_, err := (&Client{}).Incr(context.Background(), "k")
	require.ErrorIs(t, err, errNotInitialized)
	require.NoError(t, client.Close())
}

func TestKeyspace(t *testing.T) {
	var keys Keyspace
	require.Equal(t, "subhub:idempotency:scope:id", keys.IdempotencyKey("scope", "id"))
	require.Equal(t, "subhub:rate_limit:scope", keys.RateLimitKey("scope"))
	require.Equal(t, "subhub:session:access:abc", keys.AccessSessionKey("abc"))
	require.Equal(t, "subhub:cache:catalog:v3:list", keys.CacheKey("catalog", "v3", "list"))
	require.Equal(t, "subhub:cache:catalog:list", keys.CacheKey("catalog", "", "list"))
	require.Equal(t, "subhub:lock:cron", keys.LockKey("cron"))
	require.Equal(t, "staging:lock:cron", Keyspace{Namespace: "staging"}.LockKey("cron"))
}

func TestOptions(t *testing.T) {
	opts, err := options(config.RedisConfig{URL: "redis://:pw@cache:6380/2", PoolSize: 20, DialTimeout: 3 * time.Second})
	require.NoError(t, err)
	require.Equal(t, "cache:6380", opts.Addr)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, 20, opts.PoolSize)
	require.Equal(t, 3*time.Second, opts.DialTimeout)

	opts, err = options(config.RedisConfig{Address: "localhost:6379", DB: 1})
	require.NoError(t, err)
	require.Equal(t, 1, opts.DB)

	_, err = options(config.RedisConfig{})
	require.Error(t, err)
}

// fakeCommands understands just enough redis for the client's primitives. EvalSha
// answers NOSCRIPT until Eval has been called once, like a cold server.
type fakeCommands struct {
	data    map[string]string
	counts  map[string]int64
	expired []string
	loaded  bool
	evals   int
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{data: map[string]string{}, counts: map[string]int64{}}
}

func (f *fakeCommands) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCommands) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expired = append(f.expired, key)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeCommands) compareAndDelete(keys []string, args []any) *redis.Cmd {
	if len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, errors.New("unexpected script arguments"))
	}
	if v, ok := f.data[keys[0]]; ok && v == fmt.Sprint(args[0]) {
		delete(f.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeCommands) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	f.loaded = true
	f.evals++
	return f.compareAndDelete(keys, args)
}

func (f *fakeCommands) EvalSha(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	if !f.loaded {
		return redis.NewCmdResult(nil, noScriptError{})
	}
	return f.compareAndDelete(keys, args)
}

func (f *fakeCommands) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.Eval(ctx, script, keys, args...)
}

func (f *fakeCommands) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	return f.EvalSha(ctx, sha1, keys, args...)
}

func (f *fakeCommands) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeCommands) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	f.loaded = true
	return redis.NewStringResult("sha", nil)
}

type noScriptError struct{}

func (noScriptError) Error() string { return "NOSCRIPT No matching script" }
func (noScriptError) RedisError()   {}
