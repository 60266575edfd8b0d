package store

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisKV(t *testing.T) (*RedisKV, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return NewRedisKV(c), mr
}

func exerciseKV(t *testing.T, kv KV) {
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "report:summary:1", "a", 0))
	require.NoError(t, kv.Set(ctx, "report:summary:2", "b", time.Minute))
	require.NoError(t, kv.Set(ctx, "session:x", "c", time.Minute))

	v, err := kv.Get(ctx, "report:summary:2")
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	keys, err := kv.ScanKeys(ctx, "report:*")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"report:summary:1", "report:summary:2"}, keys)

	require.NoError(t, DeletePattern(ctx, kv, "report:*"))
	_, err = kv.Get(ctx, "report:summary:1")
	assert.ErrorIs(t, err, ErrMiss)

	v, err = kv.Get(ctx, "session:x")
	require.NoError(t, err)
	assert.Equal(t, "c", v)

	require.NoError(t, kv.Delete(ctx))
}

func TestRedisKV(t *testing.T) {
	kv, _ := newRedisKV(t)
	exerciseKV(t, kv)
}

func TestRedisKV_TTL(t *testing.T) {
	kv, mr := newRedisKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "session:t", "1", time.Hour))
	mr.FastForward(2 * time.Hour)

	_, err := kv.Get(ctx, "session:t")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemoryKV())
}

func TestMemoryKV_TTL(t *testing.T) {
	kv := NewMemoryKV()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "session:t", "1", time.Hour))
	now = now.Add(59 * time.Minute)
	_, err := kv.Get(ctx, "session:t")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = kv.Get(ctx, "session:t")
	assert.ErrorIs(t, err, ErrMiss)
}
