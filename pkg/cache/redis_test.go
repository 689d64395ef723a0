package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s, err := NewRedisStore(WithRedisClient(client), WithRedisPrefix("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStorePutGet(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	fetched := time.Date(2022, 2, 7, 17, 0, 0, 0, time.UTC)
	require.NoError(t, s.Put(ctx, "k", point{Close: 3, N: 1}, Meta{FetchTime: fetched}, nil))
	assert.True(t, mr.Exists("test:k"), "keys are prefixed")

	got, meta, err := GetTyped[point](ctx, s, "k")
	require.NoError(t, err)
	assert.Equal(t, point{Close: 3, N: 1}, got)
	assert.True(t, meta.FetchTime.Equal(fetched))

	ttl, err := s.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Less(t, ttl, time.Duration(0), "no hard expiry")

	_, err = s.Get(ctx, "missing", nil)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStoreHardExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.Put(ctx, "k", 1, Meta{}, &exp))
	ttl, err := s.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	mr.FastForward(2 * time.Hour)
	_, err = s.Get(ctx, "k", nil)
	assert.ErrorIs(t, err, ErrCacheMiss)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, s.Put(ctx, "old", 1, Meta{}, &past))
	assert.False(t, mr.Exists("test:old"))
}

func TestRedisStoreDeleteAndLock(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	require.NoError(t, s.Put(ctx, "a", 1, Meta{}, nil))
	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx))
	_, err := s.Get(ctx, "a", nil)
	assert.ErrorIs(t, err, ErrCacheMiss)

	ok, err := s.TryLock(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.TryLock(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.Unlock(ctx, "a"))
	ok, _ = s.TryLock(ctx, "a", time.Minute)
	assert.True(t, ok)
}

func TestRedisStoreUnlockKeepsPeerLock(t *testing.T) {
	ctx := context.Background()
	a, mr := newRedisStore(t)
	b, err := NewRedisStore(WithRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})), WithRedisPrefix("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	ok, err := a.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	ok, err = b.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "expired lock is free")

	require.NoError(t, a.Unlock(ctx, "k"))
	assert.True(t, mr.Exists("test:lock:k"), "stale holder must not release the peer lock")

	require.NoError(t, b.Unlock(ctx, "k"))
	assert.False(t, mr.Exists("test:lock:k"))
}

func TestRedisStorePingFailure(t *testing.T) {
	_, err := NewRedisStore(WithRedisAddr("127.0.0.1:1"), WithRedisDialTimeout(200*time.Millisecond))
	assert.Error(t, err)
}
