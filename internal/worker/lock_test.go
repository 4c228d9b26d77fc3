package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLock(t *testing.T) (*RedisLock, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	lock, err := NewRedisLock(client, "test:lock", time.Hour)
	require.NoError(t, err)
	return lock, client, mr
}

func TestRedisLock_AcquireRelease(t *testing.T) {
	lock, client, _ := setupLock(t)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, lock.Release(ctx))
	exists, err := client.Exists(ctx, "test:lock").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)
}

func TestRedisLock_SecondAcquirerBlocked(t *testing.T) {
	lock, client, _ := setupLock(t)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	other, err := NewRedisLock(client, "test:lock", time.Hour)
	require.NoError(t, err)
	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLock_ReleaseIgnoresForeignOwner(t *testing.T) {
	lock, client, mr := setupLock(t)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// Simulate expiry plus takeover by another replica.
	mr.FastForward(2 * time.Hour)
	require.NoError(t, client.Set(ctx, "test:lock", "someone-else", time.Hour).Err())

	require.NoError(t, lock.Release(ctx))
	value, err := client.Get(ctx, "test:lock").Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", value, "release must not steal another owner's lock")
}

func TestRedisLock_ReleaseWithoutAcquire(t *testing.T) {
	lock, _, _ := setupLock(t)

	assert.NoError(t, lock.Release(context.Background()))
}
