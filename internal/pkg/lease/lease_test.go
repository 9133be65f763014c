package lease

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	release, ok, err := l.TryAcquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryAcquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be rejected")

	require.NoError(t, release(ctx))
	assert.ErrorIs(t, release(ctx), ErrNotOwned)

	_, ok, err = l.TryAcquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "free again after release")
}

func TestLocalExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocal()
	l.now = func() time.Time { return now }

	stale, ok, _ := l.TryAcquire(ctx, "sweep", time.Second)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = l.TryAcquire(ctx, "sweep", time.Second)
	assert.True(t, ok, "expired lease can be taken over")
	assert.ErrorIs(t, stale(ctx), ErrNotOwned)
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available")
	}

	l := NewRedisLocker(client)
	key := "test-" + time.Now().Format(time.RFC3339Nano)

	release, ok, err := l.TryAcquire(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryAcquire(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, release(ctx))
	assert.ErrorIs(t, release(ctx), ErrNotOwned)
}
