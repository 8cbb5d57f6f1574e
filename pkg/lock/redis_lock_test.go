package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisForTest connects to SAFE_TEST_REDIS_ADDR (default localhost:6379) and
// skips when nothing answers.
func redisForTest(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("SAFE_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Skipping redis test: redis not running? " + err.Error())
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLock(t *testing.T) {
	client := redisForTest(t)
	ctx := context.Background()
	key := "test:" + newToken()

	a := NewRedisLock(client)
	b := NewRedisLock(client)

	ok, err := a.Acquire(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, b.Release(ctx, key), ErrNotHeld, "only the holder may release")
	require.NoError(t, a.Release(ctx, key))

	ok, err = b.Acquire(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Release(ctx, key))
}
