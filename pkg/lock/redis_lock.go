// Package lock serialises work across processes sharing a Redis.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNotHeld = errors.New("lock not held")

type DistributedLock interface {
	// Acquire reports whether the lock was taken. It does not wait.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release gives the lock back. It fails with ErrNotHeld when the lock
	// expired or belongs to someone else.
	Release(ctx context.Context, key string) error
}

// Deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a SET NX lock. Each instance carries a random token so it
// can only release locks it took itself.
type RedisLock struct {
	client redis.UniversalClient
	token  string
}

func NewRedisLock(client redis.UniversalClient) *RedisLock {
	return &RedisLock{client: client, token: newToken()}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, "lock:"+key, l.token, ttl).Result()
}

func (l *RedisLock) Release(ctx context.Context, key string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{"lock:" + key}, l.token).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
