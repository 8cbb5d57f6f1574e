package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLock(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLock()

	ok, err := l.Acquire(ctx, "safe:0xabc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Acquire(ctx, "safe:0xabc", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held lock cannot be taken twice")

	ok, _ = l.Acquire(ctx, "safe:0xdef", time.Minute)
	assert.True(t, ok, "keys are independent")

	require.NoError(t, l.Release(ctx, "safe:0xabc"))
	assert.ErrorIs(t, l.Release(ctx, "safe:0xabc"), ErrNotHeld)

	ok, _ = l.Acquire(ctx, "safe:0xabc", time.Minute)
	assert.True(t, ok)
}

func TestMemoryLockExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLock()
	l.clock = func() time.Time { return now }

	ok, _ := l.Acquire(ctx, "k", time.Second)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	ok, _ = l.Acquire(ctx, "k", time.Second)
	assert.True(t, ok, "expired lock is free again")

	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, l.Release(ctx, "k"), ErrNotHeld)
}

func TestTokensDiffer(t *testing.T) {
	a := NewRedisLock(nil)
	b := NewRedisLock(nil)
	assert.Len(t, a.token, 32)
	assert.NotEqual(t, a.token, b.token)
}
