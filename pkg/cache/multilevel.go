package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"safe-core/pkg/logger"
)

// MultiLevelCache layers a local cache (L1) over a shared one (L2). L1
// entries live for half the requested ttl, and L2 hits are written back to
// L1 for at most a minute.
type MultiLevelCache struct {
	local  Cache
	remote Cache
}

func NewMultiLevelCache(local, remote Cache) *MultiLevelCache {
	return &MultiLevelCache{
		local:  local,
		remote: remote,
	}
}

func (m *MultiLevelCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := m.local.Set(ctx, key, value, ttl/2); err != nil {
		logger.Warn("l1 cache set failed", zap.String("key", key), zap.Error(err))
	}
	return m.remote.Set(ctx, key, value, ttl)
}

func (m *MultiLevelCache) Get(ctx context.Context, key string, target any) error {
	if err := m.local.Get(ctx, key, target); err == nil {
		return nil
	}

	err := m.remote.Get(ctx, key, target)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			logger.Warn("l2 cache get failed", zap.String("key", key), zap.Error(err))
		}
		return ErrMiss
	}
	if err := m.local.Set(ctx, key, target, time.Minute); err != nil {
		logger.Warn("l1 cache backfill failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (m *MultiLevelCache) Delete(ctx context.Context, key string) error {
	_ = m.local.Delete(ctx, key)
	return m.remote.Delete(ctx, key)
}
