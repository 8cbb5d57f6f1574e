package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLock is an in-process DistributedLock for single-instance runs and
// tests.
type MemoryLock struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

func NewMemoryLock() *MemoryLock {
	return &MemoryLock{held: make(map[string]time.Time), clock: time.Now}
}

func (l *MemoryLock) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return false, nil
	}
	l.held[key] = now.Add(ttl)
	return true, nil
}

func (l *MemoryLock) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	exp, ok := l.held[key]
	delete(l.held, key)
	if !ok || !l.clock().Before(exp) {
		return ErrNotHeld
	}
	return nil
}
