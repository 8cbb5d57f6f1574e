// Package cache stores service lookups that rarely change, such as token
// metadata. Values round-trip through JSON in every backend so a hit looks
// the same whichever level served it.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

type Cache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Get decodes the stored value into target, a pointer.
	Get(ctx context.Context, key string, target any) error
	Delete(ctx context.Context, key string) error
}
