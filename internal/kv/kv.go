package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key has no live value.
var ErrNotFound = errors.New("kv: key not found")

// Store is the key-value collaborator used for throttle state. Counters are
// incremented atomically per key; values expire on their own TTL.
type Store interface {
	GetCounter(ctx context.Context, key string) (int64, error)
	IncrementCounter(ctx context.Context, key string, ttl time.Duration) (int64, error)
	SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
