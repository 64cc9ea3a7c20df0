package quota

import (
	"context"
	"fmt"
	"time"
)

// RedisBackend is the minimal Redis surface the quota store needs.
type RedisBackend interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, error)
	Decrement(ctx context.Context, key string) error
	Delete(ctx context.Context, key string) error
	Health() error
}

// RedisStore keeps window counters in a shared Redis backend so the quota
// is enforced across all server instances.
type RedisStore struct {
	backend RedisBackend
}

// NewRedisStore creates a Redis-backed quota store.
func NewRedisStore(backend RedisBackend) (*RedisStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("redis backend is required for redis quota store")
	}
	return &RedisStore{backend: backend}, nil
}

func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	return s.backend.IncrementWindow(ctx, key, window)
}

func (s *RedisStore) Decrement(ctx context.Context, key string) error {
	return s.backend.Decrement(ctx, key)
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Health reports whether the shared backend is reachable.
func (s *RedisStore) Health() error {
	return s.backend.Health()
}

var _ Store = (*RedisStore)(nil)
