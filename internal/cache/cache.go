// Package cache memoizes serialized search responses by normalized term.
// A failing backend is treated as a cache miss and never surfaces to the
// caller: the pipeline falls through to computing the answer directly.
package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"synonyms-api/internal/common/logging"
)

// Cache defines the interface for response cache operations. Get returns
// false for both a genuine miss and a backend failure.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// NormalizeTerm lowercases and trims a search input. The result is used
// consistently as both the storage-lookup key and the cache key.
func NormalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// RedisBackend is the minimal Redis surface the cache needs.
type RedisBackend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisCache stores entries in a shared Redis backend.
type RedisCache struct {
	backend   RedisBackend
	keyPrefix string
}

// NewRedisCache creates a Redis-backed response cache.
func NewRedisCache(backend RedisBackend, keyPrefix string) *RedisCache {
	return &RedisCache{
		backend:   backend,
		keyPrefix: keyPrefix,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.backend.Get(ctx, r.keyPrefix+key)
	if err != nil {
		return nil, false
	}
	return []byte(val), true
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.backend.Set(ctx, r.keyPrefix+key, value, ttl)
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.backend.Delete(ctx, r.keyPrefix+key)
}

// LocalCache wraps patrickmn/go-cache for in-process caching.
type LocalCache struct {
	cache *gocache.Cache
}

// NewLocalCache creates an in-process response cache.
func NewLocalCache(defaultTTL, cleanupInterval time.Duration) *LocalCache {
	return &LocalCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

func (l *LocalCache) Get(_ context.Context, key string) ([]byte, bool) {
	val, found := l.cache.Get(key)
	if !found {
		return nil, false
	}
	data, ok := val.([]byte)
	if !ok {
		logging.Warn("unexpected local cache entry type, dropping",
			logging.Field{Key: "key", Value: key},
		)
		l.cache.Delete(key)
		return nil, false
	}
	return data, true
}

func (l *LocalCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	l.cache.Set(key, value, ttl)
	return nil
}

func (l *LocalCache) Delete(_ context.Context, key string) error {
	l.cache.Delete(key)
	return nil
}

var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = (*LocalCache)(nil)
)
