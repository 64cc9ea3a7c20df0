package cache

import (
	"fmt"
	"time"
)

// Type represents the cache backend type
type Type string

const (
	TypeLocal Type = "local"
	TypeRedis Type = "redis"
)

// Config holds cache configuration
type Config struct {
	Type            Type          `json:"type"`
	TTL             time.Duration `json:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval,omitempty"`
	KeyPrefix       string        `json:"key_prefix,omitempty"`
	RedisBackend    RedisBackend  `json:"-"`
}

// DefaultConfig returns default cache configuration
func DefaultConfig() Config {
	return Config{
		Type:            TypeLocal,
		TTL:             time.Hour,
		CleanupInterval: 10 * time.Minute,
		KeyPrefix:       "search:",
	}
}

// New creates a cache instance based on configuration. Selection happens
// once at startup; call sites depend only on the Cache interface.
func New(config Config) (Cache, error) {
	switch config.Type {
	case TypeLocal:
		return NewLocalCache(config.TTL, config.CleanupInterval), nil

	case TypeRedis:
		if config.RedisBackend == nil {
			return nil, fmt.Errorf("redis backend required for redis cache")
		}
		return NewRedisCache(config.RedisBackend, config.KeyPrefix), nil

	default:
		return nil, fmt.Errorf("unknown cache type: %s", config.Type)
	}
}
