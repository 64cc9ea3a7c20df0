// Package quota maintains per-identity fixed-window request counters and
// decides whether a request fits the caller's budget. Counters live in a
// shared Redis backend when one is configured so the limit holds
// fleet-wide; without Redis, or when Redis fails at call time, an
// in-process store with the same window semantics takes over. That
// fallback is per-instance only and is a deliberate degradation, not an
// error path.
package quota

import (
	"context"
	"time"
)

// Store is the capability interface for window counters. Increment is
// atomic within a backend: it bumps the counter for key and returns the
// resulting count, anchoring the window's expiry to the increment that
// created the counter.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	Decrement(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// Config holds quota policy settings.
type Config struct {
	Enabled bool          `json:"enabled"`
	Max     int           `json:"max"`    // requests allowed per window
	Window  time.Duration `json:"window"` // window length, rolling from first request
}

// DefaultConfig returns the default quota policy.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Max:     500,
		Window:  24 * time.Hour,
	}
}
