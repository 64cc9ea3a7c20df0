package quota

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps window counters in-process. It mirrors the Redis
// store's semantics (counter created with the window as TTL, expiry
// deletes the window entirely) but only sees this instance's traffic, so
// under horizontal scaling each instance enforces the limit independently.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates an in-process quota store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	// Add only succeeds when no unexpired counter exists; it anchors the
	// window to this first request. Two racing first requests may both
	// observe count=1, which the policy tolerates.
	_ = s.cache.Add(key, int64(0), window)

	count, err := s.cache.IncrementInt64(key, 1)
	if err != nil {
		// The counter expired between Add and Increment; start a new window.
		s.cache.Set(key, int64(1), window)
		return 1, nil
	}
	return count, nil
}

func (s *MemoryStore) Decrement(_ context.Context, key string) error {
	_, err := s.cache.DecrementInt64(key, 1)
	if err != nil {
		// Nothing to compensate; the window already expired.
		return nil
	}
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

var _ Store = (*MemoryStore)(nil)
