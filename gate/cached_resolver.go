package gate

import (
	"context"
	"sync"
	"time"
)

// CachedResolver wraps a ProfileResolver with TTL-based caching.
// This avoids hitting the database on every authorization check.
type CachedResolver[S comparable] struct {
	inner ProfileResolver[S]
	cache map[S]*cacheEntry
	mu    sync.RWMutex
	ttl   time.Duration
}

type cacheEntry struct {
	profile   Profile
	expiresAt time.Time
}

// NewCachedResolver wraps a resolver with caching.
// ttl is how long profiles are cached before re-fetching.
func NewCachedResolver[S comparable](inner ProfileResolver[S], ttl time.Duration) *CachedResolver[S] {
	return &CachedResolver[S]{
		inner: inner,
		cache: make(map[S]*cacheEntry),
		ttl:   ttl,
	}
}

// Resolve returns the profile for the given subject, using cache if available.
func (r *CachedResolver[S]) Resolve(ctx context.Context, subject S) (Profile, error) {
	r.mu.RLock()
	entry, ok := r.cache[subject]
	r.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.profile, nil
	}

	profile, err := r.inner.Resolve(ctx, subject)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[subject] = &cacheEntry{
		profile:   profile,
		expiresAt: time.Now().Add(r.ttl),
	}
	r.mu.Unlock()

	return profile, nil
}

// Invalidate removes a subject from the cache.
// Call this when a subject's role assignment changes.
func (r *CachedResolver[S]) Invalidate(subject S) {
	r.mu.Lock()
	delete(r.cache, subject)
	r.mu.Unlock()
}

// InvalidateAll clears the entire cache.
func (r *CachedResolver[S]) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[S]*cacheEntry)
	r.mu.Unlock()
}
