// Package feed implements the per-user activity feed: a memoized read path
// and a write path that invalidates it.
package feed

import (
	"context"
	"sync"

	"example.com/dashboard/internal/domain"
	"example.com/dashboard/internal/observability"
)

type cacheKey struct {
	userID string
	limit  int
}

// Cache memoizes bounded activity windows per (userID, limit) key. Entries
// are dropped, never updated in place, when an invalidation for the user is
// published on the bus; the next read re-queries the store.
type Cache struct {
	store domain.Store

	mu      sync.Mutex
	entries map[cacheKey][]domain.ActivityRecord
	gens    map[string]uint64
}

// NewCache builds a Cache subscribed to bus invalidations.
func NewCache(store domain.Store, bus *Bus) *Cache {
	c := &Cache{
		store:   store,
		entries: make(map[cacheKey][]domain.ActivityRecord),
		gens:    make(map[string]uint64),
	}
	bus.Subscribe(c.invalidate)
	return c
}

// Read returns up to limit records owned by userID, newest first. An empty
// userID means nobody is signed in: the result is empty and the store is
// not contacted. Results are memoized per exact (userID, limit) key until
// the next invalidation for that user; a failed query is reported as a
// *domain.QueryError and caches nothing. The returned slice is the
// caller's own.
func (c *Cache) Read(ctx context.Context, userID string, limit int) ([]domain.ActivityRecord, error) {
	if userID == "" {
		return []domain.ActivityRecord{}, nil
	}
	if limit <= 0 {
		return nil, domain.ErrInvalidLimit
	}

	key := cacheKey{userID: userID, limit: limit}

	c.mu.Lock()
	if cached, ok := c.entries[key]; ok {
		// Hand out a copy; a caller mutating its result must not corrupt
		// the entry served to later readers.
		out := make([]domain.ActivityRecord, len(cached))
		copy(out, cached)
		c.mu.Unlock()
		observability.RecordCacheHit()
		return out, nil
	}
	gen := c.gens[userID]
	c.mu.Unlock()

	observability.RecordCacheMiss()

	records, err := c.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, &domain.QueryError{Err: err}
	}
	if ctx.Err() != nil {
		// The caller went away mid-flight; a cancelled read must not
		// populate the cache.
		return records, nil
	}

	c.mu.Lock()
	// Memoize only if no invalidation for this user landed while the query
	// was in flight; a pre-append result must not outlive the invalidation
	// that followed the append.
	if c.gens[userID] == gen {
		entry := make([]domain.ActivityRecord, len(records))
		copy(entry, records)
		c.entries[key] = entry
	}
	c.mu.Unlock()

	return records, nil
}

// invalidate drops every entry for userID, whatever its limit.
func (c *Cache) invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[userID]++
	for key := range c.entries {
		if key.userID == userID {
			delete(c.entries, key)
		}
	}
	observability.RecordInvalidation()
}
