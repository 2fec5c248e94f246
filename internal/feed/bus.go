package feed

import "sync"

// Bus fans out cache invalidations keyed by user id. Publish runs every
// handler synchronously on the caller's goroutine, so an append's
// invalidation is fully applied before the append reports success.
type Bus struct {
	mu   sync.Mutex
	subs []func(userID string)
}

// NewBus constructs an empty Bus.
func NewBus() *Bus { return &Bus{} }

// Subscribe registers fn to run on every published invalidation.
func (b *Bus) Subscribe(fn func(userID string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish notifies all subscribers that userID's activity set changed.
func (b *Bus) Publish(userID string) {
	b.mu.Lock()
	subs := make([]func(string), len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, fn := range subs {
		fn(userID)
	}
}
