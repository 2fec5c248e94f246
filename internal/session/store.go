// Package session provides session-scoped durable key-value storage. Values
// live exactly as long as the browser session that owns them: they survive
// page navigations, redirect hops, and process restarts, and disappear when
// the session is dropped or purged.
package session

import "context"

// Store is the key-value contract a single session sees. Take removes key
// and reports whether it was present; the removal is atomic in the store,
// so when callers race over the same key at most one of them observes true
// per stored value.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Take(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
}
