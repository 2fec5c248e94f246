// Package intent implements the deferred "buy packages" action: a one-shot
// signal that survives navigation, and the entry-point router that sets it.
package intent

import (
	"context"

	"example.com/dashboard/internal/observability"
	"example.com/dashboard/internal/session"
)

// pendingKey is the session-store key holding the pending marker.
const pendingKey = "packages.intent.pending"

// Signal is a one-shot flag kept in session-scoped storage, so it survives
// full page navigations and the login redirect hop but not a fresh session.
// Signal itself is stateless; single consumption is enforced by the store,
// which makes it safe to construct a new Signal per request over the same
// session.
type Signal struct {
	store session.Store
}

// NewSignal binds a Signal to one session's store.
func NewSignal(store session.Store) *Signal {
	return &Signal{store: store}
}

// Set marks the flag pending. Setting an already pending flag is a no-op.
func (s *Signal) Set(ctx context.Context) error {
	if err := s.store.Set(ctx, pendingKey, "1"); err != nil {
		return err
	}
	observability.RecordIntentSet()
	return nil
}

// TakeIfPending clears the flag and reports whether it was pending. This is
// the only way to observe the flag, and the store removes it atomically, so
// each set-event is consumed at most once even when consumers race or run
// again on a remount.
func (s *Signal) TakeIfPending(ctx context.Context) (bool, error) {
	taken, err := s.store.Take(ctx, pendingKey)
	if err != nil || !taken {
		return false, err
	}
	observability.RecordIntentConsumed()
	return true, nil
}
