// Package identity abstracts the authenticated-identity collaborator.
package identity

import "context"

// State is a snapshot of the current identity. Resolved reports whether the
// authentication check has completed; UserID is empty for anonymous callers
// and while the check is still in flight.
type State struct {
	UserID   string
	Resolved bool
}

// Authenticated reports whether a signed-in user is known.
func (s State) Authenticated() bool {
	return s.Resolved && s.UserID != ""
}

// Provider yields the current identity state.
type Provider interface {
	Current(ctx context.Context) State
}

// Static is a fixed-state Provider used by the HTTP layer (which resolves
// identity per request) and by tests.
type Static struct {
	State State
}

func (s Static) Current(context.Context) State { return s.State }
