package intent

import (
	"context"
	"sync"

	"example.com/dashboard/internal/identity"
)

// Destination names a navigation target of the deferred flow.
type Destination string

const (
	// DestinationDashboard is where the pending intent is consumed.
	DestinationDashboard Destination = "/dashboard"
	// DestinationLogin resumes to the dashboard after authentication.
	DestinationLogin Destination = "/login?next=/dashboard"
)

// Decision is the outcome of one Enter call.
type Decision string

const (
	DecisionDashboard  Decision = "dashboard"
	DecisionLogin      Decision = "login"
	DecisionWait       Decision = "wait"
	DecisionSuperseded Decision = "superseded"
)

// Navigator performs a navigation. Implementations belong to the transport
// layer: an HTTP redirect, a test recorder.
type Navigator interface {
	NavigateTo(dest Destination)
}

// Router is the entry point of the deferred purchase flow. Enter records
// the intent first in every case, then routes by identity: straight to the
// dashboard when signed in, through login otherwise. While authentication
// is still resolving it decides nothing, so a soon-to-be-authenticated user
// is never bounced to login prematurely.
type Router struct {
	signal   *Signal
	provider identity.Provider
	nav      Navigator

	mu  sync.Mutex
	seq uint64
}

// NewRouter constructs a Router.
func NewRouter(signal *Signal, provider identity.Provider, nav Navigator) *Router {
	return &Router{signal: signal, provider: provider, nav: nav}
}

// Enter runs one invocation of the flow. Rapid re-invocation is safe: the
// signal set is idempotent, and only the latest call navigates, so a stale
// call can never override a newer decision.
func (r *Router) Enter(ctx context.Context) (Decision, error) {
	// The dashboard must learn about the intent whichever way we route.
	if err := r.signal.Set(ctx); err != nil {
		return DecisionWait, err
	}

	r.mu.Lock()
	r.seq++
	call := r.seq
	r.mu.Unlock()

	state := r.provider.Current(ctx)
	if !state.Resolved {
		return DecisionWait, nil
	}

	dest, decision := DestinationLogin, DecisionLogin
	if state.UserID != "" {
		dest, decision = DestinationDashboard, DecisionDashboard
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if call != r.seq {
		return DecisionSuperseded, nil
	}
	r.nav.NavigateTo(dest)
	return decision, nil
}
