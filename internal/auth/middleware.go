package auth

import (
	"errors"
	"net/http"
	"strings"
)

// Skipper selects requests for special handling.
type Skipper func(r *http.Request) bool

// Middleware provides HTTP middleware for bearer-token validation. Requests
// matched by Skip bypass validation entirely; requests matched by Optional
// are admitted anonymously when no token is present (the packages entry
// point is reachable before authentication completes), while a token that
// is present but invalid is still rejected.
type Middleware struct {
	Config   Config
	Skip     Skipper
	Optional Skipper
}

// NewMiddleware constructs a middleware with optional skippers.
func NewMiddleware(cfg Config, skip, optional Skipper) Middleware {
	return Middleware{Config: cfg, Skip: skip, Optional: optional}
}

// Wrap attaches authentication handling to an http.Handler.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skip != nil && m.Skip(r) {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.parseRequest(r)
		if err != nil {
			if errors.Is(err, ErrMissingToken) && m.Optional != nil && m.Optional(r) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		ctx := WithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) parseRequest(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingToken
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return nil, ErrInvalidToken
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return Parse(token, m.Config)
}
