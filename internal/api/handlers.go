// Package api exposes HTTP handlers for the dashboard service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"example.com/dashboard/internal/auth"
	"example.com/dashboard/internal/domain"
	"example.com/dashboard/internal/feed"
	"example.com/dashboard/internal/identity"
	"example.com/dashboard/internal/intent"
	"example.com/dashboard/internal/session"
)

const (
	sessionCookie = "dashboard_session"
	defaultLimit  = 20
	maxLimit      = 100
)

// SessionStores yields the session-scoped store for a session id.
type SessionStores interface {
	Session(sessionID string) session.Store
}

// Handler coordinates HTTP requests with the feed and intent components.
type Handler struct {
	cache    *feed.Cache
	appender *feed.Appender
	sessions SessionStores
}

// NewHandler builds a Handler.
func NewHandler(cache *feed.Cache, appender *feed.Appender, sessions SessionStores) *Handler {
	return &Handler{cache: cache, appender: appender, sessions: sessions}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/feed", h.feed)
	mux.HandleFunc("/v1/activities", h.activities)
	mux.HandleFunc("/v1/packages/intent", h.enterPackagesFlow)
	mux.HandleFunc("/v1/packages/intent/consume", h.consumePackagesIntent)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeActivitiesRead) && !claims.HasScope(auth.ScopeActivitiesWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope activities:read required")
		return
	}

	userID := claims.Subject
	if requested := r.URL.Query().Get("user_id"); requested != "" && requested != claims.Subject {
		// Reading another user's feed is an admin-only operation.
		if !claims.IsAdmin() {
			writeError(w, http.StatusForbidden, "forbidden", "admin scope required to read other feeds")
			return
		}
		userID = requested
	}

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > maxLimit {
				parsed = maxLimit
			}
			limit = parsed
		}
	}

	records, err := h.cache.Read(r.Context(), userID, limit)
	if err != nil {
		// A failed read is reported as an error state, never an empty list.
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]ActivityView, 0, len(records))
	for _, rec := range records {
		items = append(items, toActivityView(rec))
	}
	writeJSON(w, http.StatusOK, FeedResponse{Items: items})
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeActivitiesWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope activities:write required")
		return
	}

	var req CreateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	record, err := h.appender.Append(r.Context(), feed.AppendInput{
		UserID:      claims.Subject,
		Type:        domain.ActivityType(req.ActivityType),
		Title:       req.Title,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotAuthenticated):
			writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		case errors.Is(err, domain.ErrInvalidActivityType), errors.Is(err, domain.ErrEmptyTitle):
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, toActivityView(*record))
}

func (h *Handler) enterPackagesFlow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	sessionID := h.ensureSession(w, r)
	signal := intent.NewSignal(h.sessions.Session(sessionID))

	nav := &capturedNavigation{}
	router := intent.NewRouter(signal, identity.Static{State: identityState(r)}, nav)

	decision, err := router.Enter(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	if nav.dest != "" {
		w.Header().Set("Location", string(nav.dest))
	}
	writeJSON(w, http.StatusOK, EnterPackagesResponse{
		Decision:    string(decision),
		Destination: string(nav.dest),
	})
}

func (h *Handler) consumePackagesIntent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	// Consuming requires a resolved, signed-in identity: a transient
	// unauthenticated render must not burn the one-shot signal.
	if _, ok := auth.FromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	sessionID := h.ensureSession(w, r)
	signal := intent.NewSignal(h.sessions.Session(sessionID))

	pending, err := signal.TakeIfPending(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ConsumeIntentResponse{Pending: pending})
}

// ensureSession returns the request's session id, minting a cookie when the
// browser does not carry one yet.
func (h *Handler) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	sessionID := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessionID
}

// identityState resolves the caller's identity for routing. Claims mean a
// signed-in user; the X-Auth-Pending header lets the web client flag that
// its token refresh is still in flight, in which case no routing decision
// may be made yet.
func identityState(r *http.Request) identity.State {
	if claims, ok := auth.FromContext(r.Context()); ok {
		return identity.State{UserID: claims.Subject, Resolved: true}
	}
	if r.Header.Get("X-Auth-Pending") == "1" {
		return identity.State{}
	}
	return identity.State{Resolved: true}
}

type capturedNavigation struct {
	dest intent.Destination
}

func (c *capturedNavigation) NavigateTo(dest intent.Destination) { c.dest = dest }

// CreateActivityRequest is the payload for POST /v1/activities.
type CreateActivityRequest struct {
	ActivityType string         `json:"activity_type"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ActivityView exposes one activity record.
type ActivityView struct {
	ActivityID   string         `json:"activity_id"`
	UserID       string         `json:"user_id"`
	ActivityType string         `json:"activity_type"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

// FeedResponse packages feed results.
type FeedResponse struct {
	Items []ActivityView `json:"items"`
}

// EnterPackagesResponse describes the routing outcome of the deferred flow.
type EnterPackagesResponse struct {
	Decision    string `json:"decision"`
	Destination string `json:"destination,omitempty"`
}

// ConsumeIntentResponse reports whether a deferred intent was pending.
type ConsumeIntentResponse struct {
	Pending bool `json:"pending"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toActivityView(rec domain.ActivityRecord) ActivityView {
	return ActivityView{
		ActivityID:   rec.ID,
		UserID:       rec.UserID,
		ActivityType: string(rec.Type),
		Title:        rec.Title,
		Description:  rec.Description,
		Metadata:     rec.Metadata,
		CreatedAt:    rec.CreatedAt,
	}
}
