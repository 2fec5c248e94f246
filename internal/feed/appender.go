package feed

import (
	"context"
	"strings"

	"example.com/dashboard/internal/domain"
	"example.com/dashboard/internal/observability"
)

// AppendInput captures the caller-supplied fields of a new activity.
type AppendInput struct {
	UserID      string
	Type        domain.ActivityType
	Title       string
	Description string
	Metadata    map[string]any
}

// Appender validates and persists new activity records, publishing a cache
// invalidation for the owning user once the store confirms the insert.
type Appender struct {
	store domain.Store
	bus   *Bus
}

// NewAppender constructs an Appender.
func NewAppender(store domain.Store, bus *Bus) *Appender {
	return &Appender{store: store, bus: bus}
}

// Append inserts exactly one record for input.UserID. Missing identity and
// validation failures are reported before any store call; on store failure
// no invalidation is published and no partial record exists.
func (a *Appender) Append(ctx context.Context, input AppendInput) (*domain.ActivityRecord, error) {
	if input.UserID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	if !input.Type.Valid() {
		return nil, domain.ErrInvalidActivityType
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, domain.ErrEmptyTitle
	}
	if input.Metadata == nil {
		input.Metadata = map[string]any{}
	}

	record, err := a.store.Insert(ctx, domain.NewActivity{
		UserID:      input.UserID,
		Type:        input.Type,
		Title:       input.Title,
		Description: input.Description,
		Metadata:    input.Metadata,
	})
	if err != nil {
		return nil, &domain.WriteError{Err: err}
	}

	// Invalidate only after the store acknowledged the insert, so a reader
	// cannot race ahead of a failed write.
	a.bus.Publish(record.UserID)
	observability.RecordActivityAppended()

	return record, nil
}
