// Package domain defines the engagement feed's core types and contracts.
package domain

import (
	"context"
	"time"
)

// ActivityType enumerates the closed set of recordable user events.
type ActivityType string

const (
	ActivitySessionBooked    ActivityType = "session_booked"
	ActivitySessionCompleted ActivityType = "session_completed"
	ActivitySessionCancelled ActivityType = "session_cancelled"
	ActivityProfileUpdated   ActivityType = "profile_updated"
)

// Valid reports whether t belongs to the closed enumeration.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivitySessionBooked, ActivitySessionCompleted, ActivitySessionCancelled, ActivityProfileUpdated:
		return true
	}
	return false
}

// ActivityRecord is an immutable log entry describing a user-facing event.
// The store assigns ID and CreatedAt at insert time; records are never
// updated or deleted afterwards.
type ActivityRecord struct {
	ID          string
	UserID      string
	Type        ActivityType
	Title       string
	Description string
	Metadata    map[string]any
	CreatedAt   time.Time
}

// NewActivity carries the caller-supplied fields of a record to insert.
type NewActivity struct {
	UserID      string
	Type        ActivityType
	Title       string
	Description string
	Metadata    map[string]any
}

// Store abstracts the durable activity store. ListByUser returns at most
// limit records owned by userID, newest first, ties broken by insertion
// order. Insert persists exactly one record and returns it with the
// store-assigned ID and CreatedAt.
type Store interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]ActivityRecord, error)
	Insert(ctx context.Context, activity NewActivity) (*ActivityRecord, error)
}
