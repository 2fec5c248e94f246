package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when a write is attempted with no identity.
	ErrNotAuthenticated = errors.New("no authenticated user")
	// ErrInvalidActivityType is returned for a type outside the closed enumeration.
	ErrInvalidActivityType = errors.New("invalid activity type")
	// ErrEmptyTitle is returned when an activity title is blank.
	ErrEmptyTitle = errors.New("activity title must not be empty")
	// ErrInvalidLimit is returned when a read is requested with a non-positive limit.
	ErrInvalidLimit = errors.New("limit must be positive")
)

// QueryError reports a failed store read with the underlying cause attached.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("activity store query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// WriteError reports a failed store insert with the underlying cause attached.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("activity store write failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
