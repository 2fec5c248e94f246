// Package events defines payloads published for downstream consumers.
package events

import "time"

// ActivityCreated is emitted when a new activity record is accepted.
type ActivityCreated struct {
	ActivityID   string         `json:"activity_id"`
	UserID       string         `json:"user_id"`
	ActivityType string         `json:"activity_type"`
	Title        string         `json:"title"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}
