// Package postgres provides the pgx-backed activity store.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/dashboard/internal/domain"
	"example.com/dashboard/internal/events"
	"example.com/dashboard/internal/observability"
)

const (
	topicActivityEvents   = "activity_events"
	subjectActivityEvents = "activity_events-value"
)

// Repository implements domain.Store on Postgres and records outbox events
// alongside inserts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByUser returns up to limit records owned by userID, newest first.
// Ties on created_at fall back to the insert sequence.
func (r *Repository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.ActivityRecord, error) {
	const query = `SELECT activity_id, user_id, activity_type, title, COALESCE(description, ''), metadata, created_at
        FROM activities WHERE user_id=$1
        ORDER BY created_at DESC, seq DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.ActivityRecord, 0, limit)
	for rows.Next() {
		var rec domain.ActivityRecord
		var metadata []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Type, &rec.Title, &rec.Description, &metadata, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for activity %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Insert persists one record and its activity.created outbox event in a
// single transaction, assigning the record id and creation timestamp.
func (r *Repository) Insert(ctx context.Context, activity domain.NewActivity) (*domain.ActivityRecord, error) {
	record := domain.ActivityRecord{
		ID:          uuid.NewString(),
		UserID:      activity.UserID,
		Type:        activity.Type,
		Title:       activity.Title,
		Description: activity.Description,
		Metadata:    activity.Metadata,
		CreatedAt:   time.Now().UTC(),
	}
	if record.Metadata == nil {
		record.Metadata = map[string]any{}
	}

	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const insert = `INSERT INTO activities (activity_id, user_id, activity_type, title, description, metadata, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	if _, err := tx.Exec(ctx, insert,
		record.ID,
		record.UserID,
		string(record.Type),
		record.Title,
		nullIfEmpty(record.Description),
		metadata,
		record.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := insertOutbox(ctx, tx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	observability.RecordActivityPersisted(record.CreatedAt)
	return &record, nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, record domain.ActivityRecord) error {
	payload, err := json.Marshal(events.ActivityCreated{
		ActivityID:   record.ID,
		UserID:       record.UserID,
		ActivityType: string(record.Type),
		Title:        record.Title,
		Metadata:     record.Metadata,
		CreatedAt:    record.CreatedAt,
	})
	if err != nil {
		return err
	}

	dedupeKey := fmt.Sprintf("%s:activity.created", record.ID)

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		"activity",
		record.ID,
		"activity.created",
		topicActivityEvents,
		subjectActivityEvents,
		record.UserID,
		payload,
		dedupeKey,
	)
	return err
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
