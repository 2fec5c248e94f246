//go:build integration

package outbox

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

type stubRegistry struct {
	id int
}

func (s stubRegistry) EnsureSchema(context.Context, string, string) (int, error) {
	return s.id, nil
}

type flakyProducer struct {
	fail bool
	got  []kafka.Message
}

func (p *flakyProducer) WriteMessages(_ context.Context, _ string, msgs ...kafka.Message) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.got = append(p.got, msgs...)
	return nil
}

func TestDispatcherRedeliversAfterProducerFailure(t *testing.T) {
	ctx := context.Background()
	// A single-connection pool: a poll that left its transaction open would
	// starve every later poll, so repeated rounds double as a leak check.
	pool := openOutboxPool(t, ctx, 1)

	const payload = `{"activity_id": "act-1", "user_id": "user-1", "activity_type": "session_booked", "title": "Booked session", "created_at": "2026-08-31T10:00:00Z"}`
	_, err := pool.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
		VALUES ('activity', 'act-1', 'activity.created', 'activity_events', 'activity_events-value', 'user-1', $1, 'act-1:activity.created')`,
		payload)
	require.NoError(t, err)

	producer := &flakyProducer{fail: true}
	dispatcher := NewDispatcher(pool, producer, stubRegistry{id: 7}, time.Second, 10)

	// Failed deliveries leave the row unpublished and claimable again.
	for i := 0; i < 3; i++ {
		require.Error(t, dispatcher.processBatch(ctx))
		require.Equal(t, 1, countUnpublished(t, ctx, pool))
	}

	producer.fail = false
	require.NoError(t, dispatcher.processBatch(ctx))
	require.Equal(t, 0, countUnpublished(t, ctx, pool))

	require.Len(t, producer.got, 1)
	msg := producer.got[0]
	require.Equal(t, []byte("user-1"), msg.Key, "partitioned by user id")
	require.Equal(t, byte(0), msg.Value[0], "Confluent magic byte")
	require.Equal(t, uint32(7), binary.BigEndian.Uint32(msg.Value[1:5]))
	require.JSONEq(t, payload, string(msg.Value[5:]))

	// Nothing left to deliver; the empty poll must not wedge either.
	require.NoError(t, dispatcher.processBatch(ctx))
}

func countUnpublished(t *testing.T, ctx context.Context, pool *pgxpool.Pool) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&n))
	return n
}

func openOutboxPool(t *testing.T, ctx context.Context, maxConns int32) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("dashboard"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForOutboxDB(ctx, connStr))

	migration, err := os.ReadFile(migrationPath(t, "../../db/postgres/migrations/0001_init.up.sql"))
	require.NoError(t, err)

	cfg, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)
	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	_, err = pool.Exec(ctx, string(migration))
	require.NoError(t, err)
	return pool
}

func migrationPath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForOutboxDB(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
