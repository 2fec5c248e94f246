package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_values (
	session_id TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (session_id, key)
);
CREATE INDEX IF NOT EXISTS session_values_updated_idx ON session_values (updated_at);
`

// DB is a SQLite-backed session store. Each browser session gets a scoped
// Store view via Session; rows outlive any single request or process and
// are removed when the session is dropped or purged.
type DB struct {
	db *sqlx.DB
}

// Open opens (or creates) the session database at dbPath, enables WAL mode,
// and ensures the schema exists.
func Open(dbPath string) (*DB, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating session schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error { return d.db.Close() }

// Session returns a Store scoped to sessionID.
func (d *DB) Session(sessionID string) Store {
	return &scoped{db: d.db, sessionID: sessionID}
}

// DropSession removes every value belonging to sessionID. A fresh session
// on the same device starts with nothing left over from the previous user.
func (d *DB) DropSession(ctx context.Context, sessionID string) error {
	_, err := d.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE session_id = ?`, sessionID)
	return err
}

// PurgeIdle deletes values of sessions whose most recent write is older
// than ttl, returning the number of rows removed.
func (d *DB) PurgeIdle(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl).UnixNano()
	res, err := d.db.ExecContext(ctx, `
		DELETE FROM session_values WHERE session_id IN (
			SELECT session_id FROM session_values
			GROUP BY session_id
			HAVING MAX(updated_at) < ?
		)`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scoped struct {
	db        *sqlx.DB
	sessionID string
}

func (s *scoped) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		`SELECT value FROM session_values WHERE session_id = ? AND key = ?`,
		s.sessionID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_values (session_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id, key)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.sessionID, key, value, time.Now().UnixNano())
	return err
}

// Take deletes the row and reports whether one existed. The single DELETE
// makes consumption atomic: of several racing callers, only the one whose
// delete touched a row sees true.
func (s *scoped) Take(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE session_id = ? AND key = ?`,
		s.sessionID, key)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *scoped) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE session_id = ? AND key = ?`,
		s.sessionID, key)
	return err
}
