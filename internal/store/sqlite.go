// internal/store/sqlite.go
//
// SQLite implementation of the Store interface.
// Responsibilities:
//   - Open the database with safe defaults (WAL, busy timeout).
//   - Persist sessions as a flat row (transcript as a JSON column) with an
//     expires_at deadline for TTL semantics.
//   - Implement CompareAndSwap as a version-conditional UPDATE, inspecting
//     RowsAffected to distinguish a lost race from a vanished row.
//
// SQLite has no native key expiry, so reads filter by expires_at and the
// same StartReaper sweep used by the memory backend deletes stale rows.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/pkazmier/guessquest/internal/game"
)

// SQLite is a file-backed Store.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (creating if missing) the database at path and ensures
// the sessions schema exists.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	game_id       TEXT NOT NULL,
	started_at    INTEGER NOT NULL,
	finished_at   INTEGER NOT NULL DEFAULT 0,
	attempt_count INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	finish_reason TEXT NOT NULL DEFAULT '',
	messages      TEXT NOT NULL DEFAULT '[]',
	version       INTEGER NOT NULL DEFAULT 0,
	expires_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
`

// Close releases the underlying database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// Put inserts or fully replaces the session row, resetting its expiry.
func (s *SQLite) Put(ctx context.Context, sess *game.Session, ttl time.Duration) error {
	msgs, err := json.Marshal(sess.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, game_id, started_at, finished_at, attempt_count, status, finish_reason, messages, version, expires_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			game_id=excluded.game_id, started_at=excluded.started_at,
			finished_at=excluded.finished_at, attempt_count=excluded.attempt_count,
			status=excluded.status, finish_reason=excluded.finish_reason,
			messages=excluded.messages, version=excluded.version,
			expires_at=excluded.expires_at`,
		sess.ID, sess.GameID, sess.StartedAt.UnixNano(), finishedNanos(sess),
		sess.AttemptCount, string(sess.Status), string(sess.FinishReason),
		string(msgs), sess.Version, s.now().Add(ttl).UnixNano())
	if err != nil {
		return fmt.Errorf("%w: put: %v", ErrUnavailable, err)
	}
	return nil
}

// Get returns the unexpired session row for id, without touching expiry.
func (s *SQLite) Get(ctx context.Context, id string) (*game.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, game_id, started_at, finished_at, attempt_count, status, finish_reason, messages, version
		FROM sessions WHERE id = ? AND expires_at > ?`, id, s.now().UnixNano())
	return scanSession(row)
}

// CompareAndSwap updates the row only if its stored version still matches.
func (s *SQLite) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, sess *game.Session, ttl time.Duration) error {
	msgs, err := json.Marshal(sess.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	nowNanos := s.now().UnixNano()
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
			game_id=?, started_at=?, finished_at=?, attempt_count=?,
			status=?, finish_reason=?, messages=?, version=?, expires_at=?
		WHERE id=? AND version=? AND expires_at > ?`,
		sess.GameID, sess.StartedAt.UnixNano(), finishedNanos(sess),
		sess.AttemptCount, string(sess.Status), string(sess.FinishReason),
		string(msgs), sess.Version, s.now().Add(ttl).UnixNano(),
		id, expectedVersion, nowNanos)
	if err != nil {
		return fmt.Errorf("%w: cas: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: cas rows: %v", ErrUnavailable, err)
	}
	if n > 0 {
		return nil
	}
	// Zero rows: either the row is gone/expired or the version moved on.
	var cur int64
	err = s.db.QueryRowContext(ctx,
		`SELECT version FROM sessions WHERE id=? AND expires_at > ?`, id, nowNanos).Scan(&cur)
	switch {
	case err == sql.ErrNoRows:
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("%w: cas check: %v", ErrUnavailable, err)
	default:
		return ErrVersionConflict
	}
}

// Delete removes the row immediately, regardless of TTL.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id=?`, id); err != nil {
		return fmt.Errorf("%w: delete: %v", ErrUnavailable, err)
	}
	return nil
}

// StartReaper periodically deletes expired rows until ctx is cancelled.
func (s *SQLite) StartReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, s.now().UnixNano())
				if err != nil {
					log.Warn().Err(err).Msg("session reaper sweep failed")
					continue
				}
				if n, _ := res.RowsAffected(); n > 0 {
					log.Debug().Int64("expired", n).Msg("session reaper sweep")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// scanSession converts a sessions row into a game.Session.
func scanSession(row *sql.Row) (*game.Session, error) {
	var (
		sess           game.Session
		started, done  int64
		status, reason string
		messages       string
	)
	err := row.Scan(&sess.ID, &sess.GameID, &started, &done, &sess.AttemptCount,
		&status, &reason, &messages, &sess.Version)
	switch {
	case err == sql.ErrNoRows:
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("%w: get: %v", ErrUnavailable, err)
	}
	sess.StartedAt = time.Unix(0, started)
	if done != 0 {
		sess.FinishedAt = time.Unix(0, done)
	}
	sess.Status = game.Status(status)
	sess.FinishReason = game.FinishReason(reason)
	if err := json.Unmarshal([]byte(messages), &sess.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	return &sess, nil
}

// finishedNanos encodes the finish time, zero meaning "still active".
func finishedNanos(sess *game.Session) int64 {
	if sess.FinishedAt.IsZero() {
		return 0
	}
	return sess.FinishedAt.UnixNano()
}
