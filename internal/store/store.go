// internal/store/store.go
//
// Persistence interface for game sessions.
// Implementations: memory.go (volatile map) and sqlite.go (durable file DB).
// Both provide TTL-bounded entries and an atomic conditional update, which
// is the only mutation path the session manager uses.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/pkazmier/guessquest/internal/game"
)

var (
	// ErrNotFound means the session is absent or its TTL has lapsed; the
	// two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("session not found")
	// ErrVersionConflict means a CompareAndSwap lost a race; callers
	// retry from a fresh read.
	ErrVersionConflict = errors.New("session version conflict")
	// ErrUnavailable wraps backend outages (I/O or driver failures).
	ErrUnavailable = errors.New("session store unavailable")
)

// Store is the persistence contract for session records.
type Store interface {
	// Put inserts or fully replaces the record under s.ID and resets its
	// expiry to ttl from now. Idempotent.
	Put(ctx context.Context, s *game.Session, ttl time.Duration) error

	// Get returns the current record if present and unexpired. Reading
	// does not refresh the TTL.
	Get(ctx context.Context, id string) (*game.Session, error)

	// CompareAndSwap replaces the record only if the stored version
	// equals expectedVersion, resetting the expiry. Returns
	// ErrVersionConflict on mismatch and ErrNotFound if the record is
	// absent or expired.
	CompareAndSwap(ctx context.Context, id string, expectedVersion int64, s *game.Session, ttl time.Duration) error

	// Delete removes the record immediately, regardless of TTL.
	Delete(ctx context.Context, id string) error
}
