// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// This is a lightweight persistence layer for ephemeral game sessions,
// used in development/testing or when durability is not required.
//
// Characteristics:
//   - Stores deep copies keyed by session ID in a map with a per-entry
//     expiry deadline; entries are copied again on Get, so callers never
//     alias stored state.
//   - Concurrency-safe via RWMutex (concurrent reads allowed).
//   - Get filters by deadline itself, so correctness never depends on the
//     background reaper; the reaper only reclaims memory.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pkazmier/guessquest/internal/game"
)

// entry pairs a stored session with its expiry deadline.
type entry struct {
	session   *game.Session
	expiresAt time.Time
}

// Memory is a map-backed Store with TTL expiry.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]entry
	now      func() time.Time // swappable clock for tests
}

// NewMemory constructs an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]entry), now: time.Now}
}

// Put adds or replaces the session, resetting its expiry.
func (m *Memory) Put(ctx context.Context, s *game.Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = entry{session: s.Clone(), expiresAt: m.now().Add(ttl)}
	return nil
}

// Get looks up an unexpired session by ID. The TTL is not refreshed.
func (m *Memory) Get(ctx context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok || m.now().After(e.expiresAt) {
		return nil, ErrNotFound
	}
	return e.session.Clone(), nil
}

// CompareAndSwap replaces the session only if the stored version matches.
func (m *Memory) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, s *game.Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok || m.now().After(e.expiresAt) {
		return ErrNotFound
	}
	if e.session.Version != expectedVersion {
		return ErrVersionConflict
	}
	m.sessions[id] = entry{session: s.Clone(), expiresAt: m.now().Add(ttl)}
	return nil
}

// Delete removes the session immediately.
func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// StartReaper launches a background sweep that drops expired entries every
// interval, until ctx is cancelled.
func (m *Memory) StartReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := m.reap(); n > 0 {
					log.Debug().Int("expired", n).Msg("session reaper sweep")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// reap deletes expired entries and returns how many were dropped.
func (m *Memory) reap() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, e := range m.sessions {
		if now.After(e.expiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
