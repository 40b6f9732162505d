// internal/game/session.go
//
// Pure state transitions for a single session.
// Responsibilities:
//   - Construct fresh sessions in the active state.
//   - Append transcript messages and attempts.
//   - Apply the one-way finish transition and freeze elapsed time.
//   - Deep-copy sessions so stores never hand out aliased state.
//
// No storage, clock ownership, or I/O here; callers pass "now" explicitly.

package game

import (
	"errors"
	"time"
)

// ErrFinished is returned when a transition is applied to a session that
// has already left the active state.
var ErrFinished = errors.New("game already finished")

// NewSession constructs an active session with an empty transcript.
func NewSession(id, gameID string, now time.Time) *Session {
	return &Session{
		ID:        id,
		GameID:    gameID,
		StartedAt: now,
		Status:    StatusActive,
		Messages:  []Message{},
	}
}

// Active reports whether the session can still accept guesses.
func (s *Session) Active() bool { return s.Status == StatusActive }

// Append adds a transcript message. The transcript is append-only.
func (s *Session) Append(role Role, text string, now time.Time) {
	s.Messages = append(s.Messages, Message{Role: role, Text: text, CreatedAt: now})
}

// Finish moves the session to its terminal state. Finishing twice is an
// error; the first reason and finish time always win.
func (s *Session) Finish(reason FinishReason, now time.Time) error {
	if !s.Active() {
		return ErrFinished
	}
	s.Status = StatusFinished
	s.FinishReason = reason
	s.FinishedAt = now
	return nil
}

// Elapsed returns time since the session started, frozen at the finish
// instant once the session is terminal.
func (s *Session) Elapsed(now time.Time) time.Duration {
	if !s.FinishedAt.IsZero() {
		return s.FinishedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

// AttemptsLeft reports remaining attempts against maxAttempts, or -1 when
// the game is unlimited (maxAttempts <= 0).
func (s *Session) AttemptsLeft(maxAttempts int) int {
	if maxAttempts <= 0 {
		return -1
	}
	left := maxAttempts - s.AttemptCount
	if left < 0 {
		return 0
	}
	return left
}

// Clone returns a deep copy, including the transcript slice.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Messages = make([]Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	return &cp
}
