// internal/game/types.go
//
// Core type definitions for the guessing game.
// Defines:
//   - Role: who authored a transcript message (player/narrator).
//   - Message: one append-only transcript entry.
//   - Status / FinishReason: session state machine vocabulary.
//   - Session: state for a single in-progress or finished game session.

package game

import "time"

// Role identifies the author of a transcript message.
type Role string

const (
	RolePlayer   Role = "player"
	RoleNarrator Role = "narrator"
)

// Message is one entry in a session transcript. Messages are append-only
// and ordered by creation; they are never edited or removed.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Status is the coarse session state. Finishing is a one-way door.
type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// FinishReason records why a session left the active state.
type FinishReason string

const (
	ReasonCorrect           FinishReason = "correct"
	ReasonAttemptsExhausted FinishReason = "attempts_exhausted"
)

// Session holds the state of a single game session.
type Session struct {
	ID           string       `json:"id"`     // opaque unique identifier
	GameID       string       `json:"gameId"` // references a catalog definition
	StartedAt    time.Time    `json:"startedAt"`
	FinishedAt   time.Time    `json:"finishedAt,omitempty"` // zero while active
	AttemptCount int          `json:"attemptCount"`
	Status       Status       `json:"status"`
	FinishReason FinishReason `json:"finishReason,omitempty"`
	Messages     []Message    `json:"messages"`
	Version      int64        `json:"version"` // optimistic-concurrency counter
}
