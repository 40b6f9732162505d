// internal/session/manager.go
//
// Session orchestration for the guessing game.
// Responsibilities:
//   - Create, read, and delete sessions through the Store.
//   - Drive the guess state machine: attempt counting, answer matching,
//     finish transitions, and the oracle hint exchange.
//   - Serialize concurrent mutations of one session with the store's
//     CompareAndSwap plus a bounded retry loop.
//
// No lock is held across the oracle call; a slow hint on one session never
// blocks requests for another. The record is only "locked" logically via
// the version comparison at the final write.

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pkazmier/guessquest/internal/catalog"
	"github.com/pkazmier/guessquest/internal/game"
	"github.com/pkazmier/guessquest/internal/oracle"
	"github.com/pkazmier/guessquest/internal/store"
)

var (
	// ErrUnknownGame means the requested game id is not in the catalog.
	ErrUnknownGame = errors.New("unknown game")
	// ErrNotFound means the session id is invalid or its TTL has lapsed.
	ErrNotFound = errors.New("session not found")
	// ErrFinished means a mutation reached a session in a terminal state.
	ErrFinished = game.ErrFinished
	// ErrContention means the CAS retry budget was exhausted.
	ErrContention = errors.New("session contention exhausted")
)

// casRetries bounds how often a guess restarts after losing a CAS race.
const casRetries = 5

// fallbackHint is the narrator reply when the oracle fails or times out.
const fallbackHint = "Sorry, I can't answer that right now. Please try again."

// Config carries the manager's collaborators and tuning knobs.
type Config struct {
	Store         store.Store
	Catalog       *catalog.Catalog
	Oracle        oracle.Oracle
	TTL           time.Duration // sliding session lifetime; reset on every write
	OracleTimeout time.Duration // per-hint deadline; zero selects a default
}

// Manager owns the session state machine and its invariants.
type Manager struct {
	store         store.Store
	catalog       *catalog.Catalog
	oracle        oracle.Oracle
	ttl           time.Duration
	oracleTimeout time.Duration
	now           func() time.Time // swappable clock for tests
}

// New constructs a Manager from cfg.
func New(cfg Config) *Manager {
	ot := cfg.OracleTimeout
	if ot <= 0 {
		ot = 10 * time.Second
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{
		store:         cfg.Store,
		catalog:       cfg.Catalog,
		oracle:        cfg.Oracle,
		ttl:           ttl,
		oracleTimeout: ot,
		now:           time.Now,
	}
}

// StartInfo is returned to the front-end when a session is created.
type StartInfo struct {
	SessionID   string
	DisplayName string
	MaxAttempts int // catalog.UnlimitedAttempts when uncapped
}

// Outcome describes the result of one guess submission.
type Outcome struct {
	Message      string
	IsCorrect    bool
	GameOver     bool
	AttemptsLeft int           // -1 when the game is unlimited
	Elapsed      time.Duration // populated only on a correct finish
}

// History is the transcript view of a session.
type History struct {
	Messages     []game.Message
	AttemptCount int
	IsFinished   bool
	Elapsed      time.Duration
}

// Create allocates a fresh session for gameID and persists it.
func (m *Manager) Create(ctx context.Context, gameID string) (*StartInfo, error) {
	def, err := m.catalog.Lookup(gameID)
	if err != nil {
		return nil, ErrUnknownGame
	}
	sess := game.NewSession(uuid.NewString(), def.ID, m.now())
	if err := m.store.Put(ctx, sess, m.ttl); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	log.Info().Str("session", sess.ID).Str("game", def.ID).Msg("session created")
	return &StartInfo{SessionID: sess.ID, DisplayName: def.DisplayName, MaxAttempts: def.MaxAttempts}, nil
}

// Get is a read-only passthrough; it does not refresh the TTL.
func (m *Manager) Get(ctx context.Context, id string) (*game.Session, error) {
	sess, err := m.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return sess, err
}

// RecordGuess applies one guess to the session, atomically with respect to
// other guesses on the same id. On a CAS conflict the whole read-evaluate-
// write cycle restarts from a fresh read, so concurrent guesses never lose
// an attempt increment.
func (m *Manager) RecordGuess(ctx context.Context, id, guess string) (*Outcome, error) {
	for i := 0; i < casRetries; i++ {
		sess, err := m.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !sess.Active() {
			return nil, ErrFinished
		}
		def, err := m.catalog.Lookup(sess.GameID)
		if err != nil {
			// Catalog is load-time constant; a dangling game id would
			// mean the store was seeded from a different catalog.
			return nil, ErrUnknownGame
		}

		expected := sess.Version
		now := m.now()
		sess.AttemptCount++
		sess.Append(game.RolePlayer, guess, now)

		var out Outcome
		switch {
		case game.Matches(guess, def.CanonicalAnswer):
			_ = sess.Finish(game.ReasonCorrect, now)
			elapsed := sess.Elapsed(now)
			msg := fmt.Sprintf("🎉 You got it! The answer is %q. Time: %.1fs", def.CanonicalAnswer, elapsed.Seconds())
			sess.Append(game.RoleNarrator, msg, now)
			out = Outcome{
				Message:      msg,
				IsCorrect:    true,
				GameOver:     true,
				AttemptsLeft: sess.AttemptsLeft(def.MaxAttempts),
				Elapsed:      elapsed,
			}
		case !def.Unlimited() && sess.AttemptCount >= def.MaxAttempts:
			_ = sess.Finish(game.ReasonAttemptsExhausted, now)
			msg := fmt.Sprintf("💔 Out of attempts! The answer was %q.", def.CanonicalAnswer)
			sess.Append(game.RoleNarrator, msg, now)
			out = Outcome{Message: msg, GameOver: true, AttemptsLeft: 0}
		default:
			hint := m.askOracle(ctx, guess, def)
			sess.Append(game.RoleNarrator, hint, m.now())
			out = Outcome{Message: hint, AttemptsLeft: sess.AttemptsLeft(def.MaxAttempts)}
		}

		sess.Version = expected + 1
		err = m.store.CompareAndSwap(ctx, id, expected, sess, m.ttl)
		switch {
		case err == nil:
			return &out, nil
		case errors.Is(err, store.ErrVersionConflict):
			log.Debug().Str("session", id).Int("retry", i+1).Msg("guess lost CAS race, retrying")
			continue
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrNotFound
		default:
			return nil, fmt.Errorf("record guess: %w", err)
		}
	}
	return nil, ErrContention
}

// askOracle fetches a hint under a bounded deadline. Failures downgrade to
// the fallback message, and the canonical answer is masked out of whatever
// the oracle returns before it reaches the transcript.
func (m *Manager) askOracle(ctx context.Context, guess string, def catalog.GameDefinition) string {
	ctx, cancel := context.WithTimeout(ctx, m.oracleTimeout)
	defer cancel()
	hint, err := m.oracle.Hint(ctx, guess, def)
	if err != nil {
		log.Warn().Err(err).Str("game", def.ID).Msg("oracle failed, using fallback hint")
		return fallbackHint
	}
	return game.MaskAnswer(hint, def.CanonicalAnswer)
}

// Finish is the administrative finish override. It appends no transcript
// message and uses the same CAS discipline as RecordGuess.
func (m *Manager) Finish(ctx context.Context, id string, reason game.FinishReason) error {
	for i := 0; i < casRetries; i++ {
		sess, err := m.Get(ctx, id)
		if err != nil {
			return err
		}
		expected := sess.Version
		if err := sess.Finish(reason, m.now()); err != nil {
			return err
		}
		sess.Version = expected + 1
		err = m.store.CompareAndSwap(ctx, id, expected, sess, m.ttl)
		switch {
		case err == nil:
			log.Info().Str("session", id).Str("reason", string(reason)).Msg("session finished by override")
			return nil
		case errors.Is(err, store.ErrVersionConflict):
			continue
		case errors.Is(err, store.ErrNotFound):
			return ErrNotFound
		default:
			return fmt.Errorf("finish session: %w", err)
		}
	}
	return ErrContention
}

// Delete removes the session immediately. Housekeeping only.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Elapsed reports time since the session started, frozen at finish time
// for terminal sessions.
func (m *Manager) Elapsed(ctx context.Context, id string) (time.Duration, error) {
	sess, err := m.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return sess.Elapsed(m.now()), nil
}

// History returns the transcript view of the session.
func (m *Manager) History(ctx context.Context, id string) (*History, error) {
	sess, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &History{
		Messages:     sess.Messages,
		AttemptCount: sess.AttemptCount,
		IsFinished:   !sess.Active(),
		Elapsed:      sess.Elapsed(m.now()),
	}, nil
}
