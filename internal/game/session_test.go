package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionStartsActive(t *testing.T) {
	now := time.Now()
	s := NewSession("sid", "animal", now)
	assert.True(t, s.Active())
	assert.Equal(t, 0, s.AttemptCount)
	assert.Empty(t, s.Messages)
	assert.Equal(t, int64(0), s.Version)
	assert.True(t, s.FinishedAt.IsZero())
}

func TestFinishIsOneWay(t *testing.T) {
	now := time.Now()
	s := NewSession("sid", "animal", now)

	require.NoError(t, s.Finish(ReasonCorrect, now.Add(time.Minute)))
	assert.False(t, s.Active())
	assert.Equal(t, ReasonCorrect, s.FinishReason)

	// The second finish fails and the first reason/time stick.
	err := s.Finish(ReasonAttemptsExhausted, now.Add(2*time.Minute))
	assert.ErrorIs(t, err, ErrFinished)
	assert.Equal(t, ReasonCorrect, s.FinishReason)
	assert.Equal(t, now.Add(time.Minute), s.FinishedAt)
}

func TestElapsedFreezesAtFinish(t *testing.T) {
	start := time.Now()
	s := NewSession("sid", "animal", start)

	assert.Equal(t, 30*time.Second, s.Elapsed(start.Add(30*time.Second)))

	require.NoError(t, s.Finish(ReasonCorrect, start.Add(time.Minute)))
	// Later reads report the frozen duration.
	assert.Equal(t, time.Minute, s.Elapsed(start.Add(time.Hour)))
}

func TestAttemptsLeft(t *testing.T) {
	s := NewSession("sid", "animal", time.Now())
	s.AttemptCount = 2

	assert.Equal(t, -1, s.AttemptsLeft(0), "unlimited sentinel")
	assert.Equal(t, -1, s.AttemptsLeft(-5))
	assert.Equal(t, 1, s.AttemptsLeft(3))
	assert.Equal(t, 0, s.AttemptsLeft(2))
	assert.Equal(t, 0, s.AttemptsLeft(1), "never negative")
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	s := NewSession("sid", "animal", now)
	s.Append(RolePlayer, "a bear?", now)

	cp := s.Clone()
	cp.Append(RoleNarrator, "warm", now)
	cp.AttemptCount = 9

	assert.Len(t, s.Messages, 1, "original transcript untouched")
	assert.Equal(t, 0, s.AttemptCount)
	assert.Len(t, cp.Messages, 2)
}
