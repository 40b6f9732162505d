package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkazmier/guessquest/internal/game"
)

// fakeClock lets tests step time without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMemory() (*Memory, *fakeClock) {
	m := NewMemory()
	clk := &fakeClock{t: time.Now()}
	m.now = clk.now
	return m, clk
}

func TestMemoryPutGet(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	sess := game.NewSession("sid", "animal", time.Now())
	sess.Append(game.RolePlayer, "a bear?", time.Now())
	require.NoError(t, m.Put(ctx, sess, time.Minute))

	got, err := m.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Len(t, got.Messages, 1)

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// Stored state must never be aliased by callers: mutating what Get returned
// (or what was passed to Put) cannot change the store's copy.
func TestMemoryCopies(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	sess := game.NewSession("sid", "animal", time.Now())
	require.NoError(t, m.Put(ctx, sess, time.Minute))
	sess.AttemptCount = 99

	got, err := m.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, 0, got.AttemptCount)

	got.Append(game.RolePlayer, "tamper", time.Now())
	again, err := m.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Empty(t, again.Messages)
}

func TestMemoryTTLExpiry(t *testing.T) {
	m, clk := newTestMemory()
	ctx := context.Background()

	sess := game.NewSession("sid", "animal", clk.now())
	require.NoError(t, m.Put(ctx, sess, time.Minute))

	clk.advance(59 * time.Second)
	_, err := m.Get(ctx, "sid")
	require.NoError(t, err)

	clk.advance(2 * time.Second)
	_, err = m.Get(ctx, "sid")
	assert.ErrorIs(t, err, ErrNotFound, "expired is indistinguishable from absent")
}

// A write slides the expiry forward; a read does not.
func TestMemoryTTLSlidesOnWrite(t *testing.T) {
	m, clk := newTestMemory()
	ctx := context.Background()

	sess := game.NewSession("sid", "animal", clk.now())
	require.NoError(t, m.Put(ctx, sess, time.Minute))

	clk.advance(50 * time.Second)
	_, err := m.Get(ctx, "sid") // read must not refresh
	require.NoError(t, err)

	next := sess.Clone()
	next.Version = 1
	require.NoError(t, m.CompareAndSwap(ctx, "sid", 0, next, time.Minute))

	clk.advance(50 * time.Second) // 100s after Put, 50s after CAS
	_, err = m.Get(ctx, "sid")
	require.NoError(t, err, "CAS reset the deadline")

	clk.advance(11 * time.Second)
	_, err = m.Get(ctx, "sid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCompareAndSwap(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	sess := game.NewSession("sid", "animal", time.Now())
	require.NoError(t, m.Put(ctx, sess, time.Minute))

	next := sess.Clone()
	next.AttemptCount = 1
	next.Version = 1
	require.NoError(t, m.CompareAndSwap(ctx, "sid", 0, next, time.Minute))

	// Same expected version again: the first swap bumped it, so this loses.
	stale := sess.Clone()
	stale.Version = 1
	err := m.CompareAndSwap(ctx, "sid", 0, stale, time.Minute)
	assert.ErrorIs(t, err, ErrVersionConflict)

	err = m.CompareAndSwap(ctx, "missing", 0, next, time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDelete(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	sess := game.NewSession("sid", "animal", time.Now())
	require.NoError(t, m.Put(ctx, sess, time.Minute))
	require.NoError(t, m.Delete(ctx, "sid"))

	_, err := m.Get(ctx, "sid")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, m.Delete(ctx, "sid"), "delete is idempotent")
}

func TestMemoryReap(t *testing.T) {
	m, clk := newTestMemory()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, game.NewSession("a", "animal", clk.now()), time.Minute))
	require.NoError(t, m.Put(ctx, game.NewSession("b", "animal", clk.now()), time.Hour))

	clk.advance(2 * time.Minute)
	assert.Equal(t, 1, m.reap())

	_, err := m.Get(ctx, "b")
	assert.NoError(t, err)
}
