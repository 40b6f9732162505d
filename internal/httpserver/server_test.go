package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pkazmier/guessquest/internal/catalog"
	"github.com/pkazmier/guessquest/internal/oracle"
	"github.com/pkazmier/guessquest/internal/session"
	"github.com/pkazmier/guessquest/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cat, err := catalog.New([]catalog.GameDefinition{
		{ID: "animal", DisplayName: "Mystery Animal", CanonicalAnswer: "panda"},
		{ID: "object", DisplayName: "Everyday Object", CanonicalAnswer: "umbrella", MaxAttempts: 3},
	})
	require.NoError(t, err)
	mgr := session.New(session.Config{
		Store:   store.NewMemory(),
		Catalog: cat,
		Oracle:  oracle.Static("warmer..."),
		TTL:     time.Hour,
	})
	ts := httptest.NewServer(New(mgr, cat).Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListGames(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/games")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	games := decode[[]gameInfo](t, resp)
	require.Len(t, games, 2)
	assert.Equal(t, "animal", games[0].ID)
	assert.Equal(t, -1, games[0].MaxAttempts, "unlimited rendered as -1")
	assert.Equal(t, 3, games[1].MaxAttempts)
}

func TestStartUnknownGame(t *testing.T) {
	ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/api/games/nope/session", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGuessFlow(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/games/animal/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	started := decode[startGameRes](t, resp)
	require.NotEmpty(t, started.SessionID)
	assert.Equal(t, "Mystery Animal", started.GameName)
	assert.Equal(t, -1, started.MaxAttempts)

	// Wrong guess: narrator hint, game continues.
	resp = postJSON(t, ts.URL+"/api/guess", guessReq{SessionID: started.SessionID, Guess: "a bear?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	wrong := decode[guessRes](t, resp)
	assert.False(t, wrong.IsCorrect)
	assert.False(t, wrong.GameOver)
	assert.Equal(t, "warmer...", wrong.Message)
	assert.Nil(t, wrong.ElapsedSeconds)

	// Correct guess: game over with elapsed time.
	resp = postJSON(t, ts.URL+"/api/guess", guessReq{SessionID: started.SessionID, Guess: "panda"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	right := decode[guessRes](t, resp)
	assert.True(t, right.IsCorrect)
	assert.True(t, right.GameOver)
	require.NotNil(t, right.ElapsedSeconds)
	assert.GreaterOrEqual(t, *right.ElapsedSeconds, 0.0)

	// Guessing after the finish is a conflict.
	resp = postJSON(t, ts.URL+"/api/guess", guessReq{SessionID: started.SessionID, Guess: "again"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// History shows the full transcript.
	resp2, err := http.Get(ts.URL + "/api/session/" + started.SessionID + "/history")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	hist := decode[historyRes](t, resp2)
	assert.Equal(t, 2, hist.Attempts)
	assert.True(t, hist.IsFinished)
	assert.Len(t, hist.Messages, 4)
}

func TestGuessUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/api/guess", guessReq{SessionID: "bogus", Guess: "panda"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGuessBadJSON(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/guess", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistoryUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/session/bogus/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketPingPong(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/games/animal/session", nil)
	started := decode[startGameRes](t, resp)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + started.SessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsEnvelope{Type: "ping"}))
	var reply wsEnvelope
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "pong", reply.Type)
}

func TestWebSocketUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/bogus"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminFlow(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	t.Setenv("ADMIN_PASSWORD_HASH", string(hash))
	t.Setenv("JWT_SECRET", "test_secret")

	ts := newTestServer(t)

	// Wrong password is rejected.
	resp := postJSON(t, ts.URL+"/admin/login", map[string]string{"password": "wrong"})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/admin/login", map[string]string{"password": "hunter22"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[map[string]any](t, resp)
	token, _ := login["token"].(string)
	require.NotEmpty(t, token)

	started := decode[startGameRes](t, postJSON(t, ts.URL+"/api/games/animal/session", nil))

	// Housekeeping without a token is rejected.
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodPost,
		ts.URL+"/admin/session/"+started.SessionID+"/finish", strings.NewReader(`{}`))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Force-finish with the token, then verify guesses are rejected.
	req, _ = http.NewRequestWithContext(context.Background(), http.MethodPost,
		ts.URL+"/admin/session/"+started.SessionID+"/finish",
		strings.NewReader(`{"reason":"attempts_exhausted"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/guess", guessReq{SessionID: started.SessionID, Guess: "panda"})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Delete the session; it is gone afterwards.
	req, _ = http.NewRequestWithContext(context.Background(), http.MethodDelete,
		ts.URL+"/admin/session/"+started.SessionID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(ts.URL + "/api/session/" + started.SessionID + "/history")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}
