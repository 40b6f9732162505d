// internal/httpserver/server.go
//
// HTTP wiring for the guessing-game backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", GET /api/games.
//   - Gameplay endpoints: POST /api/games/{gameID}/session, POST /api/guess,
//     GET /api/session/{sessionID}/history, GET /ws/{sessionID}.
//   - Admin housekeeping endpoints behind a JWT (admin.go).
//   - Stable error mapping: client mistakes get 404/409 with opaque JSON
//     bodies; contention and store outages get 503 "try again" responses
//     that never expose backend details.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/pkazmier/guessquest/internal/catalog"
	"github.com/pkazmier/guessquest/internal/game"
	"github.com/pkazmier/guessquest/internal/session"
	"github.com/pkazmier/guessquest/internal/store"
)

// Server bundles the router, session manager, and game catalog.
type Server struct {
	r   *chi.Mux
	mgr *session.Manager
	cat *catalog.Catalog
}

// New constructs a Server, installs middleware, and registers routes.
func New(mgr *session.Manager, cat *catalog.Catalog) *Server {
	s := &Server{r: chi.NewRouter(), mgr: mgr, cat: cat}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(15 * time.Second))
	s.r.Use(jsonContentType)
	s.r.Use(corsFromEnv)

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"guessquest","endpoints":["/health","GET /api/games","POST /api/games/{gameID}/session","POST /api/guess","GET /api/session/{sessionID}/history"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// --- gameplay ---
	s.r.Get("/api/games", s.handleListGames)
	s.r.Post("/api/games/{gameID}/session", s.handleStartGame)
	s.r.Post("/api/guess", s.handleGuess)
	s.r.Get("/api/session/{sessionID}/history", s.handleHistory)
	s.r.Get("/ws/{sessionID}", s.handleWS)

	// --- admin housekeeping ---
	s.mountAdminRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ GAME ---------------------------------------

// gameInfo is one row of the games listing.
type gameInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MaxAttempts int    `json:"maxAttempts"` // -1 when unlimited
}

// handleListGames returns the playable catalog.
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	defs := s.cat.List()
	out := make([]gameInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, gameInfo{ID: d.ID, Name: d.DisplayName, MaxAttempts: apiAttempts(d.MaxAttempts)})
	}
	_ = json.NewEncoder(w).Encode(out)
}

// startGameRes is the payload for POST /api/games/{gameID}/session.
type startGameRes struct {
	SessionID   string `json:"sessionId"`
	GameName    string `json:"gameName"`
	MaxAttempts int    `json:"maxAttempts"` // -1 when unlimited
}

// handleStartGame creates a new session for the requested game.
func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	info, err := s.mgr.Create(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(startGameRes{
		SessionID:   info.SessionID,
		GameName:    info.DisplayName,
		MaxAttempts: apiAttempts(info.MaxAttempts),
	})
}

// guessReq/Res payloads for POST /api/guess.
type guessReq struct {
	SessionID string `json:"sessionId"`
	Guess     string `json:"guess"`
}
type guessRes struct {
	Message        string   `json:"message"`
	IsCorrect      bool     `json:"isCorrect"`
	GameOver       bool     `json:"gameOver"`
	AttemptsLeft   int      `json:"attemptsLeft"`
	ElapsedSeconds *float64 `json:"elapsedSeconds,omitempty"` // only on a correct finish
}

// handleGuess submits one guess to the session state machine.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	out, err := s.mgr.RecordGuess(r.Context(), req.SessionID, req.Guess)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	res := guessRes{
		Message:      out.Message,
		IsCorrect:    out.IsCorrect,
		GameOver:     out.GameOver,
		AttemptsLeft: out.AttemptsLeft,
	}
	if out.IsCorrect {
		secs := out.Elapsed.Seconds()
		res.ElapsedSeconds = &secs
	}
	_ = json.NewEncoder(w).Encode(res)
}

// historyRes is the payload for GET /api/session/{sessionID}/history.
type historyRes struct {
	Messages       []game.Message `json:"messages"`
	Attempts       int            `json:"attempts"`
	IsFinished     bool           `json:"isFinished"`
	ElapsedSeconds float64        `json:"elapsedSeconds"`
}

// handleHistory returns the session transcript.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.mgr.History(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(historyRes{
		Messages:       h.Messages,
		Attempts:       h.AttemptCount,
		IsFinished:     h.IsFinished,
		ElapsedSeconds: h.Elapsed.Seconds(),
	})
}

// ------------------------------ errors -------------------------------------

// writeErr maps manager errors onto stable HTTP responses. Server-side
// failures are logged in full but surface as an opaque "try again".
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrUnknownGame):
		http.Error(w, `{"error":"unknown_game"}`, http.StatusNotFound)
	case errors.Is(err, session.ErrNotFound):
		http.Error(w, `{"error":"session_not_found"}`, http.StatusNotFound)
	case errors.Is(err, session.ErrFinished):
		http.Error(w, `{"error":"game_finished"}`, http.StatusConflict)
	case errors.Is(err, session.ErrContention), errors.Is(err, store.ErrUnavailable):
		log.Error().Err(err).Msg("transient session failure")
		http.Error(w, `{"error":"try_again"}`, http.StatusServiceUnavailable)
	default:
		log.Error().Err(err).Msg("unhandled session error")
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
	}
}

// apiAttempts renders the unlimited sentinel as -1 for clients.
func apiAttempts(max int) int {
	if max <= catalog.UnlimitedAttempts {
		return -1
	}
	return max
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
