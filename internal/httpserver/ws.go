// internal/httpserver/ws.go
//
// Per-session WebSocket channel. Front-ends use it for liveness checks
// while a hint request is in flight: {"type":"ping"} gets {"type":"pong"}.

package httpserver

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		allowed := os.Getenv("CLIENT_ORIGIN")
		return origin == "" || allowed == "" || origin == allowed
	},
}

// wsEnvelope is the minimal message frame for the session channel.
type wsEnvelope struct {
	Type string `json:"type"`
}

// handleWS upgrades the connection for an existing session and answers
// pings until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if _, err := s.mgr.Get(r.Context(), id); err != nil {
		s.writeErr(w, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", id).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		var msg wsEnvelope
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("session", id).Msg("websocket closed")
			}
			return
		}
		if msg.Type == "ping" {
			if err := conn.WriteJSON(wsEnvelope{Type: "pong"}); err != nil {
				return
			}
		}
	}
}
