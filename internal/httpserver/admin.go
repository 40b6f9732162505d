// internal/httpserver/admin.go
//
// Admin housekeeping surface: force-finish or delete a session.
// Gated by an HS256 JWT issued from POST /admin/login against a bcrypt
// hash in ADMIN_PASSWORD_HASH. These routes exist for operations, not
// gameplay; players never need a token.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pkazmier/guessquest/internal/game"
)

// adminTokenTTL bounds how long an issued admin token is honored.
const adminTokenTTL = 12 * time.Hour

// ctxAdminKey marks a request as admin-authenticated.
type ctxAdminKey struct{}

// mountAdminRoutes registers the login and the gated housekeeping routes.
func (s *Server) mountAdminRoutes() {
	s.r.Post("/admin/login", s.handleAdminLogin)
	s.r.With(s.requireAdmin()).Post("/admin/session/{sessionID}/finish", s.handleAdminFinish)
	s.r.With(s.requireAdmin()).Delete("/admin/session/{sessionID}", s.handleAdminDelete)
}

// handleAdminLogin verifies the admin password and issues a token.
func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	hash := getEnv("ADMIN_PASSWORD_HASH", "")
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(body.Password)) != nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	exp := time.Now().Add(adminTokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
		"exp":  exp.Unix(),
		"iat":  time.Now().Unix(),
	})
	ss, err := t.SignedString([]byte(getEnv("JWT_SECRET", "dev_secret_change_me")))
	if err != nil {
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"token": ss, "expiresAt": exp.Unix()})
}

// handleAdminFinish force-finishes a session with the supplied reason.
func (s *Server) handleAdminFinish(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	reason := game.FinishReason(body.Reason)
	if reason != game.ReasonCorrect && reason != game.ReasonAttemptsExhausted {
		reason = game.ReasonAttemptsExhausted
	}
	if err := s.mgr.Finish(r.Context(), chi.URLParam(r, "sessionID"), reason); err != nil {
		s.writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// handleAdminDelete removes a session immediately.
func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// requireAdmin enforces a valid admin JWT via bearer token.
func (s *Server) requireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(getEnv("JWT_SECRET", "dev_secret_change_me")), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
				return
			}
			if role, _ := claims["role"].(string); role != "admin" {
				http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxAdminKey{}, true)))
		})
	}
}

// bearerToken extracts a bearer token from the Authorization header.
func bearerToken(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}
