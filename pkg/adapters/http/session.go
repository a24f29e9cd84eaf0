package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/input"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// sessionID resolves the conversation key: the X-Session-ID header, then the
// session cookie, else a fresh id that is set as the cookie.
// A malformed header is the caller's mistake and fails the request; a
// malformed cookie is replaced.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
		if err := input.ValidateSessionID(id); err != nil {
			return "", fmt.Errorf("%w: %s: %w", domain.ErrMalformedRequest, SessionHeader, err)
		}
		return id, nil
	}
	if c, err := r.Cookie(s.cookie); err == nil && c.Value != "" {
		if input.ValidateSessionID(c.Value) == nil {
			return c.Value, nil
		}
		s.logger.Debug("replacing malformed session cookie", "size", len(c.Value))
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}

// pathSessionID reads the {id} route parameter.
func pathSessionID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if err := input.ValidateSessionID(id); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrMalformedRequest, err)
	}
	return id, nil
}
