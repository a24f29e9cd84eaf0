package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/relay"
	"github.com/aretw0/relay/internal/logging"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/input"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
)

const (
	// SessionHeader carries the session id in requests and responses.
	SessionHeader = "X-Session-ID"

	// DefaultCookieName holds the session id for browser clients.
	DefaultCookieName = "relay_session"

	maxBodyBytes = 1 << 20
)

// Controller is the part of the router the transport drives.
type Controller interface {
	HandleTurn(ctx context.Context, req domain.TurnRequest) (*domain.TurnOutcome, error)
	State(ctx context.Context, sessionID string) (*domain.ControlState, error)
	Reset(ctx context.Context, sessionID string) error
}

// Server serves the router over HTTP.
type Server struct {
	ctrl     Controller
	streams  *StreamManager
	doc      *openapi3.T
	logger   *slog.Logger
	cookie   string
	static   string
	validate bool
	metrics  http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithStaticDir serves a single-page app from dir for unmatched GET paths.
func WithStaticDir(dir string) Option {
	return func(s *Server) {
		s.static = dir
	}
}

// WithRequestValidation checks requests against the OpenAPI document.
func WithRequestValidation(enabled bool) Option {
	return func(s *Server) {
		s.validate = enabled
	}
}

// WithCookieName overrides the session cookie name.
func WithCookieName(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.cookie = name
		}
	}
}

// WithMetricsHandler exposes h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithStreams enables GET /sessions/{id}/events backed by sm.
// sm must also receive the controller's lifecycle events (see StreamManager.Hooks).
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.streams = sm
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer builds the server and validates the embedded OpenAPI document.
func NewServer(ctrl Controller, opts ...Option) (*Server, error) {
	doc, err := LoadSpec()
	if err != nil {
		return nil, err
	}
	s := &Server{
		ctrl:   ctrl,
		doc:    doc,
		logger: logging.NewNop(),
		cookie: DefaultCookieName,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewHandler creates the HTTP handler for a controller.
func NewHandler(ctrl Controller, opts ...Option) (http.Handler, error) {
	s, err := NewServer(ctrl, opts...)
	if err != nil {
		return nil, err
	}
	return s.Handler()
}

// Handler assembles the routes.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewRouter()

	if s.validate {
		mw, err := s.requestValidator(s.doc)
		if err != nil {
			return nil, err
		}
		r.Use(mw)
	}

	r.Post("/input", s.PostInput)
	r.Get("/sessions/{id}", s.GetSession)
	r.Delete("/sessions/{id}", s.DeleteSession)
	if s.streams != nil {
		r.Get("/sessions/{id}/events", s.SubscribeSession)
	}
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	if s.static != "" {
		r.Get("/*", spaHandler(s.static))
	}

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+SessionHeader)
		w.Header().Set("Access-Control-Expose-Headers", SessionHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type inputRequest struct {
	UserInput    *string `json:"user_input"`
	LanguageCode string  `json:"language_code,omitempty"`
}

type inputResponse struct {
	Response string `json:"response"`
}

// PostInput handles POST /input.
func (s *Server) PostInput(w http.ResponseWriter, r *http.Request) {
	var body inputRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid request body: %w", domain.ErrMalformedRequest, err))
		return
	}
	if body.UserInput == nil {
		s.writeError(w, r, fmt.Errorf("%w: user_input is required", domain.ErrMalformedRequest))
		return
	}

	text, err := input.Sanitize(*body.UserInput)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", domain.ErrMalformedRequest, err))
		return
	}

	sessionID, err := s.sessionID(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set(SessionHeader, sessionID)

	out, err := s.ctrl.HandleTurn(r.Context(), domain.TurnRequest{
		SessionID:    sessionID,
		Utterance:    text,
		LanguageCode: body.LanguageCode,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, inputResponse{Response: out.Reply})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathSessionID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.ctrl.State(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathSessionID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ctrl.Reset(r.Context(), sessionID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.doc != nil && s.doc.Info != nil {
		apiVersion = s.doc.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "relay-http",
		"version":     relay.Version,
		"api_version": apiVersion,
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMalformedRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrClassificationUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTurnProcessingFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	kind := domain.ErrorKind(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "kind", kind, "err", err)
	} else {
		s.logger.WarnContext(r.Context(), "request rejected", "path", r.URL.Path, "kind", kind, "err", err)
	}
	s.writeJSON(w, status, errorResponse{Error: kind, Message: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
