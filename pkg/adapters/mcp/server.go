package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/relay"
	"github.com/aretw0/relay/internal/logging"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/input"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// TriggersURI is the resource publishing the trigger table.
const TriggersURI = "relay://triggers"

// Controller is the part of the router exposed as MCP tools.
type Controller interface {
	HandleTurn(ctx context.Context, req domain.TurnRequest) (*domain.TurnOutcome, error)
	State(ctx context.Context, sessionID string) (*domain.ControlState, error)
	Reset(ctx context.Context, sessionID string) error
	Triggers() domain.TriggerTable
}

// SendResponse is the structured result of send_utterance.
type SendResponse struct {
	Response   string `json:"response" jsonschema_description:"Reply to show the user"`
	Owner      string `json:"owner,omitempty" jsonschema_description:"Component owning the session after the turn, empty when the classifier has control"`
	Transition string `json:"transition" jsonschema_description:"none, handoff, release or handoff_release (taken and returned in one turn)"`
	Intent     string `json:"intent,omitempty" jsonschema_description:"Intent reported by the classifier"`
}

// ResetResponse is the structured result of reset_session.
type ResetResponse struct {
	SessionID string `json:"session_id"`
	Reset     bool   `json:"reset"`
}

// Server exposes a router as an MCP server.
type Server struct {
	ctrl      Controller
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger. Stdio transports must not log to stdout.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(ctrl Controller, opts ...Option) *Server {
	s := &Server{
		ctrl:      ctrl,
		mcpServer: server.NewMCPServer("relay-mcp", relay.Version),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("mcp server listening (sse)", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	sendTool := mcp.NewTool("send_utterance",
		mcp.WithDescription("Send one user utterance to a conversation and get the reply."),
		mcp.WithString("session_id", mcp.Required(), sessionIDPattern, mcp.MaxLength(input.MaxSessionIDLength),
			mcp.Description("Conversation id; reuse it to continue the conversation")),
		mcp.WithString("text", mcp.Required(), mcp.Description("User utterance")),
		mcp.WithString("language_code", mcp.Description("Language of the utterance (default en)")),
		mcp.WithOutputSchema[SendResponse](),
	)
	s.mcpServer.AddTool(sendTool, mcp.NewStructuredToolHandler(s.handleSendUtterance))

	getTool := mcp.NewTool("get_session",
		mcp.WithDescription("Get the control state of a conversation: who owns it and since when."),
		mcp.WithString("session_id", mcp.Required(), sessionIDPattern, mcp.MaxLength(input.MaxSessionIDLength), mcp.Description("Conversation id")),
		mcp.WithOutputSchema[domain.ControlState](),
	)
	s.mcpServer.AddTool(getTool, mcp.NewStructuredToolHandler(s.handleGetSession))

	resetTool := mcp.NewTool("reset_session",
		mcp.WithDescription("Forget a conversation so its next turn starts with the classifier in control."),
		mcp.WithString("session_id", mcp.Required(), sessionIDPattern, mcp.MaxLength(input.MaxSessionIDLength), mcp.Description("Conversation id")),
		mcp.WithOutputSchema[ResetResponse](),
	)
	s.mcpServer.AddTool(resetTool, mcp.NewStructuredToolHandler(s.handleResetSession))
}

var sessionIDPattern = mcp.Pattern(`^[A-Za-z0-9._:@-]+$`)

func sessionIDArg(args map[string]interface{}) (string, error) {
	id, _ := args["session_id"].(string)
	if err := input.ValidateSessionID(id); err != nil {
		return "", fmt.Errorf("%w: session_id: %w", domain.ErrMalformedRequest, err)
	}
	return id, nil
}

func (s *Server) handleSendUtterance(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (SendResponse, error) {
	sessionID, err := sessionIDArg(args)
	if err != nil {
		return SendResponse{}, err
	}
	text, _ := args["text"].(string)
	lang, _ := args["language_code"].(string)

	clean, err := input.Sanitize(text)
	if err != nil {
		s.logger.Warn("mcp send_utterance: input rejected", "err", err, "size", len(text))
		return SendResponse{}, fmt.Errorf("%w: %w", domain.ErrMalformedRequest, err)
	}

	out, err := s.ctrl.HandleTurn(ctx, domain.TurnRequest{SessionID: sessionID, Utterance: clean, LanguageCode: lang})
	if err != nil {
		return SendResponse{}, fmt.Errorf("%s: %w", domain.ErrorKind(err), err)
	}

	return SendResponse{
		Response:   out.Reply,
		Owner:      out.State.Owner,
		Transition: string(out.Transition),
		Intent:     out.Intent,
	}, nil
}

func (s *Server) handleGetSession(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (domain.ControlState, error) {
	sessionID, err := sessionIDArg(args)
	if err != nil {
		return domain.ControlState{}, err
	}
	state, err := s.ctrl.State(ctx, sessionID)
	if err != nil {
		return domain.ControlState{}, err
	}
	return *state, nil
}

func (s *Server) handleResetSession(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (ResetResponse, error) {
	sessionID, err := sessionIDArg(args)
	if err != nil {
		return ResetResponse{}, err
	}
	if err := s.ctrl.Reset(ctx, sessionID); err != nil {
		return ResetResponse{}, err
	}
	return ResetResponse{SessionID: sessionID, Reset: true}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TriggersURI, "Trigger table",
		mcp.WithResourceDescription("Intent names that hand a conversation to a component"),
		mcp.WithMIMEType("application/json"),
	), s.readTriggers)
}

func (s *Server) readTriggers(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(s.ctrl.Triggers())
	if err != nil {
		return nil, fmt.Errorf("failed to encode triggers: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      TriggersURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
