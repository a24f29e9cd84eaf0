package coco

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aretw0/relay/internal/logging"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const scopeName = "github.com/aretw0/relay/pkg/adapters/coco"

var tracer = otel.Tracer(scopeName)

// DefaultBaseURL is the hosted CoCo exchange service.
const DefaultBaseURL = "https://app.coco.imperson.com"

const maxErrorBody = 4 << 10

// Component calls one hosted conversational component through the exchange API.
type Component struct {
	id      string
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// Option configures a Component.
type Option func(*Component)

// WithBaseURL overrides the exchange service location.
func WithBaseURL(u string) Option {
	return func(c *Component) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAPIKey sends the key in the api-key header.
func WithAPIKey(key string) Option {
	return func(c *Component) {
		c.apiKey = key
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Component) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Component) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the component with the given id.
func New(componentID string, opts ...Option) (*Component, error) {
	if componentID == "" {
		return nil, fmt.Errorf("coco: component id is required")
	}
	c := &Component{
		id:      componentID,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ID returns the remote component id.
func (c *Component) ID() string {
	return c.id
}

type exchangeRequest struct {
	UserInput string `json:"user_input"`
}

// Response is the exchange API reply.
type Response struct {
	Response        string         `json:"response"`
	ComponentDone   bool           `json:"component_done"`
	ComponentFailed bool           `json:"component_failed"`
	UpdatedContext  map[string]any `json:"updated_context,omitempty"`
}

// Exchange performs one raw call to the component.
func (c *Component) Exchange(ctx context.Context, sessionID, input string) (*Response, error) {
	body, err := json.Marshal(exchangeRequest{UserInput: input})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/exchange/%s/%s", c.baseURL, url.PathEscape(c.id), url.PathEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// Process implements ports.TurnProcessor. A component that reports failure
// is treated as finished so control returns to the classifier.
func (c *Component) Process(ctx context.Context, sessionID, input string) (domain.TurnResult, error) {
	ctx, span := tracer.Start(ctx, "coco exchange")
	defer span.End()
	span.SetAttributes(
		attribute.String("coco.component", c.id),
		attribute.String("coco.session", sessionID),
	)

	resp, err := c.Exchange(ctx, sessionID, input)
	if err != nil {
		err = fmt.Errorf("%w: coco %s: %w", domain.ErrTurnProcessingFailed, c.id, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.TurnResult{}, err
	}

	if resp.ComponentFailed {
		c.logger.WarnContext(ctx, "component reported failure",
			"component", c.id,
			"session_id", sessionID,
		)
	}
	span.SetAttributes(
		attribute.Bool("coco.done", resp.ComponentDone),
		attribute.Bool("coco.failed", resp.ComponentFailed),
	)

	return domain.TurnResult{
		Reply: resp.Response,
		Done:  resp.ComponentDone || resp.ComponentFailed,
	}, nil
}

var _ ports.TurnProcessor = (*Component)(nil)
