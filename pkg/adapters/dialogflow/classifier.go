package dialogflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aretw0/relay/internal/logging"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const scopeName = "github.com/aretw0/relay/pkg/adapters/dialogflow"

var tracer = otel.Tracer(scopeName)

const (
	// DefaultEndpoint is the public Dialogflow ES API.
	DefaultEndpoint = "https://dialogflow.googleapis.com"

	// Scope is the OAuth2 scope required by detectIntent.
	Scope = "https://www.googleapis.com/auth/dialogflow"

	maxErrorBody = 4 << 10

	// MaxSessionIDLength is the longest session id detectIntent accepts.
	MaxSessionIDLength = 36
)

// Classifier implements ports.Classifier on top of the Dialogflow ES detectIntent REST call.
type Classifier struct {
	projectID string
	endpoint  string
	client    *http.Client
	logger    *slog.Logger
}

// Option configures the Classifier.
type Option func(*Classifier)

// WithEndpoint overrides the API base URL (regional endpoints, tests).
func WithEndpoint(endpoint string) Option {
	return func(c *Classifier) {
		if endpoint != "" {
			c.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithHTTPClient sets the client used for API calls. It must add credentials itself.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Classifier) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a classifier for a Dialogflow agent.
func New(projectID string, opts ...Option) (*Classifier, error) {
	if projectID == "" {
		return nil, fmt.Errorf("dialogflow: project id is required")
	}
	c := &Classifier{
		projectID: projectID,
		endpoint:  DefaultEndpoint,
		client:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromCredentialsFile authenticates with a service-account JSON key.
// The agent's project id is taken from the same file unless projectID is set.
func NewFromCredentialsFile(ctx context.Context, path, projectID string, opts ...Option) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dialogflow: failed to read credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, Scope)
	if err != nil {
		return nil, fmt.Errorf("dialogflow: invalid credentials: %w", err)
	}
	if projectID == "" {
		projectID = creds.ProjectID
	}

	return New(projectID, append([]Option{WithHTTPClient(authorizedClient(creds))}, opts...)...)
}

// NewFromDefaultCredentials uses Application Default Credentials
// (GOOGLE_APPLICATION_CREDENTIALS, gcloud, or the metadata server).
func NewFromDefaultCredentials(ctx context.Context, projectID string, opts ...Option) (*Classifier, error) {
	creds, err := google.FindDefaultCredentials(ctx, Scope)
	if err != nil {
		return nil, fmt.Errorf("dialogflow: no default credentials: %w", err)
	}
	if projectID == "" {
		projectID = creds.ProjectID
	}
	return New(projectID, append([]Option{WithHTTPClient(authorizedClient(creds))}, opts...)...)
}

func authorizedClient(creds *google.Credentials) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(&oauth2.Transport{
			Source: creds.TokenSource,
			Base:   http.DefaultTransport,
		}),
	}
}

// ProjectID returns the agent project.
func (c *Classifier) ProjectID() string {
	return c.projectID
}

type textInput struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode"`
}

type queryInput struct {
	Text textInput `json:"text"`
}

type detectIntentRequest struct {
	QueryInput queryInput `json:"queryInput"`
}

type intent struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type queryResult struct {
	QueryText                 string  `json:"queryText"`
	FulfillmentText           string  `json:"fulfillmentText"`
	IntentDetectionConfidence float64 `json:"intentDetectionConfidence"`
	Intent                    *intent `json:"intent"`
}

type detectIntentResponse struct {
	ResponseID  string       `json:"responseId"`
	QueryResult *queryResult `json:"queryResult"`
}

// AgentSession maps a relay session id onto a Dialogflow session id. Ids that
// fit are used as-is; longer ones become a name-based UUID, so the same
// conversation always lands in the same agent session.
func AgentSession(sessionID string) string {
	if len(sessionID) <= MaxSessionIDLength {
		return sessionID
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("relay:"+sessionID)).String()
}

// Classify sends the utterance to detectIntent within the agent session named by sessionID.
func (c *Classifier) Classify(ctx context.Context, sessionID, utterance, languageCode string) (domain.ClassificationResult, error) {
	agentSession := AgentSession(sessionID)
	ctx, span := tracer.Start(ctx, "dialogflow detect intent")
	defer span.End()
	span.SetAttributes(
		attribute.String("dialogflow.project", c.projectID),
		attribute.String("dialogflow.session", agentSession),
		attribute.String("dialogflow.language_code", languageCode),
	)

	fail := func(err error) (domain.ClassificationResult, error) {
		err = fmt.Errorf("%w: dialogflow: %w", domain.ErrClassificationUnavailable, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.ClassificationResult{}, err
	}

	if languageCode == "" {
		languageCode = domain.DefaultLanguageCode
	}
	body, err := json.Marshal(detectIntentRequest{
		QueryInput: queryInput{Text: textInput{Text: utterance, LanguageCode: languageCode}},
	})
	if err != nil {
		return fail(err)
	}

	endpoint := fmt.Sprintf("%s/v2/projects/%s/agent/sessions/%s:detectIntent",
		c.endpoint, url.PathEscape(c.projectID), url.PathEscape(agentSession))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.WarnContext(ctx, "dialogflow rejected request",
			"session_id", sessionID,
			"status", resp.StatusCode,
		)
		return fail(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	var out detectIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fail(fmt.Errorf("decode response: %w", err))
	}
	if out.QueryResult == nil {
		return fail(fmt.Errorf("response has no queryResult"))
	}

	result := domain.ClassificationResult{
		DefaultReply: out.QueryResult.FulfillmentText,
		Confidence:   out.QueryResult.IntentDetectionConfidence,
	}
	if out.QueryResult.Intent != nil {
		result.IntentName = out.QueryResult.Intent.DisplayName
	}

	span.SetAttributes(
		attribute.String("dialogflow.intent", result.IntentName),
		attribute.Float64("dialogflow.confidence", result.Confidence),
	)
	return result, nil
}

var _ ports.Classifier = (*Classifier)(nil)
