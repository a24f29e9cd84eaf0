package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/relay/internal/logging"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/input"
	"github.com/aretw0/relay/pkg/ports"
	"github.com/aretw0/relay/pkg/session"
)

// DefaultCallTimeout bounds each collaborator call when no explicit timeout is configured.
const DefaultCallTimeout = 10 * time.Second

// ClassifyPolicy decides whether the classifier runs while a component owns the session.
type ClassifyPolicy string

const (
	// ClassifyShadow classifies every utterance, even while a component owns the session.
	// The result cannot change the reply then, but the NLU service keeps its context.
	ClassifyShadow ClassifyPolicy = "shadow"

	// ClassifySkipWhileOwned sends owned turns straight to the owner.
	ClassifySkipWhileOwned ClassifyPolicy = "skip"
)

// ParseClassifyPolicy accepts "shadow" (or empty) and "skip".
func ParseClassifyPolicy(s string) (ClassifyPolicy, error) {
	switch ClassifyPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ClassifyShadow:
		return ClassifyShadow, nil
	case ClassifySkipWhileOwned:
		return ClassifySkipWhileOwned, nil
	default:
		return "", fmt.Errorf("unknown classify policy %q (want shadow or skip)", s)
	}
}

// Controller is the session control-handoff state machine.
// Per turn it decides whether the classifier or the owning component answers,
// and moves ownership along the two edges Unowned -> OwnedBy(c) and OwnedBy(c) -> Unowned.
type Controller struct {
	classifier ports.Classifier
	components ports.ComponentResolver
	sessions   *session.Manager

	triggers        domain.TriggerTable
	languageCode    string
	classifyTimeout time.Duration
	processTimeout  time.Duration
	policy          ClassifyPolicy
	hooks           domain.LifecycleHooks
	logger          *slog.Logger
	now             func() time.Time
}

// Option configures the Controller.
type Option func(*Controller)

// WithTriggers sets the intent -> component table.
func WithTriggers(t domain.TriggerTable) Option {
	return func(c *Controller) {
		c.triggers = t
	}
}

// WithLanguageCode sets the language used when a request does not carry one.
func WithLanguageCode(code string) Option {
	return func(c *Controller) {
		if code != "" {
			c.languageCode = code
		}
	}
}

// WithClassifyTimeout bounds classifier calls. Zero disables the bound.
func WithClassifyTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.classifyTimeout = d
	}
}

// WithProcessTimeout bounds component calls. Zero disables the bound.
func WithProcessTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.processTimeout = d
	}
}

// WithClassifyPolicy selects shadow or skip classification while owned.
func WithClassifyPolicy(p ClassifyPolicy) Option {
	return func(c *Controller) {
		if p != "" {
			c.policy = p
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used for state timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController creates a controller. sessions provides per-session serialization and storage.
func NewController(classifier ports.Classifier, components ports.ComponentResolver, sessions *session.Manager, opts ...Option) *Controller {
	c := &Controller{
		classifier:      classifier,
		components:      components,
		sessions:        sessions,
		triggers:        domain.TriggerTable{},
		languageCode:    domain.DefaultLanguageCode,
		classifyTimeout: DefaultCallTimeout,
		processTimeout:  DefaultCallTimeout,
		policy:          ClassifyShadow,
		logger:          logging.NewNop(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Triggers returns the configured trigger table.
func (c *Controller) Triggers() domain.TriggerTable {
	return c.triggers
}

// Policy returns the classify policy in effect.
func (c *Controller) Policy() ClassifyPolicy {
	return c.policy
}

// HandleTurn processes one utterance and returns the reply.
//
// The new ControlState is committed before HandleTurn returns, and only if every
// collaborator call of the turn succeeded. A failed turn leaves the state untouched.
func (c *Controller) HandleTurn(ctx context.Context, req domain.TurnRequest) (*domain.TurnOutcome, error) {
	if err := validateRequest(req); err != nil {
		c.emitTurnError(ctx, req.SessionID, err)
		return nil, err
	}

	lang := req.LanguageCode
	if lang == "" {
		lang = c.languageCode
	}

	var outcome *domain.TurnOutcome
	err := c.sessions.WithLock(ctx, req.SessionID, func(ctx context.Context) error {
		current, err := c.sessions.LoadUnlocked(ctx, req.SessionID)
		if err != nil {
			return err
		}

		next, out, err := c.step(ctx, current, req.Utterance, lang)
		if err != nil {
			return err
		}

		if err := c.sessions.SaveUnlocked(ctx, req.SessionID, next); err != nil {
			return err
		}
		outcome = out
		return nil
	})
	if err != nil {
		c.emitTurnError(ctx, req.SessionID, err)
		c.logger.WarnContext(ctx, "turn failed",
			"session_id", req.SessionID,
			"kind", domain.ErrorKind(err),
			"err", err,
		)
		return nil, err
	}

	c.emitTransitions(ctx, outcome)
	if c.hooks.OnTurn != nil {
		c.hooks.OnTurn(ctx, &domain.TurnEvent{
			EventBase:  domain.EventBase{Timestamp: c.now(), Type: domain.EventTurn, SessionID: req.SessionID},
			Intent:     outcome.Intent,
			Responder:  outcome.Responder,
			Transition: outcome.Transition,
			Owner:      outcome.State.Owner,
		})
	}
	c.logger.DebugContext(ctx, "turn committed",
		"session_id", req.SessionID,
		"intent", outcome.Intent,
		"responder", outcome.Responder,
		"transition", outcome.Transition,
		"state", outcome.State.String(),
	)
	return outcome, nil
}

// step computes the next state and reply for one utterance. It performs no writes.
func (c *Controller) step(ctx context.Context, current *domain.ControlState, utterance, lang string) (*domain.ControlState, *domain.TurnOutcome, error) {
	sessionID := current.SessionID
	owner := current.Owner
	handoff := false

	// 1. Classify (unless the policy skips it while owned)
	var result domain.ClassificationResult
	if !current.IsOwned() || c.policy != ClassifySkipWhileOwned {
		var err error
		result, err = c.classify(ctx, sessionID, utterance, lang, current.IsOwned())
		if err != nil {
			return nil, nil, err
		}
	}

	// 2. Trigger check (only while Unowned; one owner at a time)
	if componentID, ok := c.triggers.Lookup(result.IntentName); ok {
		if current.IsOwned() {
			c.logger.DebugContext(ctx, "trigger ignored while owned",
				"session_id", sessionID,
				"intent", result.IntentName,
				"owner", current.Owner,
				"component", componentID,
			)
		} else {
			owner = componentID
			handoff = true
		}
	}

	reply := result.DefaultReply
	responder := domain.ResponderClassifier
	release := false

	// 3. Delegate to the owner, including one that took control this very turn
	if owner != "" {
		processor, err := c.resolve(owner)
		if err != nil {
			return nil, nil, err
		}
		if handoff {
			if err := c.resetComponent(ctx, processor, owner, sessionID); err != nil {
				return nil, nil, fmt.Errorf("%w: component %s: %w", domain.ErrTurnProcessingFailed, owner, err)
			}
		}
		turn, err := c.process(ctx, processor, owner, sessionID, utterance)
		if err != nil {
			return nil, nil, err
		}
		reply = turn.Reply
		responder = owner
		release = turn.Done
	}

	now := c.now()
	next := current.Snapshot()
	next.Turns++
	next.UpdatedAt = now
	if handoff {
		next.Owner = owner
		next.OwnedSince = now
	}
	if release {
		next.Owner = ""
		next.OwnedSince = time.Time{}
	}

	transition := domain.TransitionNone
	switch {
	case handoff && release:
		transition = domain.TransitionHandoffRelease
	case release:
		transition = domain.TransitionRelease
	case handoff:
		transition = domain.TransitionHandoff
	}

	return next, &domain.TurnOutcome{
		Reply:      reply,
		State:      next.Snapshot(),
		Intent:     result.IntentName,
		Transition: transition,
		Responder:  responder,
	}, nil
}

func (c *Controller) classify(ctx context.Context, sessionID, utterance, lang string, shadow bool) (domain.ClassificationResult, error) {
	callCtx, cancel := withTimeout(ctx, c.classifyTimeout)
	defer cancel()

	start := time.Now()
	result, err := c.classifier.Classify(callCtx, sessionID, utterance, lang)
	elapsed := time.Since(start)

	if c.hooks.OnClassify != nil {
		c.hooks.OnClassify(ctx, &domain.ClassifyEvent{
			EventBase: domain.EventBase{Timestamp: c.now(), Type: domain.EventClassify, SessionID: sessionID},
			Intent:    result.IntentName,
			Duration:  elapsed,
			Err:       err,
			Shadow:    shadow,
		})
	}

	if err != nil {
		if errors.Is(err, domain.ErrClassificationUnavailable) {
			return domain.ClassificationResult{}, err
		}
		return domain.ClassificationResult{}, fmt.Errorf("%w: %w", domain.ErrClassificationUnavailable, err)
	}
	return result, nil
}

func (c *Controller) resolve(componentID string) (ports.TurnProcessor, error) {
	processor, err := c.components.Resolve(componentID)
	if err != nil {
		if errors.Is(err, domain.ErrComponentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrComponentNotFound, componentID, err)
	}
	if processor == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrComponentNotFound, componentID)
	}
	return processor, nil
}

func (c *Controller) process(ctx context.Context, p ports.TurnProcessor, componentID, sessionID, utterance string) (domain.TurnResult, error) {
	callCtx, cancel := withTimeout(ctx, c.processTimeout)
	defer cancel()

	start := time.Now()
	turn, err := p.Process(callCtx, sessionID, utterance)
	elapsed := time.Since(start)

	if c.hooks.OnDelegate != nil {
		c.hooks.OnDelegate(ctx, &domain.DelegateEvent{
			EventBase:   domain.EventBase{Timestamp: c.now(), Type: domain.EventDelegate, SessionID: sessionID},
			ComponentID: componentID,
			Done:        err == nil && turn.Done,
			Duration:    elapsed,
			Err:         err,
		})
	}

	if err != nil {
		if errors.Is(err, domain.ErrTurnProcessingFailed) {
			return domain.TurnResult{}, err
		}
		return domain.TurnResult{}, fmt.Errorf("%w: component %s: %w", domain.ErrTurnProcessingFailed, componentID, err)
	}
	return turn, nil
}

// State returns the committed state of a session, or an Unowned state for unknown sessions.
func (c *Controller) State(ctx context.Context, sessionID string) (*domain.ControlState, error) {
	if err := checkSessionID(sessionID); err != nil {
		return nil, err
	}
	return c.sessions.LoadOrNew(ctx, sessionID)
}

// Reset forgets a session. The next turn starts Unowned. When a component
// owned the session it is told to drop its own memory of it, and OnReset
// reports the owner that lost control.
func (c *Controller) Reset(ctx context.Context, sessionID string) error {
	if err := checkSessionID(sessionID); err != nil {
		return err
	}

	var owner string
	err := c.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		current, err := c.sessions.LoadUnlocked(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := c.sessions.DeleteUnlocked(ctx, sessionID); err != nil {
			return err
		}
		owner = current.Owner
		return nil
	})
	if err != nil {
		return err
	}

	if owner != "" {
		if processor, err := c.resolve(owner); err == nil {
			if err := c.resetComponent(ctx, processor, owner, sessionID); err != nil {
				c.logger.WarnContext(ctx, "component reset failed",
					"session_id", sessionID,
					"component", owner,
					"err", err,
				)
			}
		}
	}

	c.logger.InfoContext(ctx, "session reset", "session_id", sessionID, "owner", owner)
	if c.hooks.OnReset != nil {
		c.hooks.OnReset(ctx, &domain.ResetEvent{
			EventBase: domain.EventBase{Timestamp: c.now(), Type: domain.EventReset, SessionID: sessionID},
			Owner:     owner,
		})
	}
	return nil
}

func (c *Controller) resetComponent(ctx context.Context, p ports.TurnProcessor, componentID, sessionID string) error {
	r, ok := p.(ports.SessionResetter)
	if !ok {
		return nil
	}
	callCtx, cancel := withTimeout(ctx, c.processTimeout)
	defer cancel()
	if err := r.ResetSession(callCtx, sessionID); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	c.logger.DebugContext(ctx, "component session reset", "session_id", sessionID, "component", componentID)
	return nil
}

// Sessions lists the ids of stored sessions.
func (c *Controller) Sessions(ctx context.Context) ([]string, error) {
	return c.sessions.List(ctx)
}

func (c *Controller) emitTransitions(ctx context.Context, out *domain.TurnOutcome) {
	base := func(t domain.EventType) domain.EventBase {
		return domain.EventBase{Timestamp: c.now(), Type: t, SessionID: out.State.SessionID}
	}

	// A handoff whose component finishes on its first turn fires both edges.
	if out.Transition.HandedOff() {
		c.logger.InfoContext(ctx, "control handed off",
			"session_id", out.State.SessionID,
			"component", out.Responder,
			"intent", out.Intent,
		)
		if c.hooks.OnHandoff != nil {
			c.hooks.OnHandoff(ctx, &domain.TransitionEvent{EventBase: base(domain.EventHandoff), ComponentID: out.Responder, Intent: out.Intent})
		}
	}
	if out.Transition.Released() {
		c.logger.InfoContext(ctx, "control released",
			"session_id", out.State.SessionID,
			"component", out.Responder,
		)
		if c.hooks.OnRelease != nil {
			c.hooks.OnRelease(ctx, &domain.TransitionEvent{EventBase: base(domain.EventRelease), ComponentID: out.Responder, Intent: out.Intent})
		}
	}
}

func (c *Controller) emitTurnError(ctx context.Context, sessionID string, err error) {
	if c.hooks.OnTurnError == nil {
		return
	}
	c.hooks.OnTurnError(ctx, &domain.TurnErrorEvent{
		EventBase: domain.EventBase{Timestamp: c.now(), Type: domain.EventTurnError, SessionID: sessionID},
		Kind:      domain.ErrorKind(err),
		Err:       err,
	})
}

func validateRequest(req domain.TurnRequest) error {
	if err := checkSessionID(req.SessionID); err != nil {
		return err
	}
	if strings.TrimSpace(req.Utterance) == "" {
		return fmt.Errorf("%w: user_input is required", domain.ErrMalformedRequest)
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func checkSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrMalformedRequest)
	}
	if err := input.ValidateSessionID(id); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrMalformedRequest, err)
	}
	return nil
}
