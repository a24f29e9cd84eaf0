package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/relay/internal/runtime"
	"github.com/aretw0/relay/pkg/adapters/memory"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
	"github.com/aretw0/relay/pkg/session"
)

// ClassifyPolicy decides whether utterances are classified while a component owns the session.
type ClassifyPolicy = runtime.ClassifyPolicy

const (
	ClassifyShadow         = runtime.ClassifyShadow
	ClassifySkipWhileOwned = runtime.ClassifySkipWhileOwned
)

// ParseClassifyPolicy accepts "shadow" (or empty) and "skip".
func ParseClassifyPolicy(s string) (ClassifyPolicy, error) {
	return runtime.ParseClassifyPolicy(s)
}

// Router is the high-level entry point of the library.
// It routes each utterance either to the NLU classifier or to the component
// that currently owns the conversation.
type Router struct {
	controller *runtime.Controller
	sessions   *session.Manager

	store       ports.StateStore
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	runtimeOpts []runtime.Option
	closers     []func() error
}

// Option configures the Router.
type Option func(*Router)

// WithTriggers sets the intent -> component table.
func WithTriggers(t domain.TriggerTable) Option {
	return func(r *Router) {
		r.runtimeOpts = append(r.runtimeOpts, runtime.WithTriggers(t))
	}
}

// WithStore sets where ControlState is kept (default: in memory).
func WithStore(store ports.StateStore) Option {
	return func(r *Router) {
		r.store = store
	}
}

// WithLocker serializes turns of a session across replicas. ttl bounds how
// long a crashed holder can block the session; zero keeps the default.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(r *Router) {
		r.locker = locker
		r.lockTTL = ttl
	}
}

// WithLanguageCode sets the default language sent to the classifier.
func WithLanguageCode(code string) Option {
	return func(r *Router) {
		r.runtimeOpts = append(r.runtimeOpts, runtime.WithLanguageCode(code))
	}
}

// WithClassifyTimeout bounds classifier calls. Zero disables the bound.
func WithClassifyTimeout(d time.Duration) Option {
	return func(r *Router) {
		r.runtimeOpts = append(r.runtimeOpts, runtime.WithClassifyTimeout(d))
	}
}

// WithProcessTimeout bounds component calls. Zero disables the bound.
func WithProcessTimeout(d time.Duration) Option {
	return func(r *Router) {
		r.runtimeOpts = append(r.runtimeOpts, runtime.WithProcessTimeout(d))
	}
}

// WithClassifyPolicy selects shadow (default) or skip classification while owned.
func WithClassifyPolicy(p ClassifyPolicy) Option {
	return func(r *Router) {
		r.runtimeOpts = append(r.runtimeOpts, runtime.WithClassifyPolicy(p))
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls accumulate.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Router) {
		r.hooks = r.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithCloser registers a func run by Close, for resources the router should own.
func WithCloser(fn func() error) Option {
	return func(r *Router) {
		if fn != nil {
			r.closers = append(r.closers, fn)
		}
	}
}

// New creates a Router. components resolves the ids named by the trigger table.
func New(classifier ports.Classifier, components ports.ComponentResolver, opts ...Option) *Router {
	r := &Router{}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		r.store = memory.NewStore()
	}

	var sessionOpts []session.Option
	if r.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(r.locker))
		if r.lockTTL > 0 {
			sessionOpts = append(sessionOpts, session.WithLockTTL(r.lockTTL))
		}
	}
	if r.logger != nil {
		sessionOpts = append(sessionOpts, session.WithLogger(r.logger))
	}
	r.sessions = session.NewManager(r.store, sessionOpts...)

	runtimeOpts := append([]runtime.Option{}, r.runtimeOpts...)
	runtimeOpts = append(runtimeOpts, runtime.WithLifecycleHooks(r.hooks), runtime.WithLogger(r.logger))
	r.controller = runtime.NewController(classifier, components, r.sessions, runtimeOpts...)
	return r
}

// HandleTurn processes one utterance of a conversation.
func (r *Router) HandleTurn(ctx context.Context, req domain.TurnRequest) (*domain.TurnOutcome, error) {
	return r.controller.HandleTurn(ctx, req)
}

// Send is shorthand for HandleTurn that returns only the reply.
func (r *Router) Send(ctx context.Context, sessionID, utterance string) (string, error) {
	out, err := r.controller.HandleTurn(ctx, domain.TurnRequest{SessionID: sessionID, Utterance: utterance})
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

// State returns the committed ControlState of a session (Unowned if unknown).
func (r *Router) State(ctx context.Context, sessionID string) (*domain.ControlState, error) {
	return r.controller.State(ctx, sessionID)
}

// Reset forgets a session.
func (r *Router) Reset(ctx context.Context, sessionID string) error {
	return r.controller.Reset(ctx, sessionID)
}

// Sessions lists stored session ids.
func (r *Router) Sessions(ctx context.Context) ([]string, error) {
	return r.controller.Sessions(ctx)
}

// Triggers returns the trigger table.
func (r *Router) Triggers() domain.TriggerTable {
	return r.controller.Triggers()
}

// Policy returns the classify policy in effect.
func (r *Router) Policy() ClassifyPolicy {
	return r.controller.Policy()
}

// Store returns the state store backing the router.
func (r *Router) Store() ports.StateStore {
	return r.store
}

// Close releases resources registered with WithCloser, in reverse order.
func (r *Router) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
