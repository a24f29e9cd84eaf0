package middleware

import (
	"context"
	"errors"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/aretw0/relay/pkg/persistence/middleware"

type tracingMiddleware struct {
	next   ports.StateStore
	tracer trace.Tracer
	system string
}

// NewTracing records one span per store call. system names the backend
// (memory, redis) on every span. A missing session is not an error.
func NewTracing(system string) Middleware {
	tracer := otel.Tracer(scopeName)
	return func(next ports.StateStore) ports.StateStore {
		return &tracingMiddleware{next: next, tracer: tracer, system: system}
	}
}

func (m *tracingMiddleware) start(ctx context.Context, op, sessionID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("relay.store.system", m.system)}
	if sessionID != "" {
		attrs = append(attrs, attribute.String("relay.session_id", sessionID))
	}
	return m.tracer.Start(ctx, "store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func end(span trace.Span, err error) {
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (m *tracingMiddleware) Save(ctx context.Context, sessionID string, state *domain.ControlState) error {
	ctx, span := m.start(ctx, "save", sessionID)
	span.SetAttributes(attribute.String("relay.owner", state.Owner))
	err := m.next.Save(ctx, sessionID, state)
	end(span, err)
	return err
}

func (m *tracingMiddleware) Load(ctx context.Context, sessionID string) (*domain.ControlState, error) {
	ctx, span := m.start(ctx, "load", sessionID)
	state, err := m.next.Load(ctx, sessionID)
	span.SetAttributes(attribute.Bool("relay.store.hit", err == nil))
	end(span, err)
	return state, err
}

func (m *tracingMiddleware) Delete(ctx context.Context, sessionID string) error {
	ctx, span := m.start(ctx, "delete", sessionID)
	err := m.next.Delete(ctx, sessionID)
	end(span, err)
	return err
}

func (m *tracingMiddleware) List(ctx context.Context) ([]string, error) {
	ctx, span := m.start(ctx, "list", "")
	ids, err := m.next.List(ctx)
	span.SetAttributes(attribute.Int("relay.store.sessions", len(ids)))
	end(span, err)
	return ids, err
}
