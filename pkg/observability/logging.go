package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/relay/pkg/domain"
)

// LogHooks returns hooks that write every lifecycle event to logger at debug
// level, and turn errors at warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnClassify: func(ctx context.Context, e *domain.ClassifyEvent) {
			logger.DebugContext(ctx, "classify",
				"session_id", e.SessionID,
				"intent", e.Intent,
				"duration", e.Duration,
				"shadow", e.Shadow,
				"err", e.Err,
			)
		},
		OnDelegate: func(ctx context.Context, e *domain.DelegateEvent) {
			logger.DebugContext(ctx, "delegate",
				"session_id", e.SessionID,
				"component", e.ComponentID,
				"done", e.Done,
				"duration", e.Duration,
				"err", e.Err,
			)
		},
		OnReset: func(ctx context.Context, e *domain.ResetEvent) {
			logger.DebugContext(ctx, "reset",
				"session_id", e.SessionID,
				"owner", e.Owner,
			)
		},
		OnTurnError: func(ctx context.Context, e *domain.TurnErrorEvent) {
			logger.WarnContext(ctx, "turn_error",
				"session_id", e.SessionID,
				"kind", e.Kind,
				"err", e.Err,
			)
		},
	}
}
