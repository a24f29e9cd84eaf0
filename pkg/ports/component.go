package ports

import (
	"context"

	"github.com/aretw0/relay/pkg/domain"
)

// TurnProcessor executes one conversational turn on behalf of a component.
// Any session-scoped memory is the component's own concern, keyed by sessionID.
type TurnProcessor interface {
	Process(ctx context.Context, sessionID, input string) (domain.TurnResult, error)
}

// SessionResetter is implemented by components that keep per-session memory.
// ResetSession is called when the component takes control of a session and
// when a session it owns is reset, so every handoff starts from scratch.
type SessionResetter interface {
	ResetSession(ctx context.Context, sessionID string) error
}

// TurnProcessorFunc adapts a function to the TurnProcessor interface.
type TurnProcessorFunc func(ctx context.Context, sessionID, input string) (domain.TurnResult, error)

// Process calls f.
func (f TurnProcessorFunc) Process(ctx context.Context, sessionID, input string) (domain.TurnResult, error) {
	return f(ctx, sessionID, input)
}

// ComponentResolver looks up the processor for a component id.
// Returns an error wrapping domain.ErrComponentNotFound for unknown ids.
type ComponentResolver interface {
	Resolve(componentID string) (TurnProcessor, error)
}
