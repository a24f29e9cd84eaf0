package ports

import (
	"context"

	"github.com/aretw0/relay/pkg/domain"
)

// StateStore defines the interface for persisting per-session control state.
// It replaces a process-wide owner variable with an explicit map keyed by session id.
type StateStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.ControlState) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.ControlState, error)

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of known sessions.
	List(ctx context.Context) ([]string, error)
}
