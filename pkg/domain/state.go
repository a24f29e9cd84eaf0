package domain

import "time"

// ControlState records which party owns a conversation.
// An empty Owner means the NLU classifier has control (Unowned).
type ControlState struct {
	// SessionID is the opaque conversation key supplied by the transport.
	SessionID string `json:"session_id"`

	// Owner is the component currently holding the conversation, or "" when Unowned.
	Owner string `json:"owner,omitempty"`

	// OwnedSince is when the current owner received control. Zero when Unowned.
	OwnedSince time.Time `json:"owned_since,omitzero"`

	// Turns counts successfully completed turns for the session.
	Turns int `json:"turns"`

	// UpdatedAt is the commit time of the last successful turn.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewControlState creates an Unowned state for a session.
func NewControlState(sessionID string) *ControlState {
	return &ControlState{
		SessionID: sessionID,
	}
}

// IsOwned reports whether a component holds the conversation.
func (s *ControlState) IsOwned() bool {
	return s.Owner != ""
}

// OwnedBy reports whether the given component holds the conversation.
func (s *ControlState) OwnedBy(componentID string) bool {
	return componentID != "" && s.Owner == componentID
}

// Snapshot returns an independent copy of the state.
func (s *ControlState) Snapshot() *ControlState {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// String renders the state in the Unowned / OwnedBy(x) notation used in logs.
func (s *ControlState) String() string {
	if !s.IsOwned() {
		return "Unowned"
	}
	return "OwnedBy(" + s.Owner + ")"
}
