package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventClassify  EventType = "classify"
	EventHandoff   EventType = "handoff"
	EventRelease   EventType = "release"
	EventReset     EventType = "reset"
	EventDelegate  EventType = "delegate"
	EventTurn      EventType = "turn"
	EventTurnError EventType = "turn_error"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// ClassifyEvent is emitted after every classifier call, successful or not.
type ClassifyEvent struct {
	EventBase
	Intent   string        `json:"intent,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
	// Shadow is true when the result could not affect the reply because a component owned the session.
	Shadow bool `json:"shadow,omitempty"`
}

// TransitionEvent is emitted when a turn commits a change of owner.
type TransitionEvent struct {
	EventBase
	ComponentID string `json:"component_id"`
	Intent      string `json:"intent,omitempty"`
}

// ResetEvent is emitted when a session is forgotten. Owner is the component
// that held the session at that moment, or "" when it was Unowned.
type ResetEvent struct {
	EventBase
	Owner string `json:"owner,omitempty"`
}

// DelegateEvent is emitted after a component processed (or failed to process) a turn.
type DelegateEvent struct {
	EventBase
	ComponentID string        `json:"component_id"`
	Done        bool          `json:"done"`
	Duration    time.Duration `json:"duration"`
	Err         error         `json:"-"`
}

// TurnEvent is emitted once a turn has been committed.
type TurnEvent struct {
	EventBase
	Intent     string         `json:"intent,omitempty"`
	Responder  string         `json:"responder"`
	Transition TransitionKind `json:"transition"`
	Owner      string         `json:"owner,omitempty"`
}

// TurnErrorEvent is emitted when a turn fails; Kind is one of the ErrorKind codes.
type TurnErrorEvent struct {
	EventBase
	Kind string `json:"kind"`
	Err  error  `json:"-"`
}

// LifecycleHooks defines callbacks for router observability.
type LifecycleHooks struct {
	OnClassify  func(context.Context, *ClassifyEvent)
	OnHandoff   func(context.Context, *TransitionEvent)
	OnRelease   func(context.Context, *TransitionEvent)
	OnReset     func(context.Context, *ResetEvent)
	OnDelegate  func(context.Context, *DelegateEvent)
	OnTurn      func(context.Context, *TurnEvent)
	OnTurnError func(context.Context, *TurnErrorEvent)
}

// Merge combines hooks so that every non-nil callback of each set is invoked in order.
func (h LifecycleHooks) Merge(others ...LifecycleHooks) LifecycleHooks {
	all := append([]LifecycleHooks{h}, others...)
	return LifecycleHooks{
		OnClassify: func(ctx context.Context, e *ClassifyEvent) {
			for _, x := range all {
				if x.OnClassify != nil {
					x.OnClassify(ctx, e)
				}
			}
		},
		OnHandoff: func(ctx context.Context, e *TransitionEvent) {
			for _, x := range all {
				if x.OnHandoff != nil {
					x.OnHandoff(ctx, e)
				}
			}
		},
		OnRelease: func(ctx context.Context, e *TransitionEvent) {
			for _, x := range all {
				if x.OnRelease != nil {
					x.OnRelease(ctx, e)
				}
			}
		},
		OnReset: func(ctx context.Context, e *ResetEvent) {
			for _, x := range all {
				if x.OnReset != nil {
					x.OnReset(ctx, e)
				}
			}
		},
		OnDelegate: func(ctx context.Context, e *DelegateEvent) {
			for _, x := range all {
				if x.OnDelegate != nil {
					x.OnDelegate(ctx, e)
				}
			}
		},
		OnTurn: func(ctx context.Context, e *TurnEvent) {
			for _, x := range all {
				if x.OnTurn != nil {
					x.OnTurn(ctx, e)
				}
			}
		},
		OnTurnError: func(ctx context.Context, e *TurnErrorEvent) {
			for _, x := range all {
				if x.OnTurnError != nil {
					x.OnTurnError(ctx, e)
				}
			}
		},
	}
}
