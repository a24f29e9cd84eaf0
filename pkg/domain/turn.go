package domain

// DefaultLanguageCode is used when neither the request nor the controller sets one.
const DefaultLanguageCode = "en"

// ResponderClassifier marks a reply produced by the NLU classifier.
const ResponderClassifier = "classifier"

// TurnRequest is one inbound utterance for a session.
type TurnRequest struct {
	SessionID    string `json:"session_id"`
	Utterance    string `json:"user_input"`
	LanguageCode string `json:"language_code,omitempty"`
}

// ClassificationResult is what the classifier reports for one utterance.
type ClassificationResult struct {
	// IntentName is empty when no specific intent matched.
	IntentName string `json:"intent_name"`

	// DefaultReply is the fulfillment text proposed by the NLU service.
	DefaultReply string `json:"default_reply"`

	// Confidence is informational only; trigger matching never looks at it.
	Confidence float64 `json:"confidence,omitempty"`
}

// TurnResult is what a component reports for one delegated turn.
type TurnResult struct {
	Reply string `json:"reply"`
	// Done returns control to the classifier once the turn commits.
	Done bool `json:"done"`
}

// TransitionKind names the edge taken by a turn.
type TransitionKind string

const (
	TransitionNone    TransitionKind = "none"
	TransitionHandoff TransitionKind = "handoff" // Unowned -> OwnedBy(c)
	TransitionRelease TransitionKind = "release" // OwnedBy(c) -> Unowned
	// TransitionHandoffRelease is a handoff whose component reported done on its first turn.
	TransitionHandoffRelease TransitionKind = "handoff_release"
)

// TurnOutcome is the committed result of a turn.
type TurnOutcome struct {
	Reply      string         `json:"response"`
	State      *ControlState  `json:"state"`
	Intent     string         `json:"intent,omitempty"`
	Transition TransitionKind `json:"transition"`
	// Responder is ResponderClassifier or the id of the component that answered.
	Responder string `json:"responder"`
}

// TriggerTable maps intent names to the component that takes control when they fire.
type TriggerTable map[string]string

// Lookup returns the component bound to an intent. Matching is exact; the empty intent never matches.
func (t TriggerTable) Lookup(intent string) (string, bool) {
	if intent == "" || t == nil {
		return "", false
	}
	componentID, ok := t[intent]
	if !ok || componentID == "" {
		return "", false
	}
	return componentID, true
}

// Components returns the distinct component ids referenced by the table.
func (t TriggerTable) Components() []string {
	seen := make(map[string]struct{}, len(t))
	out := make([]string, 0, len(t))
	for _, id := range t {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// HandedOff reports whether the turn moved control from the classifier to a component.
func (k TransitionKind) HandedOff() bool {
	return k == TransitionHandoff || k == TransitionHandoffRelease
}

// Released reports whether the turn returned control to the classifier.
func (k TransitionKind) Released() bool {
	return k == TransitionRelease || k == TransitionHandoffRelease
}
