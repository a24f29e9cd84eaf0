package ports

import (
	"context"

	"github.com/aretw0/relay/pkg/domain"
)

// Classifier wraps the external NLU service.
//
// The same sessionID must be reused across the turns of a conversation so the
// service can keep its own multi-turn context. Implementations return an error
// wrapping domain.ErrClassificationUnavailable when the service cannot answer.
type Classifier interface {
	Classify(ctx context.Context, sessionID, utterance, languageCode string) (domain.ClassificationResult, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, sessionID, utterance, languageCode string) (domain.ClassificationResult, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, sessionID, utterance, languageCode string) (domain.ClassificationResult, error) {
	return f(ctx, sessionID, utterance, languageCode)
}
