package static

import (
	"context"
	"strings"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
)

// Rule maps utterances containing any of Keywords to Intent.
type Rule struct {
	Intent   string   `yaml:"intent" mapstructure:"intent"`
	Keywords []string `yaml:"keywords" mapstructure:"keywords"`
	Reply    string   `yaml:"reply" mapstructure:"reply"`
}

// Classifier is a keyword matcher standing in for a real NLU service.
// Rules are evaluated in order and the first match wins.
type Classifier struct {
	rules    []Rule
	fallback string
}

// NewClassifier builds a classifier. Fallback is the reply when no rule matches.
func NewClassifier(rules []Rule, fallback string) *Classifier {
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		kw := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kw = append(kw, k)
			}
		}
		normalized = append(normalized, Rule{Intent: r.Intent, Keywords: kw, Reply: r.Reply})
	}
	return &Classifier{rules: normalized, fallback: fallback}
}

// Classify implements ports.Classifier.
func (c *Classifier) Classify(ctx context.Context, sessionID, utterance, languageCode string) (domain.ClassificationResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ClassificationResult{}, err
	}

	text := strings.ToLower(utterance)
	for _, r := range c.rules {
		for _, k := range r.Keywords {
			if strings.Contains(text, k) {
				reply := r.Reply
				if reply == "" {
					reply = c.fallback
				}
				return domain.ClassificationResult{IntentName: r.Intent, DefaultReply: reply, Confidence: 1}, nil
			}
		}
	}
	return domain.ClassificationResult{DefaultReply: c.fallback}, nil
}

var _ ports.Classifier = (*Classifier)(nil)
