package testutils

import (
	"context"
	"sync"

	"github.com/aretw0/relay/pkg/domain"
)

// FakeClassifier returns canned classifications keyed by utterance.
// Unknown utterances classify as no intent with DefaultReply.
type FakeClassifier struct {
	mu sync.Mutex

	Results      map[string]domain.ClassificationResult
	DefaultReply string
	Err          error

	Calls []ClassifyCall
}

// ClassifyCall records one call to FakeClassifier.
type ClassifyCall struct {
	SessionID    string
	Utterance    string
	LanguageCode string
}

// Classify implements ports.Classifier.
func (f *FakeClassifier) Classify(ctx context.Context, sessionID, utterance, languageCode string) (domain.ClassificationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, ClassifyCall{SessionID: sessionID, Utterance: utterance, LanguageCode: languageCode})
	if f.Err != nil {
		return domain.ClassificationResult{}, f.Err
	}
	if r, ok := f.Results[utterance]; ok {
		return r, nil
	}
	return domain.ClassificationResult{DefaultReply: f.DefaultReply}, nil
}

// CallCount returns how many times Classify ran.
func (f *FakeClassifier) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// ScriptedComponent replays a fixed list of turn results, one per call, per session.
// After the script runs out it keeps returning the last entry.
type ScriptedComponent struct {
	mu     sync.Mutex
	Script []domain.TurnResult
	Err    error

	cursor map[string]int
	Inputs []string
}

// Process implements ports.TurnProcessor.
func (s *ScriptedComponent) Process(ctx context.Context, sessionID, input string) (domain.TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Inputs = append(s.Inputs, input)
	if s.Err != nil {
		return domain.TurnResult{}, s.Err
	}
	if len(s.Script) == 0 {
		return domain.TurnResult{}, nil
	}
	if s.cursor == nil {
		s.cursor = make(map[string]int)
	}
	i := s.cursor[sessionID]
	if i >= len(s.Script) {
		i = len(s.Script) - 1
	}
	s.cursor[sessionID] = i + 1
	return s.Script[i], nil
}

// SetErr changes the failure mode between turns.
func (s *ScriptedComponent) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

// CallCount returns how many times Process ran.
func (s *ScriptedComponent) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Inputs)
}
