package ports_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
)

// MockStore is an in-memory implementation of StateStore for testing purposes.
type MockStore struct {
	mu   sync.Mutex
	data map[string]domain.ControlState
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]domain.ControlState),
	}
}

func (m *MockStore) Save(ctx context.Context, sessionID string, state *domain.ControlState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sessionID] = *state
	return nil
}

func (m *MockStore) Load(ctx context.Context, sessionID string) (*domain.ControlState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &state, nil
}

func (m *MockStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestStateStore_Contract(t *testing.T) {
	// The mock doubles as a reference implementation for adapters.
	ports.RunStateStoreContract(t, NewMockStore())
}

func TestFuncAdapters(t *testing.T) {
	ctx := context.Background()

	var classifier ports.Classifier = ports.ClassifierFunc(func(ctx context.Context, sessionID, utterance, lang string) (domain.ClassificationResult, error) {
		return domain.ClassificationResult{IntentName: "greet", DefaultReply: "hi " + sessionID + "/" + lang}, nil
	})
	res, err := classifier.Classify(ctx, "s1", "hello", "en")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if res.DefaultReply != "hi s1/en" {
		t.Errorf("unexpected reply %q", res.DefaultReply)
	}

	var proc ports.TurnProcessor = ports.TurnProcessorFunc(func(ctx context.Context, sessionID, input string) (domain.TurnResult, error) {
		return domain.TurnResult{Reply: input, Done: true}, nil
	})
	out, err := proc.Process(ctx, "s1", "echo")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out.Reply != "echo" || !out.Done {
		t.Errorf("unexpected turn result %+v", out)
	}
}
