package middleware_test

import (
	"context"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
)

// recordingStore wraps a store and appends "<tag>:<op>" for every call.
type recordingStore struct {
	next ports.StateStore
	tag  string
	log  *[]string
}

func recorder(tag string, log *[]string) func(ports.StateStore) ports.StateStore {
	return func(next ports.StateStore) ports.StateStore {
		return &recordingStore{next: next, tag: tag, log: log}
	}
}

func (s *recordingStore) Save(ctx context.Context, sessionID string, state *domain.ControlState) error {
	*s.log = append(*s.log, s.tag+":save")
	return s.next.Save(ctx, sessionID, state)
}

func (s *recordingStore) Load(ctx context.Context, sessionID string) (*domain.ControlState, error) {
	*s.log = append(*s.log, s.tag+":load")
	return s.next.Load(ctx, sessionID)
}

func (s *recordingStore) Delete(ctx context.Context, sessionID string) error {
	*s.log = append(*s.log, s.tag+":delete")
	return s.next.Delete(ctx, sessionID)
}

func (s *recordingStore) List(ctx context.Context) ([]string, error) {
	*s.log = append(*s.log, s.tag+":list")
	return s.next.List(ctx)
}

// failingStore fails every call with err.
type failingStore struct{ err error }

func (s failingStore) Save(context.Context, string, *domain.ControlState) error { return s.err }
func (s failingStore) Load(context.Context, string) (*domain.ControlState, error) {
	return nil, s.err
}
func (s failingStore) Delete(context.Context, string) error   { return s.err }
func (s failingStore) List(context.Context) ([]string, error) { return nil, s.err }

var _ ports.StateStore = (*recordingStore)(nil)
var _ ports.StateStore = failingStore{}
