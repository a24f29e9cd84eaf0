package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
)

// Registry maps component ids to their TurnProcessor.
// It is populated at startup and resolved by id on every delegated turn.
type Registry struct {
	mu         sync.RWMutex
	components map[string]ports.TurnProcessor
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]ports.TurnProcessor),
	}
}

// Register adds a component to the registry.
// If a component with the same id exists, it is overwritten.
func (r *Registry) Register(componentID string, p ports.TurnProcessor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[componentID] = p
}

// RegisterFunc is Register for plain functions.
func (r *Registry) RegisterFunc(componentID string, fn ports.TurnProcessorFunc) {
	r.Register(componentID, fn)
}

// Resolve looks up a component by id.
// Returns an error wrapping domain.ErrComponentNotFound if it is not registered.
func (r *Registry) Resolve(componentID string) (ports.TurnProcessor, error) {
	r.mu.RLock()
	p, ok := r.components[componentID]
	r.mu.RUnlock()

	if !ok || p == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrComponentNotFound, componentID)
	}
	return p, nil
}

// IDs returns the registered component ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.components))
	for id := range r.components {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ ports.ComponentResolver = (*Registry)(nil)
