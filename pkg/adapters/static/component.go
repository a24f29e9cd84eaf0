package static

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
)

// Component replies with a fixed sequence of prompts, one per turn, and
// reports done with the last one. Each session has its own cursor, which
// restarts once the sequence completes or the session is reset.
type Component struct {
	prompts []string

	mu      sync.Mutex
	cursors map[string]int
}

// NewComponent creates a prompt-list component.
func NewComponent(prompts ...string) (*Component, error) {
	if len(prompts) == 0 {
		return nil, fmt.Errorf("static component requires at least one prompt")
	}
	return &Component{
		prompts: append([]string(nil), prompts...),
		cursors: make(map[string]int),
	}, nil
}

// Process implements ports.TurnProcessor.
func (c *Component) Process(ctx context.Context, sessionID, input string) (domain.TurnResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.TurnResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.cursors[sessionID]
	done := i == len(c.prompts)-1
	if done {
		delete(c.cursors, sessionID)
	} else {
		c.cursors[sessionID] = i + 1
	}
	return domain.TurnResult{Reply: c.prompts[i], Done: done}, nil
}

// ResetSession implements ports.SessionResetter by rewinding the session's cursor.
func (c *Component) ResetSession(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cursors, sessionID)
	return nil
}

var (
	_ ports.TurnProcessor   = (*Component)(nil)
	_ ports.SessionResetter = (*Component)(nil)
)
