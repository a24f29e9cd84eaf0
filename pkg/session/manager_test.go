package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/relay/pkg/adapters/memory"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
	"github.com/aretw0/relay/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.ControlState, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Load(ctx, sessionID)
}

func (s *SlowStore) Save(ctx context.Context, sessionID string, state *domain.ControlState) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, sessionID, state)
}

func TestManager_SerializesReadModifyWrite(t *testing.T) {
	manager := session.NewManager(&SlowStore{memory.NewStore()})
	ctx := context.Background()
	id := "race-test"

	var wg sync.WaitGroup
	workers := 10

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, id, func(ctx context.Context) error {
				state, err := manager.LoadUnlocked(ctx, id)
				if err != nil {
					return err
				}
				state.Turns++
				return manager.SaveUnlocked(ctx, id, state)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, workers, state.Turns, "lost updates mean turns were interleaved")
}

func TestManager_DifferentSessionsDoNotBlock(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	holding := make(chan struct{})
	releaseA := make(chan struct{})
	doneA := make(chan struct{})

	go func() {
		defer close(doneA)
		_ = manager.WithLock(ctx, "a", func(context.Context) error {
			close(holding)
			<-releaseA
			return nil
		})
	}()
	<-holding

	finished := make(chan struct{})
	go func() {
		_ = manager.WithLock(ctx, "b", func(context.Context) error { return nil })
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("session b was blocked by session a")
	}

	close(releaseA)
	<-doneA
}

func TestManager_LoadOrNew(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	state, err := manager.LoadOrNew(ctx, "fresh")
	require.NoError(t, err)
	assert.False(t, state.IsOwned())
	assert.Equal(t, "fresh", state.SessionID)

	// Not persisted until a turn commits
	_, err = manager.Load(ctx, "fresh")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

type failingStore struct{ memory.Store }

func (f *failingStore) Load(ctx context.Context, sessionID string) (*domain.ControlState, error) {
	return nil, errors.New("backend down")
}

func TestManager_LoadUnlocked_PropagatesStoreErrors(t *testing.T) {
	manager := session.NewManager(&failingStore{})
	_, err := manager.LoadOrNew(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}

type countingLocker struct {
	locks   atomic.Int32
	unlocks atomic.Int32
	ttl     time.Duration
}

func (c *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	c.locks.Add(1)
	c.ttl = ttl
	return func(ctx context.Context) error {
		c.unlocks.Add(1)
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &countingLocker{}
	manager := session.NewManager(memory.NewStore(),
		session.WithLocker(locker),
		session.WithLockTTL(3*time.Second),
	)

	err := manager.Save(context.Background(), "s", domain.NewControlState("s"))
	require.NoError(t, err)

	assert.Equal(t, int32(1), locker.locks.Load())
	assert.Equal(t, int32(1), locker.unlocks.Load())
	assert.Equal(t, 3*time.Second, locker.ttl)
}

func TestManager_CanceledContext(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := manager.WithLock(ctx, "s", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
