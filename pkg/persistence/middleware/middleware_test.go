package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/relay/pkg/adapters/memory"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/persistence/middleware"
	"github.com/aretw0/relay/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracing_Contract(t *testing.T) {
	store := middleware.Chain(memory.NewStore(), middleware.NewTracing("memory"))
	ports.RunStateStoreContract(t, store)
}

func TestChain_Order(t *testing.T) {
	var log []string
	store := middleware.Chain(memory.NewStore(),
		recorder("outer", &log),
		recorder("inner", &log),
	)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "s", domain.NewControlState("s")))
	_, err := store.Load(ctx, "s")
	require.NoError(t, err)

	assert.Equal(t, []string{"outer:save", "inner:save", "outer:load", "inner:load"}, log)
}

func TestChain_Empty(t *testing.T) {
	base := memory.NewStore()
	assert.Same(t, ports.StateStore(base), middleware.Chain(base))
}

func TestTracing_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	store := middleware.NewTracing("redis")(failingStore{err: boom})
	ctx := context.Background()

	assert.ErrorIs(t, store.Save(ctx, "s", domain.NewControlState("s")), boom)
	_, err := store.Load(ctx, "s")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, store.Delete(ctx, "s"), boom)
	_, err = store.List(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestTracing_NotFoundPassesThrough(t *testing.T) {
	store := middleware.NewTracing("memory")(memory.NewStore())
	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
