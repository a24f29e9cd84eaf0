package registry_test

import (
	"context"
	"testing"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	reg := registry.NewRegistry()
	reg.RegisterFunc("register_vp3", func(ctx context.Context, sessionID, input string) (domain.TurnResult, error) {
		return domain.TurnResult{Reply: "What's your name?"}, nil
	})

	p, err := reg.Resolve("register_vp3")
	require.NoError(t, err)
	res, err := p.Process(context.Background(), "s1", "open an account")
	require.NoError(t, err)
	assert.Equal(t, "What's your name?", res.Reply)

	_, err = reg.Resolve("missing")
	assert.ErrorIs(t, err, domain.ErrComponentNotFound)
	assert.Contains(t, err.Error(), "missing")
}

func TestRegistry_Overwrite(t *testing.T) {
	reg := registry.NewRegistry()
	reg.RegisterFunc("c", func(ctx context.Context, sessionID, input string) (domain.TurnResult, error) {
		return domain.TurnResult{Reply: "first"}, nil
	})
	reg.RegisterFunc("c", func(ctx context.Context, sessionID, input string) (domain.TurnResult, error) {
		return domain.TurnResult{Reply: "second"}, nil
	})

	p, err := reg.Resolve("c")
	require.NoError(t, err)
	res, _ := p.Process(context.Background(), "s", "x")
	assert.Equal(t, "second", res.Reply)
	assert.Equal(t, []string{"c"}, reg.IDs())
}

func TestRegistry_NilProcessorIsNotFound(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("nil", nil)
	_, err := reg.Resolve("nil")
	assert.ErrorIs(t, err, domain.ErrComponentNotFound)
}
