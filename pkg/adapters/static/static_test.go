package static_test

import (
	"context"
	"testing"

	"github.com/aretw0/relay/pkg/adapters/static"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier(t *testing.T) {
	c := static.NewClassifier([]static.Rule{
		{Intent: "account.open", Keywords: []string{"Open an Account", "new account"}, Reply: "Let's open it."},
		{Intent: "loan.apply", Keywords: []string{"loan"}},
	}, "I didn't understand.")

	ctx := context.Background()

	res, err := c.Classify(ctx, "s", "I want to open an account please", "en")
	require.NoError(t, err)
	assert.Equal(t, "account.open", res.IntentName)
	assert.Equal(t, "Let's open it.", res.DefaultReply)

	res, err = c.Classify(ctx, "s", "LOAN", "en")
	require.NoError(t, err)
	assert.Equal(t, "loan.apply", res.IntentName)
	assert.Equal(t, "I didn't understand.", res.DefaultReply, "rule without reply uses the fallback")

	res, err = c.Classify(ctx, "s", "hello", "en")
	require.NoError(t, err)
	assert.Empty(t, res.IntentName)
	assert.Equal(t, "I didn't understand.", res.DefaultReply)
}

func TestClassifier_IgnoresBlankKeywords(t *testing.T) {
	c := static.NewClassifier([]static.Rule{{Intent: "x", Keywords: []string{"  ", ""}}}, "fallback")

	res, err := c.Classify(context.Background(), "s", "anything", "en")
	require.NoError(t, err)
	assert.Empty(t, res.IntentName)
}

func TestClassifier_CanceledContext(t *testing.T) {
	c := static.NewClassifier(nil, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Classify(ctx, "s", "hi", "en")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComponent_Sequence(t *testing.T) {
	c, err := static.NewComponent("What's your name?", "Account created.")
	require.NoError(t, err)
	ctx := context.Background()

	r, err := c.Process(ctx, "a", "hi")
	require.NoError(t, err)
	assert.Equal(t, "What's your name?", r.Reply)
	assert.False(t, r.Done)

	// Another session has its own cursor.
	r, err = c.Process(ctx, "b", "hi")
	require.NoError(t, err)
	assert.Equal(t, "What's your name?", r.Reply)

	r, err = c.Process(ctx, "a", "Ana")
	require.NoError(t, err)
	assert.Equal(t, "Account created.", r.Reply)
	assert.True(t, r.Done)

	// Restarts after completion.
	r, err = c.Process(ctx, "a", "again")
	require.NoError(t, err)
	assert.Equal(t, "What's your name?", r.Reply)
}

func TestComponent_SinglePromptIsDoneImmediately(t *testing.T) {
	c, err := static.NewComponent("Done already.")
	require.NoError(t, err)

	r, err := c.Process(context.Background(), "s", "x")
	require.NoError(t, err)
	assert.True(t, r.Done)
}

func TestNewComponent_RequiresPrompts(t *testing.T) {
	_, err := static.NewComponent()
	assert.Error(t, err)
}

func TestComponent_ResetSessionRewindsCursor(t *testing.T) {
	c, err := static.NewComponent("What's your name?", "Your email?", "Account created.")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Process(ctx, "a", "hi")
	require.NoError(t, err)
	_, err = c.Process(ctx, "b", "hi")
	require.NoError(t, err)

	require.NoError(t, c.ResetSession(ctx, "a"))

	r, err := c.Process(ctx, "a", "hi")
	require.NoError(t, err)
	assert.Equal(t, "What's your name?", r.Reply)

	// Other sessions keep their place.
	r, err = c.Process(ctx, "b", "x")
	require.NoError(t, err)
	assert.Equal(t, "Your email?", r.Reply)
}
