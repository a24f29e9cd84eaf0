package process_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/relay/pkg/adapters/process"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(script string) process.Config {
	return process.Config{Command: "sh", Args: []string{"-c", script}}
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestRunner_JSONProtocol(t *testing.T) {
	skipOnWindows(t)

	r := process.NewRunner(process.WithRegistry(map[string]process.Config{
		"echo": shell(`read line; printf '{"reply": "got %s", "done": true}' "$RELAY_SESSION_ID"`),
	}))

	res, err := r.Run(context.Background(), "echo", "sess-9", "hello")
	require.NoError(t, err)
	assert.Equal(t, "got sess-9", res.Reply)
	assert.True(t, res.Done)
}

func TestRunner_ReadsTurnFromStdin(t *testing.T) {
	skipOnWindows(t)

	r := process.NewRunner()
	r.Register("cat", process.Config{Command: "cat"})

	// stdin is a JSON object without "reply", so it is echoed back verbatim.
	res, err := r.Run(context.Background(), "cat", "s1", "hi there")
	require.NoError(t, err)
	assert.Equal(t, `{"session_id":"s1","user_input":"hi there"}`, res.Reply)
	assert.False(t, res.Done)
}

func TestRunner_PlainTextReply(t *testing.T) {
	skipOnWindows(t)

	r := process.NewRunner()
	r.Register("plain", shell(`echo "  What's your name?  "`))

	res, err := r.Run(context.Background(), "plain", "s", "x")
	require.NoError(t, err)
	assert.Equal(t, "What's your name?", res.Reply)
	assert.False(t, res.Done)
}

func TestRunner_Env(t *testing.T) {
	skipOnWindows(t)

	r := process.NewRunner()
	r.Register("env", process.Config{
		Command: "sh",
		Args:    []string{"-c", `echo "$GREETING"`},
		Env:     map[string]string{"GREETING": "hola"},
	})

	res, err := r.Run(context.Background(), "env", "s", "x")
	require.NoError(t, err)
	assert.Equal(t, "hola", res.Reply)
}

func TestRunner_NonZeroExit(t *testing.T) {
	skipOnWindows(t)

	r := process.NewRunner()
	r.Register("crashy", shell(`echo "Something went terribly wrong" >&2; exit 123`))

	_, err := r.Run(context.Background(), "crashy", "s", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTurnProcessingFailed)
	assert.Contains(t, err.Error(), "exit status 123")
	assert.Contains(t, err.Error(), "Something went terribly wrong")
}

func TestRunner_Timeout(t *testing.T) {
	skipOnWindows(t)

	r := process.NewRunner(process.WithGracePeriod(500 * time.Millisecond))
	r.Register("slow", shell(`sleep 5`))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, "slow", "s", "x")
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.ErrorIs(t, err, domain.ErrTurnProcessingFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunner_Unregistered(t *testing.T) {
	r := process.NewRunner()

	_, err := r.Run(context.Background(), "hacker_script", "s", "x")
	assert.ErrorIs(t, err, domain.ErrComponentNotFound)

	_, err = r.Component("hacker_script")
	assert.ErrorIs(t, err, domain.ErrComponentNotFound)
}

func TestRunner_Component(t *testing.T) {
	skipOnWindows(t)

	r := process.NewRunner()
	r.Register("b", shell(`echo b`))
	r.Register("a", shell(`echo '{"reply": "a", "done": false}'`))
	assert.Equal(t, []string{"a", "b"}, r.Names())

	c, err := r.Component("a")
	require.NoError(t, err)

	res, err := c.Process(context.Background(), "s", "x")
	require.NoError(t, err)
	assert.Equal(t, "a", res.Reply)
}
