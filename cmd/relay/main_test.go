package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
classifier:
  type: static
  intents:
    - intent: account.open
      keywords: [account]
components:
  register_vp3:
    type: static
    prompts: ["What's your name?", "Account created."]
triggers:
  account.open: register_vp3
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		_ = graphCmd.Flags().Set("session", "")
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "relay version "+relay.Version+"\n", out)
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", "--config", writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Contains(t, out, "account.open -> register_vp3")
	assert.Contains(t, out, "Configuration is valid! (static classifier, 1 components, 1 triggers)")
}

func TestValidateCommand_DanglingTrigger(t *testing.T) {
	_, err := run(t, "validate", "--config", writeConfig(t, sampleConfig+"  loan.apply: ghost\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestGraphCommand(t *testing.T) {
	out, err := run(t, "graph", "--config", writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, `classifier -- "account.open" --> register_vp3`)
}

func TestGraphCommand_UnknownSession(t *testing.T) {
	out, err := run(t, "graph", "--config", writeConfig(t, sampleConfig), "--session", "nobody")
	require.NoError(t, err)
	assert.Contains(t, out, "class classifier current;")
}

func TestSessionLs_MemoryStoreIsEmpty(t *testing.T) {
	out, err := run(t, "session", "ls", "--config", writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Contains(t, out, "No active sessions found.")
}
