package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/relay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
server:
  addr: ":9090"
  static_dir: ./static
classifier:
  type: dialogflow
  credentials_file: banking.json
  timeout: 3s
controller:
  classify_policy: skip
  process_timeout: 1500ms
triggers:
  account.open: register_vp3
components:
  register_vp3:
    type: coco
    api_key: secret
  echo:
    type: process
    command: ./echo.sh
    args: [--json]
    env:
      MODE: demo
store:
  type: redis
  redis:
    addr: redis:6379
    ttl: 24h
log:
  level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "./static", cfg.Server.StaticDir)
	assert.Equal(t, "relay_session", cfg.Server.CookieName, "defaults survive")
	assert.Equal(t, "dialogflow", cfg.Classifier.Type)
	assert.Equal(t, 3*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, "en", cfg.Classifier.LanguageCode)
	assert.Equal(t, "skip", cfg.Controller.ClassifyPolicy)
	assert.Equal(t, 1500*time.Millisecond, cfg.Controller.ProcessTimeout)
	assert.Equal(t, "register_vp3", cfg.Triggers["account.open"])
	assert.Equal(t, "secret", cfg.Components["register_vp3"].APIKey)
	assert.Equal(t, []string{"--json"}, cfg.Components["echo"].Args)
	assert.Equal(t, "demo", cfg.Components["echo"].Env["MODE"])
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Store.Redis.TTL)
	assert.Equal(t, "relay:session:", cfg.Store.Redis.Prefix)
	assert.Equal(t, "debug", cfg.Log.Level)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RELAY_SERVER_ADDR", ":7070")
	t.Setenv("RELAY_REDIS_ADDR", "cache:6379")
	t.Setenv("RELAY_REDIS_DB", "3")
	t.Setenv("RELAY_METRICS_ENABLED", "false")
	t.Setenv("RELAY_CLASSIFIER_TIMEOUT", "250ms")

	cfg, err := config.Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "cache:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 3, cfg.Store.Redis.DB)
	assert.Equal(t, 24*time.Hour, cfg.Store.Redis.TTL, "sibling keys from the file are kept")
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Classifier.Timeout)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default().Server.Addr, cfg.Server.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)

	_, err = config.Load(writeConfig(t, "server:\n  adress: typo\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = config.Load(writeConfig(t, "classifier:\n  timeout: soon\n"))
	assert.Error(t, err)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestParse_StaticIntents(t *testing.T) {
	cfg, err := config.Parse([]byte(`
classifier:
  type: static
  fallback: Sorry?
  intents:
    - intent: account.open
      keywords: [open an account, new account]
      reply: Sure.
components:
  register_vp3:
    type: static
    prompts: ["What's your name?", "Done."]
triggers:
  account.open: register_vp3
`))
	require.NoError(t, err)
	require.Len(t, cfg.Classifier.Intents, 1)
	assert.Equal(t, "account.open", cfg.Classifier.Intents[0].Intent)
	assert.Equal(t, []string{"open an account", "new account"}, cfg.Classifier.Intents[0].Keywords)
	assert.Equal(t, "Sorry?", cfg.Classifier.Fallback)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		mutate func(*config.Config)
		want   string
	}{
		"unknown trigger target": {
			mutate: func(c *config.Config) { c.Triggers["account.open"] = "ghost" },
			want:   `unknown component "ghost"`,
		},
		"empty intent": {
			mutate: func(c *config.Config) { c.Triggers[""] = "x" },
			want:   "empty intent",
		},
		"unknown component type": {
			mutate: func(c *config.Config) { c.Components["x"] = config.ComponentConfig{Type: "grpc"} },
			want:   `type "grpc" is unknown`,
		},
		"process without command": {
			mutate: func(c *config.Config) { c.Components["x"] = config.ComponentConfig{Type: "process"} },
			want:   "process requires command",
		},
		"static without prompts": {
			mutate: func(c *config.Config) { c.Components["x"] = config.ComponentConfig{Type: "static"} },
			want:   "static requires prompts",
		},
		"reserved component id": {
			mutate: func(c *config.Config) {
				c.Components["classifier"] = config.ComponentConfig{Type: "static", Prompts: []string{"hi"}}
			},
			want: "reserved for the classifier",
		},
		"unknown classifier": {
			mutate: func(c *config.Config) { c.Classifier.Type = "rasa" },
			want:   "classifier.type",
		},
		"dialogflow without credentials": {
			mutate: func(c *config.Config) { c.Classifier.Type = "dialogflow" },
			want:   "credentials_file or project_id",
		},
		"bad policy": {
			mutate: func(c *config.Config) { c.Controller.ClassifyPolicy = "sometimes" },
			want:   "classify_policy",
		},
		"negative timeout": {
			mutate: func(c *config.Config) { c.Controller.ProcessTimeout = -time.Second },
			want:   "process_timeout",
		},
		"unknown store": {
			mutate: func(c *config.Config) { c.Store.Type = "etcd" },
			want:   "store.type",
		},
		"redis without addr": {
			mutate: func(c *config.Config) { c.Store.Type = "redis"; c.Store.Redis.Addr = "" },
			want:   "store.redis.addr",
		},
		"bad log level": {
			mutate: func(c *config.Config) { c.Log.Level = "loud" },
			want:   "log.level",
		},
		"empty addr": {
			mutate: func(c *config.Config) { c.Server.Addr = "" },
			want:   "server.addr",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = ""
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.addr")
	assert.Contains(t, err.Error(), "log.level")
}
