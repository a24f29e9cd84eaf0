package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/relay/internal/logging"
	"github.com/aretw0/relay/internal/runtime"
	"github.com/aretw0/relay/pkg/adapters/static"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given and the file exists.
const DefaultPath = "relay.yaml"

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig               `mapstructure:"server"`
	Classifier ClassifierConfig           `mapstructure:"classifier"`
	Controller ControllerConfig           `mapstructure:"controller"`
	Triggers   map[string]string          `mapstructure:"triggers"`
	Components map[string]ComponentConfig `mapstructure:"components"`
	Store      StoreConfig                `mapstructure:"store"`
	Log        LogConfig                  `mapstructure:"log"`
	Metrics    MetricsConfig              `mapstructure:"metrics"`
}

type ServerConfig struct {
	Addr             string        `mapstructure:"addr"`
	StaticDir        string        `mapstructure:"static_dir"`
	ValidateRequests bool          `mapstructure:"validate_requests"`
	CookieName       string        `mapstructure:"cookie_name"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
}

// ClassifierConfig selects the NLU backend.
type ClassifierConfig struct {
	Type            string        `mapstructure:"type"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	ProjectID       string        `mapstructure:"project_id"`
	Endpoint        string        `mapstructure:"endpoint"`
	LanguageCode    string        `mapstructure:"language_code"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Fallback        string        `mapstructure:"fallback"`
	Intents         []static.Rule `mapstructure:"intents"`
}

type ControllerConfig struct {
	ClassifyPolicy string        `mapstructure:"classify_policy"`
	ProcessTimeout time.Duration `mapstructure:"process_timeout"`
}

// ComponentConfig describes one conversational component. Which fields apply depends on Type.
type ComponentConfig struct {
	Type    string            `mapstructure:"type"`
	URL     string            `mapstructure:"url"`
	APIKey  string            `mapstructure:"api_key"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
	Dir     string            `mapstructure:"dir"`
	Prompts []string          `mapstructure:"prompts"`
}

type StoreConfig struct {
	Type    string        `mapstructure:"type"`
	Redis   RedisConfig   `mapstructure:"redis"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Classifier and component types.
const (
	ClassifierDialogflow = "dialogflow"
	ClassifierStatic     = "static"

	ComponentCoco    = "coco"
	ComponentProcess = "process"
	ComponentStatic  = "static"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Default returns the configuration used for keys absent from file and environment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			CookieName:      "relay_session",
			ShutdownTimeout: 5 * time.Second,
		},
		Classifier: ClassifierConfig{
			Type:         ClassifierStatic,
			LanguageCode: "en",
			Timeout:      runtime.DefaultCallTimeout,
			Fallback:     "I didn't understand.",
		},
		Controller: ControllerConfig{
			ClassifyPolicy: string(runtime.ClassifyShadow),
			ProcessTimeout: runtime.DefaultCallTimeout,
		},
		Triggers:   map[string]string{},
		Components: map[string]ComponentConfig{},
		Store: StoreConfig{
			Type:    StoreMemory,
			Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "relay:session:"},
			LockTTL: 30 * time.Second,
		},
		Log:     LogConfig{Level: "info"},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// envBindings maps environment variables to config keys.
var envBindings = map[string][]string{
	"RELAY_SERVER_ADDR":                 {"server", "addr"},
	"RELAY_SERVER_STATIC_DIR":           {"server", "static_dir"},
	"RELAY_SERVER_VALIDATE_REQUESTS":    {"server", "validate_requests"},
	"RELAY_SERVER_COOKIE_NAME":          {"server", "cookie_name"},
	"RELAY_CLASSIFIER_TYPE":             {"classifier", "type"},
	"RELAY_CLASSIFIER_CREDENTIALS_FILE": {"classifier", "credentials_file"},
	"RELAY_CLASSIFIER_PROJECT_ID":       {"classifier", "project_id"},
	"RELAY_CLASSIFIER_ENDPOINT":         {"classifier", "endpoint"},
	"RELAY_CLASSIFIER_LANGUAGE_CODE":    {"classifier", "language_code"},
	"RELAY_CLASSIFIER_TIMEOUT":          {"classifier", "timeout"},
	"RELAY_CONTROLLER_CLASSIFY_POLICY":  {"controller", "classify_policy"},
	"RELAY_CONTROLLER_PROCESS_TIMEOUT":  {"controller", "process_timeout"},
	"RELAY_STORE_TYPE":                  {"store", "type"},
	"RELAY_STORE_LOCK_TTL":              {"store", "lock_ttl"},
	"RELAY_REDIS_ADDR":                  {"store", "redis", "addr"},
	"RELAY_REDIS_PASSWORD":              {"store", "redis", "password"},
	"RELAY_REDIS_DB":                    {"store", "redis", "db"},
	"RELAY_REDIS_PREFIX":                {"store", "redis", "prefix"},
	"RELAY_REDIS_TTL":                   {"store", "redis", "ttl"},
	"RELAY_LOG_LEVEL":                   {"log", "level"},
	"RELAY_METRICS_ENABLED":             {"metrics", "enabled"},
}

// Load reads the YAML file at path (optional when empty), applies RELAY_*
// environment overrides and decodes the result over Default().
func Load(path string) (*Config, error) {
	raw := map[string]interface{}{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]interface{}{}
		}
	}

	applyEnv(raw, os.LookupEnv)

	cfg := Default()
	if err := decode(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML bytes without consulting the environment.
func Parse(data []byte) (*Config, error) {
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg := Default()
	if err := decode(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(raw map[string]interface{}, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(raw map[string]interface{}, lookup func(string) (string, bool)) {
	for name, path := range envBindings {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		node := raw
		for _, key := range path[:len(path)-1] {
			next, ok := node[key].(map[string]interface{})
			if !ok {
				next = map[string]interface{}{}
				node[key] = next
			}
			node = next
		}
		node[path[len(path)-1]] = v
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Addr == "" {
		add("server.addr is required")
	}

	switch c.Classifier.Type {
	case ClassifierDialogflow:
		if c.Classifier.CredentialsFile == "" && c.Classifier.ProjectID == "" {
			add("classifier: dialogflow requires credentials_file or project_id")
		}
	case ClassifierStatic:
	default:
		add("classifier.type %q is unknown (want dialogflow or static)", c.Classifier.Type)
	}
	if c.Classifier.Timeout < 0 {
		add("classifier.timeout must not be negative")
	}

	if _, err := runtime.ParseClassifyPolicy(c.Controller.ClassifyPolicy); err != nil {
		add("controller.classify_policy: %v", err)
	}
	if c.Controller.ProcessTimeout < 0 {
		add("controller.process_timeout must not be negative")
	}

	for _, intent := range sortedKeys(c.Triggers) {
		target := c.Triggers[intent]
		if strings.TrimSpace(intent) == "" {
			add("triggers: empty intent name")
			continue
		}
		if _, ok := c.Components[target]; !ok {
			add("triggers: intent %q targets unknown component %q", intent, target)
		}
	}

	for _, id := range sortedKeys(c.Components) {
		comp := c.Components[id]
		if id == domain.ResponderClassifier {
			add("components.%s: id is reserved for the classifier", id)
		}
		switch comp.Type {
		case ComponentCoco:
		case ComponentProcess:
			if comp.Command == "" {
				add("components.%s: process requires command", id)
			}
		case ComponentStatic:
			if len(comp.Prompts) == 0 {
				add("components.%s: static requires prompts", id)
			}
		default:
			add("components.%s: type %q is unknown (want coco, process or static)", id, comp.Type)
		}
	}

	switch c.Store.Type {
	case StoreMemory:
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			add("store.redis.addr is required")
		}
	default:
		add("store.type %q is unknown (want memory or redis)", c.Store.Type)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level: %v", err)
	}

	return errors.Join(errs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
