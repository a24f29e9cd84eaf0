package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/relay"
	"github.com/aretw0/relay/internal/logging"
	"github.com/aretw0/relay/pkg/adapters/coco"
	"github.com/aretw0/relay/pkg/adapters/dialogflow"
	"github.com/aretw0/relay/pkg/adapters/memory"
	"github.com/aretw0/relay/pkg/adapters/process"
	redisadapter "github.com/aretw0/relay/pkg/adapters/redis"
	"github.com/aretw0/relay/pkg/adapters/static"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/persistence/middleware"
	"github.com/aretw0/relay/pkg/ports"
	"github.com/aretw0/relay/pkg/registry"
)

// Build assembles a Router from cfg. Extra options are applied last.
func Build(ctx context.Context, cfg *Config, logger *slog.Logger, opts ...relay.Option) (*relay.Router, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	classifier, err := NewClassifier(ctx, cfg.Classifier, logger)
	if err != nil {
		return nil, err
	}
	components, err := NewRegistry(cfg.Components, logger)
	if err != nil {
		return nil, err
	}
	store, locker, closer, err := NewStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	policy, err := relay.ParseClassifyPolicy(cfg.Controller.ClassifyPolicy)
	if err != nil {
		return nil, err
	}

	base := []relay.Option{
		relay.WithTriggers(domain.TriggerTable(cfg.Triggers)),
		relay.WithStore(middleware.Chain(store, middleware.NewTracing(cfg.Store.Type))),
		relay.WithLanguageCode(cfg.Classifier.LanguageCode),
		relay.WithClassifyTimeout(cfg.Classifier.Timeout),
		relay.WithProcessTimeout(cfg.Controller.ProcessTimeout),
		relay.WithClassifyPolicy(policy),
		relay.WithLogger(logger),
		relay.WithCloser(closer),
	}
	if locker != nil {
		base = append(base, relay.WithLocker(locker, cfg.Store.LockTTL))
	}
	return relay.New(classifier, components, append(base, opts...)...), nil
}

// NewClassifier creates the configured NLU adapter.
func NewClassifier(ctx context.Context, cfg ClassifierConfig, logger *slog.Logger) (ports.Classifier, error) {
	switch cfg.Type {
	case ClassifierStatic:
		return static.NewClassifier(cfg.Intents, cfg.Fallback), nil
	case ClassifierDialogflow:
		opts := []dialogflow.Option{
			dialogflow.WithEndpoint(cfg.Endpoint),
			dialogflow.WithLogger(logger),
		}
		switch {
		case cfg.CredentialsFile != "":
			return dialogflow.NewFromCredentialsFile(ctx, cfg.CredentialsFile, cfg.ProjectID, opts...)
		case cfg.Endpoint != "":
			// Emulators and authenticating proxies take no Google credentials.
			return dialogflow.New(cfg.ProjectID, opts...)
		default:
			return dialogflow.NewFromDefaultCredentials(ctx, cfg.ProjectID, opts...)
		}
	default:
		return nil, fmt.Errorf("unknown classifier type %q", cfg.Type)
	}
}

// NewRegistry creates the component registry. Process components share one allow-listed runner.
func NewRegistry(components map[string]ComponentConfig, logger *slog.Logger) (*registry.Registry, error) {
	reg := registry.NewRegistry()
	runner := process.NewRunner(process.WithLogger(logger))

	for _, id := range sortedKeys(components) {
		cfg := components[id]
		switch cfg.Type {
		case ComponentCoco:
			c, err := coco.New(id,
				coco.WithBaseURL(cfg.URL),
				coco.WithAPIKey(cfg.APIKey),
				coco.WithLogger(logger),
			)
			if err != nil {
				return nil, err
			}
			reg.Register(id, c)
		case ComponentProcess:
			runner.Register(id, process.Config{
				Command: cfg.Command,
				Args:    cfg.Args,
				Env:     cfg.Env,
				Dir:     cfg.Dir,
			})
			p, err := runner.Component(id)
			if err != nil {
				return nil, err
			}
			reg.Register(id, p)
		case ComponentStatic:
			c, err := static.NewComponent(cfg.Prompts...)
			if err != nil {
				return nil, fmt.Errorf("component %s: %w", id, err)
			}
			reg.Register(id, c)
		default:
			return nil, fmt.Errorf("component %s: unknown type %q", id, cfg.Type)
		}
	}
	return reg, nil
}

// NewStore creates the state store, plus a distributed locker when the store is shared.
// The returned func releases the store's connections.
func NewStore(ctx context.Context, cfg StoreConfig) (ports.StateStore, ports.DistributedLocker, func() error, error) {
	switch cfg.Type {
	case StoreMemory, "":
		return memory.NewStore(), nil, func() error { return nil }, nil
	case StoreRedis:
		opts := []redisadapter.Option{redisadapter.WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redisadapter.WithPrefix(cfg.Redis.Prefix))
		}
		store := redisadapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, nil, fmt.Errorf("redis unreachable at %s: %w", cfg.Redis.Addr, err)
		}
		return store, redisadapter.NewLocker(store.Client(), store.Prefix()), store.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}
