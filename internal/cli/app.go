package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/relay"
	"github.com/aretw0/relay/internal/config"
	httpadapter "github.com/aretw0/relay/pkg/adapters/http"
	"github.com/aretw0/relay/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// App is a fully wired relay instance ready to be served.
type App struct {
	Router   *relay.Router
	Streams  *httpadapter.StreamManager
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Handler  http.Handler

	cfg    *config.Config
	logger *slog.Logger
}

// NewApp builds the router, observers and HTTP handler described by cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Streams: httpadapter.NewStreamManager(logger),
		cfg:     cfg,
		logger:  logger,
	}

	hooks := []relay.Option{
		relay.WithLifecycleHooks(observability.LogHooks(logger)),
		relay.WithLifecycleHooks(app.Streams.Hooks()),
	}

	httpOpts := []httpadapter.Option{
		httpadapter.WithStaticDir(cfg.Server.StaticDir),
		httpadapter.WithRequestValidation(cfg.Server.ValidateRequests),
		httpadapter.WithCookieName(cfg.Server.CookieName),
		httpadapter.WithStreams(app.Streams),
		httpadapter.WithLogger(logger),
	}

	if cfg.Metrics.Enabled {
		app.Registry = prometheus.NewRegistry()
		app.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m, err := observability.NewMetrics(app.Registry)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		app.Metrics = m
		hooks = append(hooks, relay.WithLifecycleHooks(m.Hooks()))
		httpOpts = append(httpOpts, httpadapter.WithMetricsHandler(
			promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}),
		))
	}

	router, err := config.Build(ctx, cfg, logger, hooks...)
	if err != nil {
		return nil, err
	}
	app.Router = router

	handler, err := httpadapter.NewHandler(router, httpOpts...)
	if err != nil {
		_ = router.Close()
		return nil, err
	}
	app.Handler = handler
	return app, nil
}

// Serve listens on the configured address until ctx is canceled, then drains
// in-flight requests and closes the router.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("relay server listening", "addr", srv.Addr, "version", relay.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := a.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("graceful shutdown did not complete", "timeout", timeout, "err", err)
			return srv.Close()
		}
		a.logger.Info("relay server stopped")
		return nil
	})

	err := g.Wait()
	return errors.Join(err, a.Router.Close())
}
