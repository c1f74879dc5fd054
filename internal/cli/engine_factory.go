package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/config"
	"github.com/aretw0/waypoint/pkg/adapters/amqp"
	"github.com/aretw0/waypoint/pkg/adapters/file"
	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/adapters/postgres"
	"github.com/aretw0/waypoint/pkg/adapters/redis"
	"github.com/aretw0/waypoint/pkg/adapters/sqlite"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/observability"
	"github.com/aretw0/waypoint/pkg/persistence/middleware"
	"github.com/aretw0/waypoint/pkg/ports"
)

// publishTimeout bounds a single completion publish.
const publishTimeout = 5 * time.Second

// Runtime is an engine together with the resources its configuration opened.
type Runtime struct {
	Engine *waypoint.Engine

	// Metrics serves the Prometheus registry fed by the engine hooks.
	Metrics http.Handler

	// Checks are the health probes of the configured backends, by name.
	Checks map[string]func(context.Context) error

	closers []func() error
}

// Close releases every backend connection, in reverse order of opening.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runtime) onClose(fn func() error) {
	r.closers = append(r.closers, fn)
}

// NewRuntime builds an engine from cfg: flow loader, session store with its
// middleware, distributed locker, and the logging, metrics and publishing hooks.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{Checks: make(map[string]func(context.Context) error)}

	store, err := rt.openStore(ctx, cfg.Store, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	var mws []middleware.Middleware
	if len(cfg.Store.RedactKeys) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Store.RedactKeys)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("redact_keys: %w", err)
		}
		mws = append(mws, pii)
	}
	if cfg.Store.EncryptionKey != "" {
		key, err := middleware.DecodeKey(cfg.Store.EncryptionKey)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	store = middleware.Chain(store, mws...)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rt.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	hooks := []domain.LifecycleHooks{
		observability.LoggingHooks(logger),
		observability.NewMetrics(reg).Hooks(),
	}
	if cfg.Events.AMQPURL != "" {
		pub, err := amqp.Dial(cfg.Events.AMQPURL, cfg.Events.Exchange,
			amqp.WithLogger(logger),
			amqp.WithRoutingKey(cfg.Events.RoutingKey),
		)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.onClose(pub.Close)
		hooks = append(hooks, observability.PublishHooks(pub, logger, publishTimeout))
	}

	opts := []waypoint.Option{
		waypoint.WithLogger(logger),
		waypoint.WithStore(store),
		waypoint.WithLifecycleHooks(domain.Merge(hooks...)),
	}

	if cfg.Store.DistributedLock {
		client, err := redis.NewFromURL(cfg.Store.RedisURL)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.onClose(client.Close)
		opts = append(opts, waypoint.WithLocker(redis.NewLocker(client.Client(), cfg.Store.RedisPrefix)))
	}

	flowsDir := cfg.Flows.Dir
	if loader, bundled := flowLoader(flowsDir, logger); bundled {
		opts = append(opts, waypoint.WithLoader(loader))
		flowsDir = ""
	}

	eng, err := waypoint.New(ctx, flowsDir, opts...)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	rt.Engine = eng
	return rt, nil
}

// flowLoader falls back to the flows shipped in the binary when the default
// flows directory does not exist, so a bare `waypoint serve` works anywhere.
func flowLoader(dir string, logger *slog.Logger) (ports.FlowLoader, bool) {
	if dir != config.Default().Flows.Dir {
		return nil, false
	}
	if _, err := os.Stat(dir); err == nil {
		return nil, false
	}
	logger.Info("flows directory not found, using bundled flows", "dir", dir)
	return file.NewFSLoader(waypoint.BundledFlows(), file.WithLogger(logger)), true
}

func (rt *Runtime) openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (ports.SessionStore, error) {
	logger.Debug("opening session store", "backend", cfg.Backend)

	switch cfg.Backend {
	case "", "memory":
		return memory.NewStore(), nil

	case "file":
		return file.NewStore(cfg.Dir), nil

	case "redis":
		store, err := redis.NewFromURL(cfg.RedisURL, redis.WithPrefix(cfg.RedisPrefix), redis.WithTTL(cfg.TTL))
		if err != nil {
			return nil, err
		}
		rt.onClose(store.Close)
		rt.Checks["redis"] = store.Ping
		return store, nil

	case "sqlite":
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		rt.onClose(store.Close)
		rt.Checks["sqlite"] = store.Ping
		return store, nil

	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		store := postgres.New(pool)
		rt.onClose(func() error { store.Close(); return nil })
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		rt.Checks["postgres"] = store.Ping
		return store, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
