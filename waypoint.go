package waypoint

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/internal/runtime"
	"github.com/aretw0/waypoint/pkg/adapters/file"
	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
	"github.com/aretw0/waypoint/pkg/registry"
	"github.com/aretw0/waypoint/pkg/session"
)

// Version is the release of the engine, reported by the CLI and HTTP /info.
const Version = "0.4.0"

//go:embed flows/*.json
var bundled embed.FS

// BundledFlows exposes the flows shipped with the module.
func BundledFlows() fs.FS {
	sub, err := fs.Sub(bundled, "flows")
	if err != nil {
		panic(err) // embed pattern guarantees the directory
	}
	return sub
}

// StartResult is returned by Engine.Start.
type StartResult = runtime.StartResult

// SubmitResult is returned by Engine.Submit.
type SubmitResult = runtime.SubmitResult

// Engine is the high-level entry point for the Waypoint library.
// It wires the flow registry, the session manager and the runtime together.
type Engine struct {
	runtime  *runtime.Engine
	registry *registry.Registry
	sessions *session.Manager
	loader   ports.FlowLoader
	store    ports.SessionStore
	locker   ports.DistributedLocker
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	idGen    func() string
	Name     string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLoader injects a custom FlowLoader, bypassing the default directory loader.
func WithLoader(l ports.FlowLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithStore sets the session store (in-memory by default).
func WithStore(s ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLocker enables distributed session locking across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithIDGenerator overrides how session ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.idGen = fn
	}
}

// New initializes a new Waypoint Engine and loads its flows.
// By default, it reads flow documents from flowsDir.
// If WithLoader option is provided, flowsDir can be empty.
func New(ctx context.Context, flowsDir string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	if eng.loader == nil {
		if flowsDir == "" {
			return nil, fmt.Errorf("flowsDir is required when no custom loader is provided")
		}
		absPath, err := filepath.Abs(flowsDir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(absPath)
		eng.loader = file.NewLoader(absPath, file.WithLogger(eng.logger))
	} else if flowsDir != "" {
		eng.Name = filepath.Base(flowsDir)
	}

	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	sessionOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(eng.store, sessionOpts...)
	eng.registry = registry.NewRegistry()

	runtimeOpts := []runtime.Option{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	if eng.idGen != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithIDGenerator(eng.idGen))
	}
	eng.runtime = runtime.NewEngine(eng.registry, eng.sessions, runtimeOpts...)

	if err := eng.Reload(ctx); err != nil {
		return nil, err
	}
	return eng, nil
}

// Start creates a session for flowID, positioned at its start node.
func (e *Engine) Start(ctx context.Context, flowID string) (*StartResult, error) {
	return e.runtime.Start(ctx, flowID)
}

// Submit records the answer for nodeID and advances the session.
func (e *Engine) Submit(ctx context.Context, sessionID, nodeID string, answer domain.Value) (*SubmitResult, error) {
	return e.runtime.Submit(ctx, sessionID, nodeID, answer)
}

// Session returns a snapshot of a stored session.
func (e *Engine) Session(ctx context.Context, sessionID string) (*domain.SessionContext, error) {
	return e.runtime.Session(ctx, sessionID)
}

// CurrentView returns the node the session is waiting on, or its result.
func (e *Engine) CurrentView(ctx context.Context, sessionID string) (*SubmitResult, error) {
	return e.runtime.CurrentView(ctx, sessionID)
}

// Sessions lists stored session ids.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.runtime.Sessions(ctx)
}

// DeleteSession removes a stored session.
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) error {
	return e.runtime.DeleteSession(ctx, sessionID)
}

// Flow looks up a loaded flow.
func (e *Engine) Flow(flowID string) (*domain.Flow, error) {
	return e.runtime.Flow(flowID)
}

// Flows lists loaded flows ordered by id.
func (e *Engine) Flows() []*domain.Flow {
	return e.runtime.Flows()
}

// Reload re-reads every flow from the loader and swaps them in at once.
// On failure the previously loaded flows stay active.
func (e *Engine) Reload(ctx context.Context) error {
	if err := e.registry.Load(ctx, e.loader); err != nil {
		return err
	}
	e.logger.Info("flows loaded", "count", len(e.registry.List()))
	return nil
}

// Watch returns a channel that signals when the underlying flows change.
// Returns error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan struct{}, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// AutoReload watches the loader and reloads flows on every change until ctx
// is done. onReload, if set, observes each attempt.
func (e *Engine) AutoReload(ctx context.Context, onReload func(error)) error {
	changes, err := e.Watch(ctx)
	if err != nil {
		return err
	}
	go func() {
		for range changes {
			err := e.Reload(ctx)
			if err != nil {
				e.logger.Error("flow reload failed; keeping previous flows", "err", err)
			}
			if onReload != nil {
				onReload(err)
			}
		}
	}()
	return nil
}

// Loader returns the FlowLoader used by the engine.
func (e *Engine) Loader() ports.FlowLoader {
	return e.loader
}

// Store returns the SessionStore used by the engine.
func (e *Engine) Store() ports.SessionStore {
	return e.store
}
