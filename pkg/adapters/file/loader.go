package file

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/waypoint/internal/compiler"
	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/domain"
)

// DefaultDebounce coalesces bursts of file events (editors write several times per save).
const DefaultDebounce = 300 * time.Millisecond

var flowExtensions = map[string]bool{".json": true, ".yaml": true, ".yml": true}

// Loader implements ports.FlowLoader over a directory of flow documents,
// one flow per .json, .yaml or .yml file. Subdirectories are not scanned.
type Loader struct {
	fsys     fs.FS
	dir      string // empty for loaders built from an arbitrary fs.FS
	compiler *compiler.Compiler
	logger   *slog.Logger
	debounce time.Duration
}

// LoaderOption configures the Loader.
type LoaderOption func(*Loader)

// WithLogger configures a logger for the Loader.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) LoaderOption {
	return func(l *Loader) {
		l.debounce = d
	}
}

// NewLoader reads flows from dir on disk. The loader is Watchable.
func NewLoader(dir string, opts ...LoaderOption) *Loader {
	l := newLoader(os.DirFS(dir), opts...)
	l.dir = dir
	return l
}

// NewFSLoader reads flows from the root of fsys (for example an embed.FS).
// Such a loader cannot be watched.
func NewFSLoader(fsys fs.FS, opts ...LoaderOption) *Loader {
	return newLoader(fsys, opts...)
}

func newLoader(fsys fs.FS, opts ...LoaderOption) *Loader {
	l := &Loader{
		fsys:     fsys,
		compiler: compiler.New(),
		logger:   logging.NewNop(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFlows compiles every flow document in the directory.
// Any invalid document fails the whole load so a bad edit never half-applies.
func (l *Loader) LoadFlows(ctx context.Context) ([]*domain.Flow, error) {
	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read flows directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isFlowFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	flows := make([]*domain.Flow, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := fs.ReadFile(l.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		flow, err := l.compiler.Compile(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		l.logger.Debug("flow loaded", "file", name, "flow_id", flow.ID, "nodes", len(flow.Nodes))
		flows = append(flows, flow)
	}
	return flows, nil
}

func isFlowFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return flowExtensions[strings.ToLower(path.Ext(name))]
}

// Watch signals on the returned channel after flow files change.
// Bursts of events are debounced. The channel is closed when ctx is done.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	if l.dir == "" {
		return nil, fmt.Errorf("loader is not backed by a directory")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", l.dir, err)
	}

	out := make(chan struct{}, 1)
	go l.processEvents(ctx, watcher, out)

	l.logger.Info("watching flows", "dir", l.dir)
	return out, nil
}

func (l *Loader) processEvents(ctx context.Context, watcher *fsnotify.Watcher, out chan<- struct{}) {
	defer close(out)
	defer watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !isFlowFile(filepath.Base(event.Name)) {
				continue
			}
			l.logger.Debug("flow file changed", "file", event.Name, "op", event.Op.String())

			if timer == nil {
				timer = time.NewTimer(l.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(l.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case out <- struct{}{}:
			default: // a reload is already pending
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("flow watcher error", "err", err)
		}
	}
}
