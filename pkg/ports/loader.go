package ports

import (
	"context"

	"github.com/aretw0/waypoint/pkg/domain"
)

// FlowLoader defines how the engine obtains flow definitions.
// This allows the source (directory, memory, embedded data) to be decoupled.
type FlowLoader interface {
	// LoadFlows returns every flow known to the source, already compiled
	// and validated. A malformed document fails the whole load.
	LoadFlows(ctx context.Context) ([]*domain.Flow, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying flows change.
	// It abstracts away the specific event details, signaling only that a reload is required.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
