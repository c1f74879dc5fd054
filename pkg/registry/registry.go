package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
)

// Registry holds the flows available to the engine, keyed by flow ID.
// Flows are immutable; reloads swap the whole set at once so readers never
// observe a half-updated registry.
type Registry struct {
	mu    sync.RWMutex
	flows map[string]*domain.Flow
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		flows: make(map[string]*domain.Flow),
	}
}

// Register adds a flow to the registry.
// If a flow with the same ID exists, it is overwritten.
func (r *Registry) Register(flow *domain.Flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[flow.ID] = flow
}

// Replace swaps the registry contents for flows.
// Duplicate IDs are rejected and leave the registry unchanged.
func (r *Registry) Replace(flows []*domain.Flow) error {
	next := make(map[string]*domain.Flow, len(flows))
	for _, f := range flows {
		if _, dup := next[f.ID]; dup {
			return fmt.Errorf("%w: duplicate flow id %q", domain.ErrInvalidFlow, f.ID)
		}
		next[f.ID] = f
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows = next
	return nil
}

// Load fetches every flow from loader and replaces the registry contents.
func (r *Registry) Load(ctx context.Context, loader ports.FlowLoader) error {
	flows, err := loader.LoadFlows(ctx)
	if err != nil {
		return fmt.Errorf("failed to load flows: %w", err)
	}
	return r.Replace(flows)
}

// Get looks up a flow by ID.
// Returns domain.ErrFlowNotFound if the flow is not registered.
func (r *Registry) Get(id string) (*domain.Flow, error) {
	r.mu.RLock()
	flow, ok := r.flows[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, id)
	}
	return flow, nil
}

// List returns the registered flows ordered by ID.
func (r *Registry) List() []*domain.Flow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Flow, 0, len(r.flows))
	for _, f := range r.flows {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
