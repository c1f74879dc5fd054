package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/waypoint/internal/validator"
	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/domain"
)

// Builder manages the flow construction.
type Builder struct {
	id    string
	title string
	start string
	order []string
	nodes map[string]*NodeBuilder
}

// New creates a new flow builder.
func New(flowID string) *Builder {
	return &Builder{
		id:    flowID,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Title sets the human readable flow title.
func (b *Builder) Title(title string) *Builder {
	b.title = title
	return b
}

// Start sets the entry node. It defaults to the first node added.
func (b *Builder) Start(nodeID string) *Builder {
	b.start = nodeID
	return b
}

// Add creates a new node in the flow.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID:   id,
			Kind: domain.NodeKindQuestion,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	if b.start == "" {
		b.start = id
	}
	return nb
}

// Flow assembles and validates the flow.
func (b *Builder) Flow() (*domain.Flow, error) {
	flow := &domain.Flow{
		ID:          b.id,
		Title:       b.title,
		StartNodeID: b.start,
		Nodes:       make(map[string]*domain.Node, len(b.nodes)),
	}

	var errs []error
	for _, id := range b.order {
		nb := b.nodes[id]
		errs = append(errs, nb.errs...)
		node := nb.Build()
		flow.Nodes[id] = &node
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: flow '%s': %v", domain.ErrInvalidFlow, b.id, err)
	}

	if err := validator.ValidateFlow(flow).Err(); err != nil {
		return nil, err
	}
	return flow, nil
}

// Build compiles the flow into a memory Loader.
func (b *Builder) Build() (*memory.Loader, error) {
	flow, err := b.Flow()
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return memory.NewLoader(flow), nil
}
