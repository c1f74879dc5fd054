package memory

import (
	"context"
	"fmt"

	"github.com/aretw0/waypoint/internal/compiler"
	"github.com/aretw0/waypoint/pkg/domain"
)

// Loader implements ports.FlowLoader over a fixed set of flows.
type Loader struct {
	flows []*domain.Flow
}

// NewLoader creates a Loader serving the given, already built, flows.
func NewLoader(flows ...*domain.Flow) *Loader {
	return &Loader{flows: flows}
}

// NewFromDocuments compiles raw JSON or YAML flow documents.
// This handles parsing and validation up front, improving DX for tests and embedding.
func NewFromDocuments(docs ...string) (*Loader, error) {
	c := compiler.New()
	flows := make([]*domain.Flow, 0, len(docs))
	for i, doc := range docs {
		flow, err := c.Compile([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		flows = append(flows, flow)
	}
	return &Loader{flows: flows}, nil
}

// LoadFlows returns the flows the loader was created with.
func (l *Loader) LoadFlows(ctx context.Context) ([]*domain.Flow, error) {
	out := make([]*domain.Flow, len(l.flows))
	copy(out, l.flows)
	return out, nil
}
