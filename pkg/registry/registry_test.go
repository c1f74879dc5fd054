package registry_test

import (
	"context"
	"testing"

	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flow(id string) *domain.Flow {
	return &domain.Flow{ID: id, StartNodeID: "end", Nodes: map[string]*domain.Node{
		"end": {ID: "end", Kind: domain.NodeKindResult},
	}}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := registry.NewRegistry()
	_, err := r.Get("nope")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)
}

func TestRegistry_ReplaceSwapsSnapshot(t *testing.T) {
	r := registry.NewRegistry()
	r.Register(flow("old"))

	require.NoError(t, r.Replace([]*domain.Flow{flow("b"), flow("a")}))

	_, err := r.Get("old")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)

	ids := []string{}
	for _, f := range r.List() {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestRegistry_ReplaceRejectsDuplicates(t *testing.T) {
	r := registry.NewRegistry()
	r.Register(flow("keep"))

	err := r.Replace([]*domain.Flow{flow("x"), flow("x")})
	assert.ErrorIs(t, err, domain.ErrInvalidFlow)

	_, err = r.Get("keep")
	assert.NoError(t, err, "failed replace must not drop existing flows")
}

func TestRegistry_LoadFromLoader(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Load(context.Background(), memory.NewLoader(flow("one"))))

	got, err := r.Get("one")
	require.NoError(t, err)
	assert.Equal(t, "one", got.ID)
}
