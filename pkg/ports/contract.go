package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractFlow() *domain.Flow {
	return &domain.Flow{
		ID:          "contract-flow",
		StartNodeID: "start",
		Nodes:       map[string]*domain.Node{"start": {ID: "start", Kind: domain.NodeKindQuestion}},
	}
}

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")
	flow := contractFlow()

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSessionContext(sessionID, flow)
		session.Answers["start"] = domain.String("a")
		session.Variables["goal"] = domain.String("study")
		session.Variables["age"] = domain.Number(17)
		session.Scores.Add("zeta", 2)
		session.Scores.Add("alpha", 1)

		err := store.Save(ctx, sessionID, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, session.CurrentNodeID, loaded.CurrentNodeID)
		assert.Equal(t, session.FlowID, loaded.FlowID)
		assert.True(t, loaded.Answers["start"].Equal(domain.String("a")))
		assert.True(t, loaded.Variables["goal"].Equal(domain.String("study")))
		// Numbers must come back as numbers, not strings.
		assert.True(t, loaded.Variables["age"].Equal(domain.Number(17)))
		assert.Equal(t, []string{"zeta", "alpha"}, loaded.Scores.Keys(), "score insertion order must survive persistence")
		assert.Equal(t, 2.0, loaded.Scores.Get("zeta"))
	})

	t.Run("Load Returns Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Variables["goal"] = domain.String("mutated")
		loaded.Scores.Add("zeta", 100)

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.True(t, again.Variables["goal"].Equal(domain.String("study")))
		assert.Equal(t, 2.0, again.Scores.Get("zeta"))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewSessionContext(sessionID, flow))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Deleting twice should be a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewSessionContext(id1, flow)))
		require.NoError(t, store.Save(ctx, id2, domain.NewSessionContext(id2, flow)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
