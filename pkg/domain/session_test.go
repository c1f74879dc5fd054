package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScores_PreserveInsertionOrderThroughJSON(t *testing.T) {
	s := domain.NewScores()
	s.Add("zeta", 1)
	s.Add("alpha", 2)
	s.Add("zeta", 1)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":2,"alpha":2}`, string(data))

	var decoded domain.Scores
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []string{"zeta", "alpha"}, decoded.Keys())
	assert.Equal(t, 2.0, decoded.Get("zeta"))
}

func TestSessionContext_CloneIsIndependent(t *testing.T) {
	flow := &domain.Flow{ID: "f", StartNodeID: "q1", Nodes: map[string]*domain.Node{"q1": {ID: "q1"}}}
	orig := domain.NewSessionContext("s1", flow)
	orig.Variables["goal"] = domain.String("study")
	orig.Scores.Add("trait", 1)

	cp := orig.Clone()
	cp.Variables["goal"] = domain.String("work")
	cp.Scores.Add("trait", 5)
	cp.Answers["q1"] = domain.String("a")
	cp.History = append(cp.History, "q2")

	assert.True(t, orig.Variables["goal"].Equal(domain.String("study")))
	assert.Equal(t, 1.0, orig.Scores.Get("trait"))
	assert.Empty(t, orig.Answers)
	assert.Equal(t, []string{"q1"}, orig.History)
}

func TestSessionContext_JSONRoundTrip(t *testing.T) {
	flow := &domain.Flow{ID: "f", StartNodeID: "q1", Nodes: map[string]*domain.Node{"q1": {ID: "q1"}}}
	ctx := domain.NewSessionContext("s1", flow)
	ctx.Answers["q1"] = domain.Number(4)
	ctx.Scores.Add("b", 1)
	ctx.Scores.Add("a", 1)

	data, err := json.Marshal(ctx)
	require.NoError(t, err)

	var loaded domain.SessionContext
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, "q1", loaded.CurrentNodeID)
	assert.True(t, loaded.Answers["q1"].Equal(domain.Number(4)))
	assert.Equal(t, []string{"b", "a"}, loaded.Scores.Keys())
}

func TestParsePath(t *testing.T) {
	p, err := domain.ParsePath("scores.analytical")
	require.NoError(t, err)
	assert.Equal(t, domain.RootScores, p.Root)
	assert.Equal(t, "analytical", p.Key)

	for _, bad := range []string{"", "scores", "scores.", ".x", "a.b.c"} {
		_, err := domain.ParsePath(bad)
		assert.Error(t, err, bad)
	}
}

func TestFlow_NodeIDsStartFirst(t *testing.T) {
	flow := &domain.Flow{
		StartNodeID: "m",
		Nodes: map[string]*domain.Node{
			"z": {ID: "z"}, "a": {ID: "a"}, "m": {ID: "m"},
		},
	}
	assert.Equal(t, []string{"m", "a", "z"}, flow.NodeIDs())
}
