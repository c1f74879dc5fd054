package runtime_test

import (
	"testing"

	"github.com/aretw0/waypoint/internal/runtime"
	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/registry"
	"github.com/aretw0/waypoint/pkg/session"
)

// traitFlow is the smallest complete flow: one single_choice question whose
// options score different traits, then a result.
func traitFlow() *domain.Flow {
	return &domain.Flow{
		ID:          "traits",
		Title:       "Traits",
		StartNodeID: "q1",
		Nodes: map[string]*domain.Node{
			"q1": {
				ID:   "q1",
				Kind: domain.NodeKindQuestion,
				UI: &domain.UI{
					Prompt:    "Pick one",
					InputKind: domain.InputSingleChoice,
					Options: []domain.Option{
						{ID: "a", Label: "A", Effects: []domain.Effect{domain.Increment("scores.trait1", 1)}},
						{ID: "b", Label: "B", Effects: []domain.Effect{domain.Increment("scores.trait2", 1)}},
					},
				},
				Edges: []domain.Edge{{Condition: domain.Always{}, NextNodeID: "result"}},
			},
			"result": {ID: "result", Kind: domain.NodeKindResult, Renderer: "summary"},
		},
	}
}

// branchFlow routes on a stored variable.
//
//	name -> goal --(variables.goal == "study")--> study --> done
//	             \--(always)--> work --> done
func branchFlow() *domain.Flow {
	text := func(id, prompt string, edges ...domain.Edge) *domain.Node {
		return &domain.Node{
			ID:    id,
			Kind:  domain.NodeKindQuestion,
			UI:    &domain.UI{Prompt: prompt, InputKind: domain.InputText},
			Edges: edges,
		}
	}
	always := func(to string) domain.Edge { return domain.Edge{Condition: domain.Always{}, NextNodeID: to} }

	goal := text("goal", "Goal?",
		domain.Edge{Condition: domain.VariableEquals("goal", domain.String("study")), NextNodeID: "study"},
		always("work"),
	)
	goal.Effects = []domain.Effect{domain.Set("variables.goal")}

	return &domain.Flow{
		ID:          "branch",
		StartNodeID: "name",
		Nodes: map[string]*domain.Node{
			"name":  text("name", "Name?", always("goal")),
			"goal":  goal,
			"study": text("study", "Which college?", always("done")),
			"work":  text("work", "Which company?", always("done")),
			"done":  {ID: "done", Kind: domain.NodeKindResult},
		},
	}
}

func newEngine(t *testing.T, opts ...runtime.Option) (*runtime.Engine, *memory.Store) {
	t.Helper()
	reg := registry.NewRegistry()
	reg.Register(traitFlow())
	reg.Register(branchFlow())
	store := memory.NewStore()
	return runtime.NewEngine(reg, session.NewManager(store), opts...), store
}
