package runtime_test

import (
	"testing"

	"github.com/aretw0/waypoint/internal/runtime"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func freshContext() *domain.SessionContext {
	return domain.NewSessionContext("s", traitFlow())
}

func TestApplyEffect_Set(t *testing.T) {
	tests := []struct {
		name   string
		effect domain.Effect
		want   map[string]domain.Value
	}{
		{
			name:   "variables from answer",
			effect: domain.Set("variables.goal"),
			want:   map[string]domain.Value{"goal": domain.String("study")},
		},
		{
			name:   "missing source is a no-op",
			effect: domain.SetEffect{Path: domain.MustPath("variables.goal")},
			want:   map[string]domain.Value{},
		},
		{
			name:   "non-variables root is a no-op",
			effect: domain.SetEffect{Path: domain.MustPath("scores.goal"), Source: domain.SourceAnswer},
			want:   map[string]domain.Value{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := freshContext()
			runtime.ApplyEffect(tt.effect, domain.String("study"), sc)
			assert.Equal(t, tt.want, sc.Variables)
			assert.Equal(t, 0, sc.Scores.Len())
		})
	}
}

func TestApplyEffect_SetOverwrites(t *testing.T) {
	sc := freshContext()
	runtime.ApplyEffect(domain.Set("variables.goal"), domain.String("study"), sc)
	runtime.ApplyEffect(domain.Set("variables.goal"), domain.Number(3), sc)
	assert.True(t, sc.Variables["goal"].Equal(domain.Number(3)))
}

func TestApplyEffect_IncrementIsAssociative(t *testing.T) {
	a := domain.Increment("scores.x", 2)
	b := domain.Increment("scores.x", 3.5)

	ab := freshContext()
	runtime.ApplyEffects([]domain.Effect{a, b}, domain.Null(), ab)

	ba := freshContext()
	runtime.ApplyEffects([]domain.Effect{b, a}, domain.Null(), ba)

	assert.Equal(t, 5.5, ab.Scores.Get("x"))
	assert.Equal(t, ab.Scores.Get("x"), ba.Scores.Get("x"))
}

func TestApplyEffect_IncrementIgnoresRoot(t *testing.T) {
	sc := freshContext()
	runtime.ApplyEffect(domain.Increment("variables.count", 1), domain.Null(), sc)

	assert.Equal(t, 1.0, sc.Scores.Get("count"))
	assert.Empty(t, sc.Variables)
}

func TestApplyEffect_IncrementRegistersKeyOrder(t *testing.T) {
	sc := freshContext()
	runtime.ApplyEffects([]domain.Effect{
		domain.Increment("scores.b", 1),
		domain.Increment("scores.a", 1),
		domain.Increment("scores.b", 1),
	}, domain.Null(), sc)

	assert.Equal(t, []string{"b", "a"}, sc.Scores.Keys())
}
