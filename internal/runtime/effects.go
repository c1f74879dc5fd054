package runtime

import "github.com/aretw0/waypoint/pkg/domain"

// ApplyEffect mutates sc according to effect. It never fails:
// a set effect that does not target variables from the answer is a no-op.
func ApplyEffect(effect domain.Effect, answer domain.Value, sc *domain.SessionContext) {
	switch e := effect.(type) {
	case domain.SetEffect:
		if e.Path.Root != domain.RootVariables || e.Source != domain.SourceAnswer {
			return
		}
		sc.Variables[e.Path.Key] = answer
	case domain.IncrementEffect:
		// The root is not checked: increments always land in scores.
		sc.Scores.Add(e.Path.Key, e.Amount)
	}
}

// ApplyEffects applies effects in declared order.
func ApplyEffects(effects []domain.Effect, answer domain.Value, sc *domain.SessionContext) {
	for _, e := range effects {
		ApplyEffect(e, answer, sc)
	}
}
