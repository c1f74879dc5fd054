package domain

// ContextDiff represents the changes between two snapshots of a session context.
// It is serialized to JSON and pushed to live subscribers of a session.
type ContextDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	CurrentNodeID *string `json:"current_node_id,omitempty"`

	// Answers and Variables carry only added or changed keys.
	Answers   map[string]Value `json:"answers,omitempty"`
	Variables map[string]Value `json:"variables,omitempty"`

	// Scores carries the new totals of changed accumulators.
	Scores map[string]float64 `json:"scores,omitempty"`

	// History holds nodes appended since the old snapshot.
	History []string `json:"history,omitempty"`

	Done *bool `json:"done,omitempty"`
}

// Diff calculates the difference between oldCtx and newCtx.
// If oldCtx is nil, it returns a diff representing the entire newCtx (initial load).
// It returns nil when nothing changed.
func Diff(oldCtx, newCtx *SessionContext) *ContextDiff {
	if newCtx == nil {
		return nil
	}

	diff := &ContextDiff{SessionID: newCtx.SessionID}

	if oldCtx == nil || oldCtx.CurrentNodeID != newCtx.CurrentNodeID {
		diff.CurrentNodeID = &newCtx.CurrentNodeID
	}
	if (oldCtx == nil && newCtx.Done) || (oldCtx != nil && oldCtx.Done != newCtx.Done) {
		diff.Done = &newCtx.Done
	}

	var oldAnswers, oldVariables map[string]Value
	var oldScores *Scores
	var oldHistory []string
	if oldCtx != nil {
		oldAnswers, oldVariables = oldCtx.Answers, oldCtx.Variables
		oldScores, oldHistory = oldCtx.Scores, oldCtx.History
	}

	diff.Answers = diffValues(oldAnswers, newCtx.Answers)
	diff.Variables = diffValues(oldVariables, newCtx.Variables)
	diff.Scores = diffScores(oldScores, newCtx.Scores)

	// History is append-only.
	if len(newCtx.History) > len(oldHistory) {
		diff.History = append([]string(nil), newCtx.History[len(oldHistory):]...)
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffValues(old, new map[string]Value) map[string]Value {
	delta := make(map[string]Value)
	for k, v := range new {
		if prev, ok := old[k]; !ok || !prev.Equal(v) {
			delta[k] = v
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

func diffScores(old, new *Scores) map[string]float64 {
	delta := make(map[string]float64)
	for _, k := range new.Keys() {
		if !old.Has(k) || old.Get(k) != new.Get(k) {
			delta[k] = new.Get(k)
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *ContextDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		d.Done == nil &&
		len(d.Answers) == 0 &&
		len(d.Variables) == 0 &&
		len(d.Scores) == 0 &&
		len(d.History) == 0
}
