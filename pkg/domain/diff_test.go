package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func newCtx(node string) *SessionContext {
	return &SessionContext{
		SessionID:     "sess-1",
		CurrentNodeID: node,
		Answers:       map[string]Value{},
		Variables:     map[string]Value{},
		Scores:        NewScores(),
		History:       []string{"q1"},
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		old      func() *SessionContext
		new      func() *SessionContext
		wantDiff *ContextDiff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  func() *SessionContext { return nil },
			new: func() *SessionContext {
				c := newCtx("q1")
				c.Variables["grade"] = String("10")
				return c
			},
			wantDiff: &ContextDiff{
				SessionID:     "sess-1",
				CurrentNodeID: &[]string{"q1"}[0],
				Variables:     map[string]Value{"grade": String("10")},
				History:       []string{"q1"},
			},
		},
		{
			name:     "No Changes",
			old:      func() *SessionContext { return newCtx("q1") },
			new:      func() *SessionContext { return newCtx("q1") },
			wantDiff: nil,
		},
		{
			name: "Answer Advances Node",
			old:  func() *SessionContext { return newCtx("q1") },
			new: func() *SessionContext {
				c := newCtx("q2")
				c.Answers["q1"] = String("a")
				c.Scores.Add("trait1", 1)
				c.History = append(c.History, "q2")
				return c
			},
			wantDiff: &ContextDiff{
				SessionID:     "sess-1",
				CurrentNodeID: &[]string{"q2"}[0],
				Answers:       map[string]Value{"q1": String("a")},
				Scores:        map[string]float64{"trait1": 1},
				History:       []string{"q2"},
			},
		},
		{
			name: "Score Modified",
			old: func() *SessionContext {
				c := newCtx("q2")
				c.Scores.Add("trait1", 1)
				c.Scores.Add("trait2", 1)
				return c
			},
			new: func() *SessionContext {
				c := newCtx("q2")
				c.Scores.Add("trait1", 1)
				c.Scores.Add("trait2", 3)
				return c
			},
			wantDiff: &ContextDiff{
				SessionID: "sess-1",
				Scores:    map[string]float64{"trait2": 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old(), tt.new())
			if tt.wantDiff == nil {
				if got != nil {
					t.Errorf("Diff() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Diff() = nil, want %+v", tt.wantDiff)
			}
			if got.SessionID != tt.wantDiff.SessionID {
				t.Errorf("Diff().SessionID = %v, want %v", got.SessionID, tt.wantDiff.SessionID)
			}
			if !reflect.DeepEqual(got.Answers, tt.wantDiff.Answers) {
				t.Errorf("Diff().Answers = %v, want %v", got.Answers, tt.wantDiff.Answers)
			}
			if !reflect.DeepEqual(got.Variables, tt.wantDiff.Variables) {
				t.Errorf("Diff().Variables = %v, want %v", got.Variables, tt.wantDiff.Variables)
			}
			if !reflect.DeepEqual(got.Scores, tt.wantDiff.Scores) {
				t.Errorf("Diff().Scores = %v, want %v", got.Scores, tt.wantDiff.Scores)
			}
			if !reflect.DeepEqual(got.History, tt.wantDiff.History) {
				t.Errorf("Diff().History = %v, want %v", got.History, tt.wantDiff.History)
			}
			if !equalPtr(got.CurrentNodeID, tt.wantDiff.CurrentNodeID) {
				t.Errorf("Diff().CurrentNodeID = %v, want %v", got.CurrentNodeID, tt.wantDiff.CurrentNodeID)
			}
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Empty Maps Omitted", func(t *testing.T) {
		old := newCtx("q1")
		next := newCtx("q2")
		diff := Diff(old, next)
		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}
		bytes, _ := json.Marshal(diff)
		if strings.Contains(string(bytes), `"variables"`) {
			t.Errorf("JSON should not contain 'variables' when unchanged, got: %s", string(bytes))
		}
	})

	t.Run("Done Flag", func(t *testing.T) {
		old := newCtx("q1")
		next := newCtx("result")
		next.Done = true
		bytes, _ := json.Marshal(Diff(old, next))
		if !strings.Contains(string(bytes), `"done":true`) {
			t.Errorf("JSON should contain done flag, got: %s", string(bytes))
		}
	})
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
