package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// SessionContext is the mutable execution state of one user walking a flow.
type SessionContext struct {
	// SessionID is the opaque identifier the context is stored under.
	SessionID string `json:"session_id"`

	// FlowID names the flow being executed.
	FlowID string `json:"flow_id"`

	// CurrentNodeID is the node shown to the user and not yet answered.
	CurrentNodeID string `json:"current_node_id"`

	// Answers holds the raw answer submitted at each visited node.
	Answers map[string]Value `json:"answers"`

	// Variables is written only by set effects.
	Variables map[string]Value `json:"variables"`

	// Scores is written only by increment effects.
	Scores *Scores `json:"scores"`

	// History tracks the nodes entered, in order, starting with the start node.
	History []string `json:"history,omitempty"`

	// Done is set once a result node has been reached.
	Done bool `json:"done"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSessionContext creates a clean context positioned at the flow's start node.
func NewSessionContext(sessionID string, flow *Flow) *SessionContext {
	now := time.Now().UTC()
	return &SessionContext{
		SessionID:     sessionID,
		FlowID:        flow.ID,
		CurrentNodeID: flow.StartNodeID,
		Answers:       make(map[string]Value),
		Variables:     make(map[string]Value),
		Scores:        NewScores(),
		History:       []string{flow.StartNodeID},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone returns a deep copy safe for independent mutation.
func (c *SessionContext) Clone() *SessionContext {
	if c == nil {
		return nil
	}
	next := *c
	next.Answers = CloneValues(c.Answers)
	next.Variables = CloneValues(c.Variables)
	next.Scores = c.Scores.Clone()
	next.History = append([]string(nil), c.History...)
	return &next
}

// Normalize fills nil collections, typically after decoding from a store.
func (c *SessionContext) Normalize() {
	if c.Answers == nil {
		c.Answers = make(map[string]Value)
	}
	if c.Variables == nil {
		c.Variables = make(map[string]Value)
	}
	if c.Scores == nil {
		c.Scores = NewScores()
	}
}

// Scores is a numeric accumulator per trait that remembers insertion order,
// which breaks ties when ranking.
type Scores struct {
	keys   []string
	values map[string]float64
}

// NewScores returns an empty accumulator.
func NewScores() *Scores {
	return &Scores{values: make(map[string]float64)}
}

// Get returns the accumulated value for key, 0 when absent.
func (s *Scores) Get(key string) float64 {
	if s == nil {
		return 0
	}
	return s.values[key]
}

// Has reports whether key has been incremented at least once.
func (s *Scores) Has(key string) bool {
	if s == nil {
		return false
	}
	_, ok := s.values[key]
	return ok
}

// Add accumulates delta into key, registering the key on first use.
func (s *Scores) Add(key string, delta float64) {
	if s.values == nil {
		s.values = make(map[string]float64)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] += delta
}

// Keys returns the keys in insertion order.
func (s *Scores) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

// Len returns the number of distinct keys.
func (s *Scores) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Map returns a copy of the scores as a plain map.
func (s *Scores) Map() map[string]float64 {
	out := make(map[string]float64, s.Len())
	if s == nil {
		return out
	}
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy.
func (s *Scores) Clone() *Scores {
	if s == nil {
		return NewScores()
	}
	cp := &Scores{
		keys:   append([]string(nil), s.keys...),
		values: make(map[string]float64, len(s.values)),
	}
	for k, v := range s.values {
		cp.values[k] = v
	}
	return cp
}

// MarshalJSON encodes the scores as an object whose keys keep insertion order.
func (s *Scores) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(s.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, preserving the key order of the document.
func (s *Scores) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = Scores{values: make(map[string]float64)}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("scores: expected object, got %v", tok)
	}
	next := Scores{values: make(map[string]float64)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("scores: expected key, got %v", keyTok)
		}
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("scores[%s]: %w", key, err)
		}
		next.Add(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = next
	return nil
}
