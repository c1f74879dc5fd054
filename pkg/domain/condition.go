package domain

import "encoding/json"

// Condition guards an edge. The set of conditions is closed: Always and Eq.
type Condition interface {
	isCondition()
}

// Condition operation tags as they appear in flow documents.
const (
	OpAlways = "always"
	OpEq     = "eq"
)

// Always matches unconditionally.
type Always struct{}

func (Always) isCondition() {}

// MarshalJSON renders the condition in its document shape.
func (Always) MarshalJSON() ([]byte, error) {
	return []byte(`{"op":"always"}`), nil
}

// OperandKind selects where the left side of an Eq condition reads from.
type OperandKind string

const (
	OperandAnswer  OperandKind = "answer"
	OperandContext OperandKind = "context"
)

// Operand is the left side of an Eq condition.
// Path is only meaningful for OperandContext. Any other kind evaluates to null.
type Operand struct {
	Kind OperandKind `json:"kind"`
	Path string      `json:"path,omitempty"`
}

// Eq matches when the left operand equals Right exactly.
type Eq struct {
	Left  Operand
	Right Value
}

func (Eq) isCondition() {}

// MarshalJSON renders the condition in its document shape.
func (c Eq) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Op    string  `json:"op"`
		Left  Operand `json:"left"`
		Right struct {
			Value Value `json:"value"`
		} `json:"right"`
	}{
		Op:   OpEq,
		Left: c.Left,
		Right: struct {
			Value Value `json:"value"`
		}{c.Right},
	})
}

// AnswerEquals is shorthand for an Eq condition on the submitted answer.
func AnswerEquals(v Value) Eq {
	return Eq{Left: Operand{Kind: OperandAnswer}, Right: v}
}

// VariableEquals is shorthand for an Eq condition on a context variable.
func VariableEquals(name string, v Value) Eq {
	return Eq{Left: Operand{Kind: OperandContext, Path: string(RootVariables) + "." + name}, Right: v}
}
