package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Root is the first segment of a dotted target path.
type Root string

const (
	RootVariables Root = "variables"
	RootScores    Root = "scores"
)

// Path is a dotted target of the form <root>.<key>.
type Path struct {
	Root Root
	Key  string
}

// ParsePath splits "variables.goal" into its root and key.
// Exactly two non-empty segments are required.
func ParsePath(s string) (Path, error) {
	root, key, ok := strings.Cut(s, ".")
	if !ok || root == "" || key == "" || strings.Contains(key, ".") {
		return Path{}, fmt.Errorf("path %q: expected <root>.<key>", s)
	}
	return Path{Root: Root(root), Key: key}, nil
}

// MustPath is ParsePath for literals known to be valid.
func MustPath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string {
	return string(p.Root) + "." + p.Key
}

// Source names where a set effect takes its value from.
type Source string

const (
	// SourceNone means no source tag was declared.
	SourceNone Source = ""
	// SourceAnswer takes the value from the answer being submitted.
	SourceAnswer Source = "answer"
)

// Effect is a declarative mutation applied when a node or option is answered.
// The set of effects is closed: SetEffect and IncrementEffect.
type Effect interface {
	// Target returns the path the effect writes to.
	Target() Path
	isEffect()
}

// Effect operation tags as they appear in flow documents.
const (
	OpSet       = "set"
	OpIncrement = "increment"
)

// SetEffect assigns a variable.
type SetEffect struct {
	Path   Path
	Source Source
}

func (SetEffect) isEffect()      {}
func (e SetEffect) Target() Path { return e.Path }

// MarshalJSON renders the effect in its document shape.
func (e SetEffect) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Op   string `json:"op"`
		Path string `json:"path"`
		From string `json:"from,omitempty"`
	}{OpSet, e.Path.String(), string(e.Source)})
}

// IncrementEffect adds Amount to a score accumulator.
type IncrementEffect struct {
	Path   Path
	Amount float64
}

func (IncrementEffect) isEffect()      {}
func (e IncrementEffect) Target() Path { return e.Path }

// MarshalJSON renders the effect in its document shape.
func (e IncrementEffect) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Op    string  `json:"op"`
		Path  string  `json:"path"`
		Value float64 `json:"value"`
	}{OpIncrement, e.Path.String(), e.Amount})
}

// Set builds a set effect sourced from the answer.
func Set(path string) SetEffect {
	return SetEffect{Path: MustPath(path), Source: SourceAnswer}
}

// Increment builds an increment effect.
func Increment(path string, amount float64) IncrementEffect {
	return IncrementEffect{Path: MustPath(path), Amount: amount}
}
