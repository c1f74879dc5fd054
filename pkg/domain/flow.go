package domain

import (
	"sort"
)

// NodeKind defines the control flow behavior of a node.
type NodeKind string

const (
	// NodeKindQuestion is presented to the user and halts waiting for an answer.
	NodeKindQuestion NodeKind = "question"
	// NodeKindResult is terminal: reaching it completes the session.
	NodeKindResult NodeKind = "result"
)

// InputKind defines the kind of answer a question collects.
type InputKind string

const (
	InputSingleChoice InputKind = "single_choice"
	InputMultiChoice  InputKind = "multi_choice"
	InputText         InputKind = "text"
	InputNumber       InputKind = "number"
)

// Flow is a complete questionnaire definition.
// It is immutable after loading and shared by every session.
type Flow struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	StartNodeID string           `json:"start_node_id"`
	Nodes       map[string]*Node `json:"nodes"`
}

// Node looks up a node by ID.
func (f *Flow) Node(id string) (*Node, bool) {
	n, ok := f.Nodes[id]
	return n, ok
}

// StartNode returns the entry node of the flow.
func (f *Flow) StartNode() (*Node, bool) {
	return f.Node(f.StartNodeID)
}

// NodeIDs returns the node identifiers in a deterministic order,
// with the start node first.
func (f *Flow) NodeIDs() []string {
	ids := make([]string, 0, len(f.Nodes))
	for id := range f.Nodes {
		if id != f.StartNodeID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if _, ok := f.Nodes[f.StartNodeID]; ok {
		ids = append([]string{f.StartNodeID}, ids...)
	}
	return ids
}

// Node represents one step in a flow.
type Node struct {
	ID       string         `json:"id"`
	Kind     NodeKind       `json:"type"`
	Meta     map[string]any `json:"meta,omitempty"`
	UI       *UI            `json:"ui,omitempty"`
	Effects  []Effect       `json:"effects,omitempty"`
	Edges    []Edge         `json:"edges,omitempty"`
	Renderer string         `json:"renderer,omitempty"`
}

// IsTerminal reports whether reaching the node completes the session.
func (n *Node) IsTerminal() bool {
	return n.Kind == NodeKindResult
}

// Option finds the option with the given ID in the node's UI.
func (n *Node) Option(id string) (*Option, bool) {
	if n.UI == nil {
		return nil, false
	}
	for i := range n.UI.Options {
		if n.UI.Options[i].ID == id {
			return &n.UI.Options[i], true
		}
	}
	return nil, false
}

// UI describes how a question node is presented.
type UI struct {
	Prompt      string    `json:"question_text"`
	Description string    `json:"description,omitempty"`
	InputKind   InputKind `json:"input_type"`
	Options     []Option  `json:"options,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
}

// Option is one selectable answer of a choice question.
type Option struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Effects     []Effect `json:"effects,omitempty"`
}

// Edge is a conditional link to a successor node.
// Edges of a node are evaluated in declared order and the first match wins.
type Edge struct {
	Condition  Condition `json:"condition"`
	NextNodeID string    `json:"next_node_id"`
}
