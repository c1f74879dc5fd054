package dsl

import (
	"fmt"

	"github.com/aretw0/waypoint/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
// Mistakes such as malformed paths are collected and reported by Builder.Flow.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
	errs    []error
}

// EffectSpec is an effect whose path has not been checked yet.
type EffectSpec struct {
	op     string
	path   string
	amount float64
}

// Set declares a set effect fed by the answer.
func Set(path string) EffectSpec { return EffectSpec{op: domain.OpSet, path: path} }

// Increment declares an increment effect.
func Increment(path string, amount float64) EffectSpec {
	return EffectSpec{op: domain.OpIncrement, path: path, amount: amount}
}

func (s EffectSpec) build() (domain.Effect, error) {
	p, err := domain.ParsePath(s.path)
	if err != nil {
		return nil, err
	}
	if s.op == domain.OpSet {
		return domain.SetEffect{Path: p, Source: domain.SourceAnswer}, nil
	}
	return domain.IncrementEffect{Path: p, Amount: s.amount}, nil
}

func (n *NodeBuilder) fail(err error) {
	n.errs = append(n.errs, fmt.Errorf("node '%s': %w", n.node.ID, err))
}

func (n *NodeBuilder) ui() *domain.UI {
	if n.node.UI == nil {
		n.node.UI = &domain.UI{InputKind: domain.InputText}
	}
	return n.node.UI
}

// Question marks the node as a question and sets its prompt.
// The input kind defaults to text, or single_choice once options are added.
func (n *NodeBuilder) Question(prompt string) *NodeBuilder {
	n.node.Kind = domain.NodeKindQuestion
	n.ui().Prompt = prompt
	return n
}

// Describe sets the secondary text shown under the prompt.
func (n *NodeBuilder) Describe(text string) *NodeBuilder {
	n.ui().Description = text
	return n
}

// Input overrides the input kind.
func (n *NodeBuilder) Input(kind domain.InputKind) *NodeBuilder {
	n.ui().InputKind = kind
	return n
}

// Placeholder sets the hint for free-form inputs.
func (n *NodeBuilder) Placeholder(text string) *NodeBuilder {
	n.ui().Placeholder = text
	return n
}

// Option appends a choice. Its effects run only when it is the chosen answer.
func (n *NodeBuilder) Option(id, label string, effects ...EffectSpec) *NodeBuilder {
	ui := n.ui()
	if len(ui.Options) == 0 && ui.InputKind == domain.InputText {
		ui.InputKind = domain.InputSingleChoice
	}
	opt := domain.Option{ID: id, Label: label}
	for _, spec := range effects {
		e, err := spec.build()
		if err != nil {
			n.fail(fmt.Errorf("option '%s': %w", id, err))
			continue
		}
		opt.Effects = append(opt.Effects, e)
	}
	ui.Options = append(ui.Options, opt)
	return n
}

// Effect appends node-level effects, applied whatever the answer.
func (n *NodeBuilder) Effect(specs ...EffectSpec) *NodeBuilder {
	for _, spec := range specs {
		e, err := spec.build()
		if err != nil {
			n.fail(err)
			continue
		}
		n.node.Effects = append(n.node.Effects, e)
	}
	return n
}

// Set stores the answer in a variable ("variables.<name>").
func (n *NodeBuilder) Set(path string) *NodeBuilder {
	return n.Effect(Set(path))
}

// Score adds amount to a score ("scores.<trait>") whatever the answer.
func (n *NodeBuilder) Score(path string, amount float64) *NodeBuilder {
	return n.Effect(Increment(path, amount))
}

// Meta attaches free-form metadata to the node.
func (n *NodeBuilder) Meta(key string, value any) *NodeBuilder {
	if n.node.Meta == nil {
		n.node.Meta = make(map[string]any)
	}
	n.node.Meta[key] = value
	return n
}

// Go adds an unconditional edge to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	return n.When(domain.Always{}, target)
}

// When adds an edge guarded by cond.
func (n *NodeBuilder) When(cond domain.Condition, target string) *NodeBuilder {
	n.node.Edges = append(n.node.Edges, domain.Edge{Condition: cond, NextNodeID: target})
	return n
}

// WhenAnswer adds an edge taken when the answer equals value exactly.
func (n *NodeBuilder) WhenAnswer(value any, target string) *NodeBuilder {
	v, err := domain.FromAny(value)
	if err != nil {
		n.fail(err)
		return n
	}
	return n.When(domain.AnswerEquals(v), target)
}

// WhenVar adds an edge taken when a variable equals value exactly.
func (n *NodeBuilder) WhenVar(name string, value any, target string) *NodeBuilder {
	v, err := domain.FromAny(value)
	if err != nil {
		n.fail(err)
		return n
	}
	return n.When(domain.VariableEquals(name, v), target)
}

// Result marks the node as terminal, rendered by renderer.
func (n *NodeBuilder) Result(renderer string) *NodeBuilder {
	n.node.Kind = domain.NodeKindResult
	n.node.Renderer = renderer
	n.node.UI = nil
	n.node.Edges = nil
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
