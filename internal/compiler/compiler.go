package compiler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	fieldvalidator "github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/waypoint/internal/dto"
	"github.com/aretw0/waypoint/internal/validator"
	"github.com/aretw0/waypoint/pkg/domain"
)

// Compiler turns raw flow documents into validated domain flows.
type Compiler struct {
	validate *fieldvalidator.Validate
}

// New creates a new compiler instance.
func New() *Compiler {
	return &Compiler{validate: fieldvalidator.New()}
}

// Compile decodes, checks and builds a flow from a JSON or YAML document.
// Every failure wraps domain.ErrInvalidFlow.
func (c *Compiler) Compile(data []byte) (*domain.Flow, error) {
	doc, err := c.Decode(data)
	if err != nil {
		return nil, err
	}
	flow, err := Build(doc)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateFlow(flow).Err(); err != nil {
		return nil, err
	}
	return flow, nil
}

// Decode parses the document into its wire shape and applies field-level checks.
// JSON is detected by a leading '{'; anything else is read as YAML.
func (c *Compiler) Decode(data []byte) (*dto.FlowDocument, error) {
	raw, err := parseRaw(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse flow: %v", domain.ErrInvalidFlow, err)
	}

	var doc dto.FlowDocument
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &doc,
		ErrorUnused: false,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode flow: %v", domain.ErrInvalidFlow, err)
	}

	if err := c.validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%w: flow '%s': %s", domain.ErrInvalidFlow, doc.ID, describe(err))
	}
	return &doc, nil
}

func parseRaw(data []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}

	var raw map[string]any
	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		return raw, nil
	}
	if err := yaml.Unmarshal(trimmed, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("document is not a mapping")
	}
	return raw, nil
}

func describe(err error) string {
	var verrs fieldvalidator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		if fe.Param() != "" {
			msgs[i] = fmt.Sprintf("%s failed '%s=%s'", fe.Namespace(), fe.Tag(), fe.Param())
		} else {
			msgs[i] = fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag())
		}
	}
	return strings.Join(msgs, "; ")
}

// Build converts a decoded document into domain types, rejecting unknown
// operation tags and malformed paths. It does not run graph validation.
func Build(doc *dto.FlowDocument) (*domain.Flow, error) {
	flow := &domain.Flow{
		ID:          doc.ID,
		Title:       doc.Title,
		StartNodeID: doc.StartNodeID,
		Nodes:       make(map[string]*domain.Node, len(doc.Nodes)),
	}

	for key, nd := range doc.Nodes {
		node, err := buildNode(key, nd)
		if err != nil {
			return nil, fmt.Errorf("%w: flow '%s': node '%s': %v", domain.ErrInvalidFlow, doc.ID, key, err)
		}
		flow.Nodes[key] = node
	}
	return flow, nil
}

func buildNode(key string, nd dto.NodeDocument) (*domain.Node, error) {
	id := nd.ID
	if id == "" {
		id = key
	}
	node := &domain.Node{
		ID:       id,
		Kind:     domain.NodeKind(nd.Type),
		Meta:     nd.Meta,
		Renderer: nd.Renderer,
	}

	effects, err := buildEffects(nd.Effects)
	if err != nil {
		return nil, err
	}
	node.Effects = effects

	if nd.UI != nil {
		ui := &domain.UI{
			Prompt:      nd.UI.QuestionText,
			Description: nd.UI.Description,
			InputKind:   domain.InputKind(nd.UI.InputType),
			Placeholder: nd.UI.Placeholder,
		}
		for _, od := range nd.UI.Options {
			optEffects, err := buildEffects(od.Effects)
			if err != nil {
				return nil, fmt.Errorf("option '%s': %w", od.ID, err)
			}
			ui.Options = append(ui.Options, domain.Option{
				ID:          od.ID,
				Label:       od.Label,
				Description: od.Description,
				Effects:     optEffects,
			})
		}
		node.UI = ui
	}

	for i, ed := range nd.Edges {
		cond, err := buildCondition(ed.Condition)
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		node.Edges = append(node.Edges, domain.Edge{Condition: cond, NextNodeID: ed.NextNodeID})
	}
	return node, nil
}

func buildEffects(docs []dto.EffectDocument) ([]domain.Effect, error) {
	var out []domain.Effect
	for i, ed := range docs {
		e, err := buildEffect(ed)
		if err != nil {
			return nil, fmt.Errorf("effect %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func buildEffect(ed dto.EffectDocument) (domain.Effect, error) {
	path, err := domain.ParsePath(ed.Path)
	if err != nil {
		return nil, err
	}
	if path.Root != domain.RootVariables && path.Root != domain.RootScores {
		return nil, fmt.Errorf("path %q: unknown root %q", ed.Path, path.Root)
	}

	switch ed.Op {
	case domain.OpSet:
		from := ed.From
		if from == "" {
			from = ed.FromLegacy
		}
		source := domain.Source(from)
		if source != domain.SourceNone && source != domain.SourceAnswer {
			return nil, fmt.Errorf("set %q: unknown source %q", ed.Path, from)
		}
		return domain.SetEffect{Path: path, Source: source}, nil
	case domain.OpIncrement:
		amount := 1.0
		if ed.Value != nil {
			amount = *ed.Value
		}
		if math.IsNaN(amount) || math.IsInf(amount, 0) {
			return nil, fmt.Errorf("increment %q: amount must be finite", ed.Path)
		}
		return domain.IncrementEffect{Path: path, Amount: amount}, nil
	}
	return nil, fmt.Errorf("unknown effect op %q", ed.Op)
}

func buildCondition(cd dto.ConditionDocument) (domain.Condition, error) {
	switch cd.Op {
	case domain.OpAlways:
		return domain.Always{}, nil
	case domain.OpEq:
		if cd.Left == nil || cd.Left.Kind == "" {
			return nil, errors.New("eq condition requires a left operand with a kind")
		}
		if cd.Right == nil {
			return nil, errors.New("eq condition requires a right operand")
		}
		v, err := domain.FromAny(cd.Right.Value)
		if err != nil {
			return nil, fmt.Errorf("eq right operand: %w", err)
		}
		return domain.Eq{
			Left:  domain.Operand{Kind: domain.OperandKind(cd.Left.Kind), Path: cd.Left.Path},
			Right: v,
		}, nil
	}
	return nil, fmt.Errorf("unknown condition op %q", cd.Op)
}
