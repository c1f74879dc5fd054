package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/waypoint/pkg/domain"
)

// Severity classifies an Issue.
type Severity string

const (
	// SeverityError makes a flow unloadable.
	SeverityError Severity = "error"
	// SeverityWarning flags definitions that load but probably do not do what the author meant.
	SeverityWarning Severity = "warning"
)

// Issue is a single finding about a flow.
type Issue struct {
	Severity Severity `json:"severity"`
	NodeID   string   `json:"node_id,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.NodeID == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: node '%s': %s", i.Severity, i.NodeID, i.Message)
}

// Report collects the issues found in a flow.
type Report struct {
	FlowID string  `json:"flow_id"`
	Issues []Issue `json:"issues"`
}

func (r *Report) add(sev Severity, nodeID, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: sev, NodeID: nodeID, Message: fmt.Sprintf(format, args...)})
}

// Errors returns the issues that prevent the flow from loading.
func (r Report) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the non-fatal issues.
func (r Report) Warnings() []Issue { return r.filter(SeverityWarning) }

func (r Report) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

// Err folds the errors of the report into a single error wrapping domain.ErrInvalidFlow,
// or returns nil when there are none.
func (r Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.String()
	}
	return fmt.Errorf("%w: flow '%s': found %d errors:\n- %s",
		domain.ErrInvalidFlow, r.FlowID, len(errs), strings.Join(lines, "\n- "))
}

// ValidateFlow checks a compiled flow for broken links, structural mistakes
// and unreachable nodes starting from the start node.
func ValidateFlow(flow *domain.Flow) Report {
	r := Report{FlowID: flow.ID}

	if flow.ID == "" {
		r.add(SeverityError, "", "flow has no id")
	}
	if _, ok := flow.Nodes[flow.StartNodeID]; !ok {
		r.add(SeverityError, "", "start node '%s' not found", flow.StartNodeID)
	}

	assigned := make(map[string]bool)
	for _, id := range flow.NodeIDs() {
		for _, e := range allEffects(flow.Nodes[id]) {
			if set, ok := e.(domain.SetEffect); ok && setFires(set) {
				assigned[set.Path.Key] = true
			}
		}
	}

	for _, id := range flow.NodeIDs() {
		node := flow.Nodes[id]
		if node == nil {
			r.add(SeverityError, id, "node is empty")
			continue
		}
		if node.ID == "" {
			r.add(SeverityError, id, "node has no id")
		} else if node.ID != id {
			r.add(SeverityError, id, "node id '%s' does not match its key", node.ID)
		}
		checkNode(&r, flow, id, node, assigned)
	}

	for _, id := range unreachable(flow) {
		r.add(SeverityWarning, id, "unreachable from start node '%s'", flow.StartNodeID)
	}

	return r
}

func checkNode(r *Report, flow *domain.Flow, id string, node *domain.Node, assigned map[string]bool) {
	switch node.Kind {
	case domain.NodeKindResult:
		if len(node.Edges) > 0 {
			r.add(SeverityError, id, "result node must not declare edges")
		}
	case domain.NodeKindQuestion:
		if len(node.Edges) == 0 {
			r.add(SeverityError, id, "question node has no edges")
		}
		if node.UI == nil {
			r.add(SeverityError, id, "question node has no ui")
		} else {
			checkUI(r, id, node.UI)
		}
		if node.Renderer != "" {
			r.add(SeverityWarning, id, "renderer is only used on result nodes")
		}
	default:
		r.add(SeverityError, id, "unknown node type '%s'", node.Kind)
	}

	for _, e := range allEffects(node) {
		checkEffect(r, id, e)
	}

	for i, edge := range node.Edges {
		if _, ok := flow.Nodes[edge.NextNodeID]; !ok {
			r.add(SeverityError, id, "edge %d points to missing node '%s'", i, edge.NextNodeID)
		}
		if eq, ok := edge.Condition.(domain.Eq); ok {
			checkOperand(r, id, i, eq.Left, assigned)
		}
		if _, ok := edge.Condition.(domain.Always); ok && i < len(node.Edges)-1 {
			r.add(SeverityWarning, id, "edge %d always matches; later edges are never taken", i)
		}
	}
}

func checkUI(r *Report, id string, ui *domain.UI) {
	switch ui.InputKind {
	case domain.InputSingleChoice, domain.InputMultiChoice:
		if len(ui.Options) == 0 {
			r.add(SeverityError, id, "%s question has no options", ui.InputKind)
		}
	}
	seen := make(map[string]bool, len(ui.Options))
	for _, opt := range ui.Options {
		if seen[opt.ID] {
			r.add(SeverityError, id, "duplicate option id '%s'", opt.ID)
		}
		seen[opt.ID] = true
	}
	if ui.InputKind != domain.InputSingleChoice {
		for _, opt := range ui.Options {
			if len(opt.Effects) > 0 {
				r.add(SeverityWarning, id, "option '%s' effects only apply to single_choice questions", opt.ID)
			}
		}
	}
}

func checkEffect(r *Report, id string, e domain.Effect) {
	switch eff := e.(type) {
	case domain.SetEffect:
		if eff.Path.Root != domain.RootVariables {
			r.add(SeverityWarning, id, "set on '%s' never fires: only variables can be set", eff.Path)
		} else if eff.Source != domain.SourceAnswer {
			r.add(SeverityWarning, id, "set on '%s' never fires: missing from: answer", eff.Path)
		}
	case domain.IncrementEffect:
		if eff.Amount < 0 {
			r.add(SeverityError, id, "increment on '%s' has negative amount %v", eff.Path, eff.Amount)
		}
		if eff.Path.Root != domain.RootScores {
			r.add(SeverityWarning, id, "increment on '%s' always writes to scores.%s", eff.Path, eff.Path.Key)
		}
	}
}

func checkOperand(r *Report, id string, edge int, left domain.Operand, assigned map[string]bool) {
	switch left.Kind {
	case "":
		r.add(SeverityError, id, "edge %d: eq condition has no left operand", edge)
	case domain.OperandAnswer:
	case domain.OperandContext:
		p, err := domain.ParsePath(left.Path)
		if err != nil {
			r.add(SeverityWarning, id, "edge %d: context %v; it always reads null", edge, err)
			return
		}
		if p.Root != domain.RootVariables {
			r.add(SeverityWarning, id, "edge %d: context path '%s' reads variables.%s", edge, p, p.Key)
		}
		if !assigned[p.Key] {
			r.add(SeverityWarning, id, "edge %d: variable '%s' is never set", edge, p.Key)
		}
	default:
		r.add(SeverityWarning, id, "edge %d: operand kind '%s' always reads null", edge, left.Kind)
	}
}

func setFires(e domain.SetEffect) bool {
	return e.Path.Root == domain.RootVariables && e.Source == domain.SourceAnswer
}

func allEffects(node *domain.Node) []domain.Effect {
	if node == nil {
		return nil
	}
	effects := append([]domain.Effect(nil), node.Effects...)
	if node.UI != nil {
		for _, opt := range node.UI.Options {
			effects = append(effects, opt.Effects...)
		}
	}
	return effects
}

// unreachable crawls the graph from the start node and returns the nodes never visited.
func unreachable(flow *domain.Flow) []string {
	if _, ok := flow.Nodes[flow.StartNodeID]; !ok {
		return nil
	}
	visited := map[string]bool{}
	queue := []string{flow.StartNodeID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		node, ok := flow.Nodes[current]
		if !ok || node == nil {
			continue
		}
		for _, edge := range node.Edges {
			if !visited[edge.NextNodeID] {
				queue = append(queue, edge.NextNodeID)
			}
		}
	}

	var out []string
	for id := range flow.Nodes {
		if !visited[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
