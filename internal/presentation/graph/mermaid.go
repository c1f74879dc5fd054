package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/waypoint/pkg/domain"
)

// GraphOverlay contains session data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFor builds the overlay of a session.
func OverlayFor(sc *domain.SessionContext) *GraphOverlay {
	if sc == nil {
		return nil
	}
	return &GraphOverlay{VisitedNodes: sc.History, CurrentNode: sc.CurrentNodeID}
}

// GenerateMermaid produces a Mermaid flowchart for flow.
// It applies semantic styling:
// - Start: ((Circle))
// - Question: [/Parallelogram/]
// - Result: [[Subroutine]]
// Edges are drawn in evaluation order and labelled with their condition.
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(flow *domain.Flow, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range flow.NodeIDs() {
		node := flow.Nodes[id]
		safeID := sanitizeMermaidID(id)

		opener, closer := "[", "]"
		switch {
		case id == flow.StartNodeID:
			opener, closer = "((", "))"
		case node.Kind == domain.NodeKindResult:
			opener, closer = "[[", "]]"
		case node.Kind == domain.NodeKindQuestion:
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escape(id), closer)

		for i, edge := range node.Edges {
			safeTo := sanitizeMermaidID(edge.NextNodeID)
			label := ConditionLabel(edge.Condition)
			if len(node.Edges) > 1 {
				label = strings.TrimSpace(strconv.Itoa(i+1) + ". " + label)
			}
			if label == "" {
				fmt.Fprintf(&sb, "    %s --> %s\n", safeID, safeTo)
				continue
			}
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, escape(label), safeTo)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			if _, ok := flow.Nodes[id]; !ok || id == overlay.CurrentNode {
				continue
			}
			safeID := sanitizeMermaidID(id)
			if !visited[safeID] {
				visited[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

// ConditionLabel renders a condition for humans; "always" renders empty.
func ConditionLabel(c domain.Condition) string {
	eq, ok := c.(domain.Eq)
	if !ok {
		return ""
	}
	left := string(eq.Left.Kind)
	if eq.Left.Kind == domain.OperandContext {
		left = eq.Left.Path
	}
	right := eq.Right.String()
	if _, isStr := eq.Right.AsString(); isStr {
		right = strconv.Quote(right)
	}
	return left + " == " + right
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
