package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/waypoint/pkg/domain"
)

// NodeMarkdown renders a question node as markdown. Choice options are
// numbered so the user can answer with either the number or the option id.
func NodeMarkdown(node *domain.Node) string {
	var sb strings.Builder
	if node.UI == nil {
		fmt.Fprintf(&sb, "## %s\n", node.ID)
		return sb.String()
	}

	fmt.Fprintf(&sb, "## %s\n\n", node.UI.Prompt)
	if node.UI.Description != "" {
		fmt.Fprintf(&sb, "_%s_\n\n", node.UI.Description)
	}

	switch node.UI.InputKind {
	case domain.InputSingleChoice, domain.InputMultiChoice:
		for i, opt := range node.UI.Options {
			fmt.Fprintf(&sb, "%d. %s (`%s`)\n", i+1, opt.Label, opt.ID)
		}
		if node.UI.InputKind == domain.InputMultiChoice {
			sb.WriteString("\nSeparate several choices with commas.\n")
		}
	case domain.InputNumber:
		sb.WriteString("Enter a number.")
		if node.UI.Placeholder != "" {
			fmt.Fprintf(&sb, " (%s)", node.UI.Placeholder)
		}
		sb.WriteString("\n")
	default:
		if node.UI.Placeholder != "" {
			fmt.Fprintf(&sb, "%s\n", node.UI.Placeholder)
		}
	}
	return sb.String()
}

// ResultMarkdown renders the summary of a completed session.
func ResultMarkdown(res domain.Result) string {
	var sb strings.Builder
	sb.WriteString("# Your summary\n\n")

	if len(res.Summary.TopTraits) > 0 {
		sb.WriteString("## Top traits\n\n")
		for _, trait := range res.Summary.TopTraits {
			fmt.Fprintf(&sb, "- %s\n", trait)
		}
		sb.WriteString("\n")
	}

	if len(res.Summary.Variables) > 0 {
		sb.WriteString("## Profile\n\n| Field | Value |\n|---|---|\n")
		keys := make([]string, 0, len(res.Summary.Variables))
		for k := range res.Summary.Variables {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "| %s | %s |\n", k, res.Summary.Variables[k])
		}
		sb.WriteString("\n")
	}

	if res.Renderer != "" {
		fmt.Fprintf(&sb, "Rendered by `%s`.\n", res.Renderer)
	}
	return sb.String()
}
