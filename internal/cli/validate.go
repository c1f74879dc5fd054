package cli

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/aretw0/waypoint/internal/compiler"
	"github.com/aretw0/waypoint/internal/validator"
)

// ValidateFlows checks every flow document in fsys and prints errors and
// warnings per file. It fails when any document has errors.
func ValidateFlows(fsys fs.FS, w io.Writer) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read flows directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		ext := strings.ToLower(path.Ext(e.Name()))
		if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") && (ext == ".json" || ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return fmt.Errorf("no flow documents found")
	}

	c := compiler.New()
	failed := 0
	ids := make(map[string]string)
	for _, name := range names {
		report, err := validateDocument(c, fsys, name)
		if err != nil {
			failed++
			fmt.Fprintf(w, "✗ %s\n    %v\n", name, err)
			continue
		}
		if prev, dup := ids[report.FlowID]; dup {
			report.Issues = append(report.Issues, validator.Issue{
				Severity: validator.SeverityError,
				Message:  fmt.Sprintf("flow id '%s' is already defined in %s", report.FlowID, prev),
			})
		}
		ids[report.FlowID] = name

		if len(report.Errors()) > 0 {
			failed++
			fmt.Fprintf(w, "✗ %s (%s)\n", name, report.FlowID)
		} else {
			fmt.Fprintf(w, "✓ %s (%s)\n", name, report.FlowID)
		}
		for _, issue := range report.Issues {
			fmt.Fprintf(w, "    %s\n", issue)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d flow documents are invalid", failed, len(names))
	}
	return nil
}

// validateDocument decodes and builds without the load-time check so every
// issue is reported rather than the first failure.
func validateDocument(c *compiler.Compiler, fsys fs.FS, name string) (validator.Report, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return validator.Report{}, err
	}
	doc, err := c.Decode(data)
	if err != nil {
		return validator.Report{}, err
	}
	flow, err := compiler.Build(doc)
	if err != nil {
		return validator.Report{}, err
	}
	return validator.ValidateFlow(flow), nil
}
