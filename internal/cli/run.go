package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/internal/presentation/graph"
	"github.com/aretw0/waypoint/internal/presentation/tui"
	"github.com/aretw0/waypoint/internal/sanitize"
	"github.com/aretw0/waypoint/pkg/domain"
)

// RunOptions configures an interactive session.
type RunOptions struct {
	FlowID string
	// Resume continues a stored session instead of starting one.
	Resume string

	In       io.Reader
	Out      io.Writer
	Renderer tui.Renderer
	Logger   *slog.Logger
}

// Run walks a session in the terminal until it completes, the user quits or
// ctx is cancelled. It returns the session id so callers can report it.
func Run(ctx context.Context, eng *waypoint.Engine, opts RunOptions) (string, error) {
	if opts.Renderer == nil {
		opts.Renderer = tui.PlainRenderer
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	sessionID, view, err := open(ctx, eng, opts)
	if err != nil {
		return "", err
	}

	lines := readLines(ctx, opts.In)
	for !view.Done {
		if err := show(opts, tui.NodeMarkdown(view.Node)); err != nil {
			return sessionID, err
		}

		fmt.Fprint(opts.Out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(opts.Out)
			return sessionID, ctx.Err()
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(opts.Out)
				return sessionID, io.EOF
			}
			line = l
		}

		switch routeInput(line) {
		case cmdQuit:
			printSystemMessage(opts.Out, "Session '%s' paused at '%s'.", sessionID, view.Node.ID)
			return sessionID, errQuit
		case cmdHelp:
			fmt.Fprint(opts.Out, helpText)
			continue
		case cmdContext:
			if err := printContext(ctx, eng, sessionID, opts.Out); err != nil {
				return sessionID, err
			}
			continue
		case cmdGraph:
			if err := printGraph(ctx, eng, sessionID, opts.Out); err != nil {
				return sessionID, err
			}
			continue
		}

		answer, err := ParseAnswer(view.Node, line)
		if err != nil {
			printSystemMessage(opts.Out, "%v", err)
			continue
		}

		res, err := eng.Submit(ctx, sessionID, view.Node.ID, answer)
		if err != nil {
			if errors.Is(err, domain.ErrNoTransition) {
				printSystemMessage(opts.Out, "That answer leads nowhere in this flow. Try another one.")
				continue
			}
			return sessionID, err
		}
		opts.Logger.Debug("answer accepted", "session_id", sessionID, "node_id", view.Node.ID)
		view = res
	}

	if view.Result != nil {
		if err := show(opts, tui.ResultMarkdown(*view.Result)); err != nil {
			return sessionID, err
		}
	}
	printSystemMessage(opts.Out, "Session '%s' complete.", sessionID)
	return sessionID, nil
}

func open(ctx context.Context, eng *waypoint.Engine, opts RunOptions) (string, *waypoint.SubmitResult, error) {
	if opts.Resume != "" {
		view, err := eng.CurrentView(ctx, opts.Resume)
		if err != nil {
			return "", nil, err
		}
		printSystemMessage(opts.Out, "Resuming session '%s'.", opts.Resume)
		return opts.Resume, view, nil
	}

	start, err := eng.Start(ctx, opts.FlowID)
	if err != nil {
		return "", nil, err
	}
	printSystemMessage(opts.Out, "Session '%s' active.", start.SessionID)
	return start.SessionID, &waypoint.SubmitResult{Node: start.Node}, nil
}

func show(opts RunOptions, markdown string) error {
	out, err := opts.Renderer(markdown)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	fmt.Fprintln(opts.Out, out)
	return nil
}

// readLines pumps r line by line so the prompt loop can also watch ctx.
// The goroutine ends when r does.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// ParseAnswer converts a typed line into the answer expected by node.
// Choice questions accept the 1-based option number or the option id.
func ParseAnswer(node *domain.Node, line string) (domain.Value, error) {
	line, err := sanitize.Input(strings.TrimSpace(line))
	if err != nil {
		return domain.Null(), err
	}
	if node.UI == nil {
		return domain.String(line), nil
	}

	switch node.UI.InputKind {
	case domain.InputSingleChoice:
		if line == "" {
			return domain.Null(), errors.New("pick one of the options")
		}
		return domain.String(optionID(node, line)), nil

	case domain.InputMultiChoice:
		var items []domain.Value
		for _, part := range strings.Split(line, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, domain.String(optionID(node, part)))
			}
		}
		if len(items) == 0 {
			return domain.Null(), errors.New("pick at least one option")
		}
		return domain.List(items...), nil

	case domain.InputNumber:
		n, err := strconv.ParseFloat(line, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return domain.Null(), fmt.Errorf("%q is not a number", line)
		}
		return domain.Number(n), nil
	}
	return domain.String(line), nil
}

func optionID(node *domain.Node, s string) string {
	if i, err := strconv.Atoi(s); err == nil && i >= 1 && i <= len(node.UI.Options) {
		return node.UI.Options[i-1].ID
	}
	return s
}

func printContext(ctx context.Context, eng *waypoint.Engine, sessionID string, w io.Writer) error {
	sc, err := eng.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printGraph(ctx context.Context, eng *waypoint.Engine, sessionID string, w io.Writer) error {
	sc, err := eng.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	flow, err := eng.Flow(sc.FlowID)
	if err != nil {
		return err
	}
	fmt.Fprint(w, graph.GenerateMermaid(flow, graph.OverlayFor(sc)))
	return nil
}
