package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aretw0/waypoint"
)

// ListSessions prints one row per stored session.
func ListSessions(ctx context.Context, eng *waypoint.Engine, w io.Writer) error {
	ids, err := eng.Sessions(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tFLOW\tNODE\tDONE\tUPDATED")
	for _, id := range ids {
		sc, err := eng.Session(ctx, id)
		if err != nil {
			fmt.Fprintf(tw, "%s\t?\t?\t?\t%v\n", id, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", id, sc.FlowID, sc.CurrentNodeID, sc.Done, sc.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

// InspectSession prints the stored context of a session as indented JSON.
func InspectSession(ctx context.Context, eng *waypoint.Engine, sessionID string, w io.Writer) error {
	return printContext(ctx, eng, sessionID, w)
}

// RemoveSession deletes a session and confirms on w.
func RemoveSession(ctx context.Context, eng *waypoint.Engine, sessionID string, w io.Writer) error {
	if _, err := eng.Session(ctx, sessionID); err != nil {
		return err
	}
	if err := eng.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	printSystemMessage(w, "Session '%s' removed.", sessionID)
	return nil
}

// ExportSession writes the current view of a session (node or result, plus
// context) as JSON, the same shape the HTTP API returns.
func ExportSession(ctx context.Context, eng *waypoint.Engine, sessionID string, w io.Writer) error {
	view, err := eng.CurrentView(ctx, sessionID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
