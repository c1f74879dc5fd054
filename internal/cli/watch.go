package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/aretw0/waypoint"
)

// WatchFlows reloads the engine's flows whenever the flows directory changes,
// reporting each reload on w. Sessions survive reloads: they keep pointing at
// their flow and node ids.
func WatchFlows(ctx context.Context, eng *waypoint.Engine, logger *slog.Logger, w io.Writer) error {
	err := eng.AutoReload(ctx, func(err error) {
		if err != nil {
			printSystemMessage(w, "Reload failed, keeping previous flows: %v", err)
			return
		}
		logger.Info("flows reloaded", "count", len(eng.Flows()))
		printSystemMessage(w, "Change detected, %d flow(s) reloaded.", len(eng.Flows()))
	})
	if err != nil {
		return err
	}
	logger.Info("watching flows for changes", "name", eng.Name)
	return nil
}
