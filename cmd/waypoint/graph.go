package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/waypoint/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph <flow-id>",
	Short: "Export a flow as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of the flow's nodes and edges.
With --session, the nodes the session visited and its current node are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, rt, _, err := openRuntime(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		flow, err := rt.Engine.Flow(args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
			sc, err := rt.Engine.Session(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			overlay = graph.OverlayFor(sc)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(flow, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the path of this session")
}
