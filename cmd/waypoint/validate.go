package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/waypoint/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check flow documents for consistency",
	Long: `Compiles every flow document and reports errors (dangling edges, missing start
node, malformed effects) and warnings (unreachable nodes, conditions on variables
nothing sets).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "flows"
		if len(args) > 0 {
			dir = args[0]
		} else if cmd.Flags().Changed("flows") {
			dir, _ = cmd.Flags().GetString("flows")
		}

		if err := cli.ValidateFlows(os.DirFS(dir), cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All flows are valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
