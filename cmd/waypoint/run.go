package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/cli"
	"github.com/aretw0/waypoint/internal/presentation/tui"
)

var runCmd = &cobra.Command{
	Use:   "run [flow-id]",
	Short: "Answer a flow interactively in the terminal",
	Long: `Starts a session of the given flow and walks it at the terminal prompt.
Use --resume to continue a stored session (with a persistent --store).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resume, _ := cmd.Flags().GetString("resume")
		plain, _ := cmd.Flags().GetBool("plain")
		if len(args) == 0 && resume == "" {
			return errors.New("a flow id or --resume is required")
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		cfg, rt, logger, err := openRuntime(sigCtx, cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		out := cmd.OutOrStdout()
		interactive := !plain && cli.IsTerminal(os.Stdout)
		renderer := tui.PlainRenderer
		if interactive {
			tui.PrintBanner(out, waypoint.Version)
			renderer = tui.NewRenderer(cli.TerminalWidth(os.Stdout))
		}

		if cfg.Flows.Watch {
			if err := cli.WatchFlows(sigCtx, rt.Engine, logger, out); err != nil {
				logger.Warn("hot reload disabled", "err", err)
			}
		}

		opts := cli.RunOptions{
			Resume:   resume,
			In:       cmd.InOrStdin(),
			Out:      out,
			Renderer: renderer,
			Logger:   logger,
		}
		if len(args) > 0 {
			opts.FlowID = args[0]
		}

		_, err = cli.Run(sigCtx, rt.Engine, opts)
		return cli.HandleExecutionError(err)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("resume", "", "Continue the stored session with this id")
	runCmd.Flags().Bool("plain", false, "Disable the banner and markdown styling")
	runCmd.Flags().Bool("watch", false, "Reload flows when the flows directory changes")
}
