package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/waypoint/internal/cli"
	"github.com/aretw0/waypoint/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "waypoint",
	Short: "Waypoint runs branching questionnaires",
	Long: `Waypoint walks users through branching questionnaires defined as JSON or YAML
flow documents, accumulating answers, variables and trait scores per session.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to a YAML config file")
	pf.String("env-file", ".env", "Path to a .env file (ignored when missing)")
	pf.String("flows", "", "Directory containing flow documents (default \"flows\")")
	pf.String("store", "", "Session store: memory, file, redis, sqlite or postgres")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("log-format", "", "Log format: text or json")
}

// loadConfig reads the config file, .env and environment, then applies
// the flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	envFile, _ := flags.GetString("env-file")

	cfg, err := config.Load(path, envFile)
	if err != nil {
		return nil, err
	}

	override := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	override("flows", &cfg.Flows.Dir)
	override("store", &cfg.Store.Backend)
	override("log-level", &cfg.Log.Level)
	override("log-format", &cfg.Log.Format)

	if flags.Lookup("addr") != nil {
		override("addr", &cfg.Server.Addr)
	}
	if flags.Lookup("watch") != nil && flags.Changed("watch") {
		cfg.Flows.Watch, _ = flags.GetBool("watch")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openRuntime loads the config and builds the engine with its backends.
func openRuntime(ctx context.Context, cmd *cobra.Command) (*config.Config, *cli.Runtime, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := cli.NewLogger(cfg.Log)
	rt, err := cli.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, rt, logger, nil
}
