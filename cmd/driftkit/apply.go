package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/internal/engine"
	"github.com/driftkit/driftkit/internal/logger"
)

type applyOptions struct {
	ConfigPath string
	DryRun     bool
	Verbose    bool
}

var applyCmdRunner = runApply

func newApplyCmd(root *rootFlags) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Converge resources toward the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DryRun = root.dryRun
			opts.Verbose = root.verbose

			if err := validateConfigPath(opts.ConfigPath); err != nil {
				return err
			}

			return applyCmdRunner(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}

func runApply(cmd *cobra.Command, opts applyOptions) error {
	cfg, err := config.ParseConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	log, err := newLogger(opts.Verbose || cfg.Settings.Verbose)
	if err != nil {
		return err
	}

	eng := engine.New(cfg, log, engine.Options{DryRun: opts.DryRun})
	if err := registerPlugins(eng); err != nil {
		return err
	}

	summary, err := eng.Run(cmd.Context())
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), summary)

	if !summary.Success() {
		return fmt.Errorf("%d step(s) failed", summary.Failed)
	}
	return nil
}

func newLogger(verbose bool) (*logger.Logger, error) {
	level := "info"
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Options{Level: level, HumanReadable: true})
}
