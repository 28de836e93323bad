package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/internal/engine"
)

func newVerifyCmd(root *rootFlags) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Report drift without changing anything",
		Long:  "Verify evaluates every step in preview mode. It never mutates a resource, regardless of settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DryRun = true
			opts.Verbose = root.verbose

			if err := validateConfigPath(opts.ConfigPath); err != nil {
				return err
			}

			return runVerify(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}

func runVerify(cmd *cobra.Command, opts applyOptions) error {
	cfg, err := config.ParseConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	log, err := newLogger(opts.Verbose || cfg.Settings.Verbose)
	if err != nil {
		return err
	}

	eng := engine.New(cfg, log, engine.Options{DryRun: true, ContinueOnError: true})
	if err := registerPlugins(eng); err != nil {
		return err
	}

	summary, err := eng.Run(cmd.Context())
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), summary)

	if !summary.Success() {
		return fmt.Errorf("%d step(s) failed verification", summary.Failed)
	}
	if summary.Previewed > 0 {
		return fmt.Errorf("%d step(s) have pending changes", summary.Previewed)
	}
	return nil
}
