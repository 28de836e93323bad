package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/internal/model"
	"github.com/driftkit/driftkit/internal/plugins/infratest"
)

func newTestCmd(root *rootFlags) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the configuration's assertion suites",
		Long:  "Test runs only the infra_test steps and reports every assertion, passing or failing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateConfigPath(opts.ConfigPath); err != nil {
				return err
			}
			return runTest(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}

func runTest(cmd *cobra.Command, opts applyOptions) error {
	cfg, err := config.ParseConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	p := infratest.New()
	out := cmd.OutOrStdout()
	ran := 0
	failures := 0

	for i := range cfg.Steps {
		step := &cfg.Steps[i]
		if step.Type != "infra_test" || !step.Enabled {
			continue
		}
		ran++

		eval, err := p.Evaluate(cmd.Context(), step)
		if err != nil {
			failures++
			fmt.Fprintf(out, "[error] %s: %v\n", step.ID, err)
			continue
		}

		fmt.Fprintln(out, eval.Message)
		if eval.CurrentState != model.StatusSatisfied {
			failures++
		}
	}

	if ran == 0 {
		return fmt.Errorf("configuration has no infra_test steps")
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d suite(s) failed", failures, ran)
	}
	fmt.Fprintf(out, "\n%d suite(s) passed\n", ran)
	return nil
}
