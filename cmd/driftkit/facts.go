package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/driftkit/driftkit/internal/facts"
)

func newFactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facts",
		Short: "Collect and print host facts",
		RunE: func(cmd *cobra.Command, args []string) error {
			collected := facts.NewExternalIP().Collect(cmd.Context())

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(collected)
		},
	}

	return cmd
}
