package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/internal/engine"
	"github.com/driftkit/driftkit/internal/logger"
	"github.com/driftkit/driftkit/internal/plugin"
)

func newPluginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List available step-type plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Registration needs a resolver; an empty configuration is
			// enough for listing.
			eng := engine.New(&config.Config{}, logger.NewNop(), engine.Options{})
			if err := registerPlugins(eng); err != nil {
				return err
			}

			for _, meta := range plugin.ListPlugins() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-26s %-8s %s\n", meta.Name, meta.Version, meta.Description)
			}
			return nil
		},
	}

	return cmd
}
