package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/internal/sdb"
	consulsdb "github.com/driftkit/driftkit/internal/sdb/consul"
)

// configProfiles resolves profiles straight from a parsed
// configuration, for commands that do not build an engine.
type configProfiles struct {
	cfg *config.Config
}

func (c configProfiles) Profile(name string) (config.Profile, bool) {
	p, ok := c.cfg.Profiles[name]
	return p, ok
}

func newSdbCmd(root *rootFlags) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "sdb",
		Short: "Read and write small-data URIs (sdb://profile/key)",
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.MarkPersistentFlagRequired("config") //nolint:errcheck

	get := &cobra.Command{
		Use:   "get <uri>",
		Short: "Resolve an sdb URI to its value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore(opts.ConfigPath)
			if err != nil {
				return err
			}

			value, found, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%s: key not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <uri> <value>",
		Short: "Write a value through an sdb URI",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore(opts.ConfigPath)
			if err != nil {
				return err
			}
			return store.Set(cmd.Context(), args[0], args[1])
		},
	}

	cmd.AddCommand(get)
	cmd.AddCommand(set)

	return cmd
}

func newStore(configPath string) (*sdb.Store, error) {
	if err := validateConfigPath(configPath); err != nil {
		return nil, err
	}
	cfg, err := config.ParseConfig(configPath)
	if err != nil {
		return nil, err
	}

	registry := sdb.NewRegistry()
	if err := registry.Register("consul", consulsdb.New()); err != nil {
		return nil, err
	}

	return sdb.NewStore(configProfiles{cfg: cfg}, registry), nil
}
