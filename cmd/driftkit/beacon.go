package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftkit/driftkit/internal/beacon"
	"github.com/driftkit/driftkit/internal/beacon/httpstatus"
	"github.com/driftkit/driftkit/internal/config"
)

const defaultBeaconInterval = 60 * time.Second

func newBeaconCmd(root *rootFlags) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "beacon",
		Short: "Run the configured beacons until interrupted",
		Long:  "Beacon probes the configured sites on the configured interval and writes one JSON event per finding to stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Verbose = root.verbose

			if err := validateConfigPath(opts.ConfigPath); err != nil {
				return err
			}
			return runBeacon(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}

func runBeacon(cmd *cobra.Command, opts applyOptions) error {
	cfg, err := config.ParseConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if cfg.Beacons.HTTPStatus == nil {
		return fmt.Errorf("configuration has no beacons")
	}

	log, err := newLogger(opts.Verbose || cfg.Settings.Verbose)
	if err != nil {
		return err
	}

	interval := defaultBeaconInterval
	if cfg.Beacons.Interval > 0 {
		interval = time.Duration(cfg.Beacons.Interval) * time.Second
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	handler := func(event beacon.Event) {
		if err := encoder.Encode(event); err != nil {
			log.Error(err, "failed to write beacon event")
		}
	}

	runner := beacon.NewRunner(interval, log, handler, httpstatus.New(cfg.Beacons.HTTPStatus))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("beacon runner started")
	if err := runner.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("beacon runner stopped")
	return nil
}
