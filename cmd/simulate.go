package main

import (
	"fmt"

	"github.com/okian/cragboard/internal/simulate"
	"github.com/okian/cragboard/pkg/logger"
	"github.com/spf13/cobra"
)

func newSimulateCmd() *cobra.Command {
	cfg := simulate.Defaults()
	var logFormat string
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a running scoreboard with generated submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := logger.Init(logger.WithFormat(logFormat)); err != nil {
				return err
			}
			cfg.Logger = logger.Get().Named("simulate")

			stats, err := simulate.Run(ctx, cfg)
			if stats != nil {
				fmt.Fprintf(cmd.OutOrStdout(),
					"generated=%d submitted=%d saved=%d duplicate=%d invalid=%d failed=%d duration=%s\n",
					stats.Generated, stats.Submitted, stats.Saved, stats.Duplicate,
					stats.Invalid, stats.Failed, stats.Duration)
				for _, m := range stats.Mismatches {
					fmt.Fprintln(cmd.ErrOrStderr(), "mismatch:", m)
				}
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the scoreboard")
	f.IntVar(&cfg.Climbers, "climbers", cfg.Climbers, "number of generated climbers")
	f.StringSliceVar(&cfg.Routes, "routes", nil, "routes to climb (default: fetched from /data)")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent submitters")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "upper bound on attempts per route")
	f.Float64Var(&cfg.InvalidRate, "invalid-rate", cfg.InvalidRate, "share of pairs sent with a top before any milestone")
	f.Float64Var(&cfg.DuplicateRate, "duplicate-rate", cfg.DuplicateRate, "share of pairs sent twice")
	f.BoolVar(&cfg.UploadRoster, "upload-roster", false, "replace the roster with the generated climbers first")
	f.StringVar(&logFormat, "log-format", "text", "log format: text or json")
	return cmd
}
