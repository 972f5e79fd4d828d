package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/whisperbatch/bootstrap"
	"github.com/kbukum/whisperbatch/internal/app"
	"github.com/kbukum/whisperbatch/internal/workspace"
)

// NewSweepCommand returns the command that deletes expired run directories
// once and exits.
func NewSweepCommand(opts *options) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired run directories once and exit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if maxAge > 0 {
				cfg.Workspace.MaxAge = maxAge
			}

			a, err := bootstrap.NewApp(cfg, bootstrap.WithSummaryOutput(io.Discard))
			if err != nil {
				return err
			}
			store, err := app.NewStorage(a.Cfg, a.Logger)
			if err != nil {
				return err
			}
			reaper := workspace.NewReaper(store, a.Cfg.Workspace.SweepInterval, a.Cfg.Workspace.MaxAge, a.Logger)

			return a.RunTask(cmd.Context(), func(ctx context.Context) error {
				report := reaper.Sweep(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, deleted %d, failed %d\n",
					report.Scanned, report.Deleted, report.Failed)
				if report.Failed > 0 {
					return fmt.Errorf("%d run directories could not be deleted", report.Failed)
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "override workspace.max_age for this sweep")
	return cmd
}
