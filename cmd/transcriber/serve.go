package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/whisperbatch/bootstrap"
	"github.com/kbukum/whisperbatch/internal/app"
)

// NewServeCommand returns the command running the HTTP service until
// SIGINT or SIGTERM.
func NewServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	a, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	if _, err := app.Build(a); err != nil {
		return err
	}
	return a.Run(cmd.Context())
}
