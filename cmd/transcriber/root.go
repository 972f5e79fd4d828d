package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/whisperbatch/config"
	"github.com/kbukum/whisperbatch/internal/app"
)

// options are the flags shared by every command.
type options struct {
	configFile string
	envFile    string
}

// NewRootCommand returns the root command. Without a subcommand it serves.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	cobra.EnableCommandSorting = false

	root := &cobra.Command{
		Use:   app.ServiceName,
		Short: "Batch audio transcription service.",
		Long: `Transcriber accepts up to five MP3 files per request, transcribes them with
the configured speech-to-text provider and answers with a zip archive holding
one transcript per file.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "path to config.yml (searched for when empty)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "path to a .env file (searched for when empty)")

	root.AddCommand(NewServeCommand(opts))
	root.AddCommand(NewSweepCommand(opts))
	root.AddCommand(NewVersionCommand())
	return root
}

func loadConfig(opts *options) (*app.Config, error) {
	var lo []config.Option
	if opts.configFile != "" {
		lo = append(lo, config.WithConfigFile(opts.configFile))
	}
	if opts.envFile != "" {
		lo = append(lo, config.WithEnvFile(opts.envFile))
	}

	cfg := &app.Config{}
	if err := config.LoadConfig(app.ServiceName, cfg, lo...); err != nil {
		return nil, err
	}
	return cfg, nil
}
