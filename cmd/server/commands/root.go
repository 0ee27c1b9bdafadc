// Package commands holds the cobra command tree of the server binary.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/conduit/internal/config"
)

var (
	envDir string
	cfg    config.Config
	logger *slog.Logger
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "server",
		Short:        "Conduit blogging API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotEnvs(envDir)

			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}

			logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&envDir, "env-dir", "", "directory holding .env files (default: working directory)")

	root.AddCommand(serveCmd(), certgenCmd(), tokenCmd())
	return root
}
