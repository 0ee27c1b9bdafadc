package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/conduit/internal/auth"
	"github.com/sakif/conduit/internal/server"
)

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != 0 {
				cfg.Port = port
			}

			keys, err := auth.LoadKeyPair(cfg.CertPath, cfg.CertPassphrase)
			if err != nil {
				var loadErr *auth.CertificateLoadError
				if errors.As(err, &loadErr) {
					logger.Error("cannot load signing certificate",
						slog.String("path", loadErr.Path),
						slog.String("error", loadErr.Err.Error()),
					)
				}
				return err
			}

			if dir := filepath.Dir(cfg.DBPath); cfg.DBPath != ":memory:" && dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("creating data directory: %w", err)
				}
			}

			srv, err := server.New(cfg, keys, logger)
			if err != nil {
				logger.Error("failed to create server", slog.String("error", err.Error()))
				return err
			}
			return srv.Start(context.Background())
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides PORT)")
	return cmd
}
