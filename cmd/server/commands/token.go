package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/conduit/internal/auth"
)

func tokenCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for a username with the configured certificate",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("username required (--username)")
			}
			keys, err := auth.LoadKeyPair(cfg.CertPath, cfg.CertPassphrase)
			if err != nil {
				return err
			}

			token, err := auth.NewIssuer(keys, cfg.TokenTTL, cfg.TokenIssuer).Issue(username, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "token subject")
	return cmd
}
