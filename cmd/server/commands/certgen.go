package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/conduit/internal/auth"
)

func certgenCmd() *cobra.Command {
	var (
		out        string
		passphrase string
		commonName string
		bits       int
		validFor   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "certgen",
		Short: "Generate a self-signed signing certificate for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = cfg.CertPath
			}
			if passphrase == "" {
				passphrase = cfg.CertPassphrase
			}
			if passphrase == "" {
				return fmt.Errorf("passphrase required (--passphrase or CERT_PASSPHRASE)")
			}

			kp, err := auth.GenerateKeyPair(commonName, bits, validFor)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o700); err != nil {
				return fmt.Errorf("creating %s: %w", filepath.Dir(out), err)
			}
			if err := kp.WritePKCS12(out, passphrase); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Certificate written to %s\nSubject: %s\nExpires: %s\n",
				out, kp.Certificate().Subject.CommonName, kp.Certificate().NotAfter.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output file (default CERT_PATH)")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "container passphrase (default CERT_PASSPHRASE)")
	cmd.Flags().StringVar(&commonName, "cn", "conduit", "certificate common name")
	cmd.Flags().IntVar(&bits, "bits", 2048, "RSA key size")
	cmd.Flags().DurationVar(&validFor, "valid-for", 365*24*time.Hour, "certificate lifetime")
	return cmd
}
