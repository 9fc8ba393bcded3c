package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/getmockd/mockproxy/pkg/ca"
	"github.com/getmockd/mockproxy/pkg/cli/internal/output"
)

var caCmd = &cobra.Command{
	Use:   "ca",
	Short: "Manage the root CA used for HTTPS interception",
}

var (
	caInitDir          string
	caInitForce        bool
	caInitOrganization string
	caInitValidityDays int
	caInitKeyBits      int
)

var caInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a new root CA and write it to a directory",
	Long: `Generate a new root CA and write ca.crt and ca.key to --dir.

Reuse the directory with 'mockproxy serve --ca-dir' so clients only need to
trust the certificate once.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if caInitDir == "" {
			return ErrCADirNeeded
		}
		if ca.Exists(caInitDir) && !caInitForce {
			return fmt.Errorf("%w: %s", ErrCAExists, caInitDir)
		}

		var opts []ca.Option
		if caInitOrganization != "" {
			opts = append(opts, ca.WithOrganization(caInitOrganization))
		}
		if caInitValidityDays > 0 {
			opts = append(opts, ca.WithValidityDays(caInitValidityDays))
		}
		if caInitKeyBits > 0 {
			opts = append(opts, ca.WithKeyBits(caInitKeyBits))
		}

		authority, err := ca.Generate(opts...)
		if err != nil {
			return fmt.Errorf("failed to generate CA: %w", err)
		}
		if err := authority.Save(caInitDir); err != nil {
			return err
		}

		certPath := filepath.Join(caInitDir, ca.CertFile)
		w := cmd.OutOrStdout()
		if jsonOutput {
			return output.JSON(w, map[string]string{
				"certificate": certPath,
				"privateKey":  filepath.Join(caInitDir, ca.KeyFile),
				"subject":     authority.Certificate().Subject.String(),
			})
		}

		fmt.Fprintf(w, "CA certificate generated:\n")
		fmt.Fprintf(w, "  Certificate: %s\n", certPath)
		fmt.Fprintf(w, "  Private key: %s\n", filepath.Join(caInitDir, ca.KeyFile))
		fmt.Fprintln(w, "\nTo trust this CA for a single process:")
		fmt.Fprintf(w, "  SSL_CERT_FILE=%s <command>\n", certPath)
		return nil
	},
}

var (
	caExportDir    string
	caExportOutput string
)

var caExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the root CA certificate for trust installation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if caExportDir == "" {
			return ErrCADirNeeded
		}

		authority, err := ca.Load(caExportDir)
		if err != nil {
			return fmt.Errorf("failed to load CA: %w", err)
		}
		certPEM := authority.CertificatePEM()

		if caExportOutput == "" {
			_, err := cmd.OutOrStdout().Write(certPEM)
			return err
		}

		if err := os.WriteFile(caExportOutput, certPEM, 0644); err != nil {
			return fmt.Errorf("failed to write certificate: %w", err)
		}
		if !jsonOutput {
			output.Warn(cmd.ErrOrStderr(), "only the certificate was exported; keep %s private", filepath.Join(caExportDir, ca.KeyFile))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "CA certificate exported to: %s\n", caExportOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(caCmd)

	caCmd.AddCommand(caInitCmd)
	caInitCmd.Flags().StringVar(&caInitDir, "dir", "", "Directory to write ca.crt and ca.key to")
	caInitCmd.Flags().BoolVar(&caInitForce, "force", false, "Replace an existing CA")
	caInitCmd.Flags().StringVar(&caInitOrganization, "organization", "", "Organization name of the root certificate")
	caInitCmd.Flags().IntVar(&caInitValidityDays, "validity-days", 0, "Validity of the root certificate in days")
	caInitCmd.Flags().IntVar(&caInitKeyBits, "key-bits", ca.DefaultKeyBits, "RSA key size of the root")

	caCmd.AddCommand(caExportCmd)
	caExportCmd.Flags().StringVar(&caExportDir, "dir", "", "Directory holding ca.crt and ca.key")
	caExportCmd.Flags().StringVarP(&caExportOutput, "output", "o", "", "Output file path (default: stdout)")
}
