package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/mockproxy/pkg/logging"
)

var (
	// Persistent flags available to all subcommands
	logLevel   string
	logFormat  string
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mockproxy",
	Short: "mockproxy is a TLS-intercepting mock proxy for HTTPS clients",
	Long: `mockproxy answers HTTPS requests from a fixed table of mocks.

Clients route their traffic through the proxy (HTTPS_PROXY) and trust its root
certificate. Each tunnelled request is matched on method and path and answered
with the registered response; nothing is ever sent to the real upstream.`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	os.Exit(Main())
}

// Main runs the CLI with os.Args and returns the process exit code.
func Main() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// newLogger builds the process logger from the persistent flags, letting a
// configuration file fill in anything not given on the command line.
func newLogger(cmd *cobra.Command, cfg logging.Config) *slog.Logger {
	if cmd.Flags().Changed("log-level") {
		cfg.Level = logging.ParseLevel(logLevel)
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Format = logging.ParseFormat(logFormat)
	}
	cfg.Output = cmd.ErrOrStderr()
	return logging.New(cfg)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}
