package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/mockproxy/pkg/ca"
	"github.com/getmockd/mockproxy/pkg/cli/internal/output"
	"github.com/getmockd/mockproxy/pkg/cli/internal/parse"
	"github.com/getmockd/mockproxy/pkg/config"
	"github.com/getmockd/mockproxy/pkg/mock"
	"github.com/getmockd/mockproxy/pkg/proxy"
)

// shutdownTimeout is the maximum time to wait for the connection in flight.
const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	configFile       string
	listen           string
	caDir            string
	logFile          string
	certOut          string
	readTimeout      time.Duration
	writeTimeout     time.Duration
	handshakeTimeout time.Duration
	mocks            []string
}

// serveFlagVals is the package-level instance bound to cobra flags.
var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mock proxy in the foreground (Ctrl+C to stop)",
	Long: `Run the mock proxy in the foreground.

Mocks come from a configuration file (-f) and from repeatable --mock flags,
in that order; the first registered mock matching a request's method and path
answers it. Requests that match nothing get no response.

The environment needed to route a child process through the proxy is printed
on startup.`,
	Example: `  # Serve a single mock with a throwaway CA
  mockproxy serve --mock 'GET /ping=pong'

  # A path with a query string takes its body after a space
  mockproxy serve --mock 'GET /geocode?address=Perth ={"status":"OK"}'

  # Serve mocks from a file, reusing a CA created with 'mockproxy ca init'
  mockproxy serve -f mockproxy.yaml --ca-dir ./ca`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadServeConfig(&serveFlagVals)
		if err != nil {
			return err
		}
		logCfg := cfg.Logging()
		if path := cfg.LogFile(); path != "" {
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer file.Close()
			logCfg.File = file
		}
		logger := newLogger(cmd, logCfg)
		return runServe(ctx, cmd.OutOrStdout(), logger, cfg, &serveFlagVals, nil)
	},
}

// loadServeConfig reads the configuration file, if any, and lays the
// command-line flags over it.
func loadServeConfig(f *serveFlags) (*config.File, error) {
	cfg := &config.File{}
	if f.configFile != "" {
		var err error
		cfg, err = config.Load(f.configFile)
		if err != nil {
			return nil, err
		}
	}

	if f.listen != "" {
		cfg.Listen = f.listen
	}
	if f.caDir != "" {
		dir, err := filepath.Abs(f.caDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve CA directory: %w", err)
		}
		cfg.CA.Dir = dir
	}
	if f.logFile != "" {
		path, err := filepath.Abs(f.logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve log file: %w", err)
		}
		cfg.Log.File = path
	}
	if f.readTimeout > 0 {
		cfg.ReadTimeout = f.readTimeout
	}
	if f.writeTimeout > 0 {
		cfg.WriteTimeout = f.writeTimeout
	}
	if f.handshakeTimeout > 0 {
		cfg.HandshakeTimeout = f.handshakeTimeout
	}

	for _, s := range f.mocks {
		spec, err := parse.Mock(s)
		if err != nil {
			return nil, err
		}
		entry := config.MockEntry{Method: spec.Method, Path: spec.Path}
		if spec.HasBody {
			entry.Body = &spec.Body
		}
		cfg.Entries = append(cfg.Entries, entry)
	}
	return cfg, nil
}

// runServe starts a proxy for cfg and blocks until ctx is done. ready, when
// non-nil, is called once the proxy is listening.
func runServe(ctx context.Context, w io.Writer, logger *slog.Logger, cfg *config.File, f *serveFlags, ready func(*proxy.Proxy)) error {
	mocks, err := cfg.Mocks()
	if err != nil {
		return err
	}

	authority, err := loadAuthority(cfg)
	if err != nil {
		return err
	}

	p, err := proxy.New(append(cfg.ProxyOptions(logger), proxy.WithAuthority(authority))...)
	if err != nil {
		return err
	}
	for _, m := range mocks {
		if err := p.Register(m); err != nil {
			return err
		}
	}
	if err := p.Start(); err != nil {
		return err
	}

	certFile, cleanup, err := writeCertificate(p, cfg, f.certOut)
	if err != nil {
		_ = p.Stop(context.Background())
		return err
	}
	defer cleanup()

	printServeStartupMessage(w, p, certFile, mocks)
	if ready != nil {
		ready(p)
	}

	<-ctx.Done()
	fmt.Fprintln(w, "\nShutting down proxy...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := p.Stop(shutdownCtx); err != nil {
		output.Warn(w, "proxy shutdown error: %v", err)
	}

	fmt.Fprintln(w, "Proxy stopped")
	return nil
}

func loadAuthority(cfg *config.File) (*ca.Authority, error) {
	dir := cfg.CADir()
	if dir == "" {
		authority, err := ca.Generate(cfg.CAOptions()...)
		if err != nil {
			return nil, fmt.Errorf("failed to generate CA: %w", err)
		}
		return authority, nil
	}

	authority, err := ca.Ensure(dir, cfg.CAOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize CA in %s: %w", dir, err)
	}
	return authority, nil
}

// writeCertificate makes the root certificate available on disk for
// SSL_CERT_FILE. A persistent CA directory already has it; otherwise it goes
// to certOut or, failing that, a temporary file removed on shutdown.
func writeCertificate(p *proxy.Proxy, cfg *config.File, certOut string) (string, func(), error) {
	noop := func() {}

	if certOut != "" {
		if err := os.WriteFile(certOut, p.Certificate(), 0644); err != nil {
			return "", noop, fmt.Errorf("failed to write certificate: %w", err)
		}
		return certOut, noop, nil
	}

	if dir := cfg.CADir(); dir != "" {
		return filepath.Join(dir, ca.CertFile), noop, nil
	}

	tmp, err := os.CreateTemp("", "mockproxy-ca-*.crt")
	if err != nil {
		return "", noop, fmt.Errorf("failed to create certificate file: %w", err)
	}
	_, writeErr := tmp.Write(p.Certificate())
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return "", noop, fmt.Errorf("failed to write certificate: %w", err)
	}
	return tmp.Name(), func() { _ = os.Remove(tmp.Name()) }, nil
}

func printServeStartupMessage(w io.Writer, p *proxy.Proxy, certFile string, mocks []*mock.Mock) {
	if jsonOutput {
		_ = output.JSON(w, map[string]any{
			"url":         p.URL(),
			"certificate": certFile,
			"mocks":       len(mocks),
			"env":         p.Environ(certFile),
		})
		return
	}

	fmt.Fprintf(w, "Proxy running on %s\n", p.URL())
	fmt.Fprintf(w, "CA certificate: %s\n", certFile)
	fmt.Fprintf(w, "Mocks: %d\n", len(mocks))
	for _, m := range mocks {
		fmt.Fprintf(w, "  %s -> %d\n", m, m.Response.Status)
	}
	fmt.Fprintln(w, "\nRoute a process through the proxy with:")
	for _, kv := range p.Environ(certFile) {
		fmt.Fprintf(w, "  export %s\n", kv)
	}
	fmt.Fprintln(w, "Press Ctrl+C to stop")
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := &serveFlagVals
	serveCmd.Flags().StringVarP(&f.configFile, "config", "f", "", "Path to a YAML or JSON configuration file")
	serveCmd.Flags().StringVar(&f.listen, "listen", "", "Preferred listen address (default "+proxy.DefaultListenAddr+")")
	serveCmd.Flags().StringVar(&f.caDir, "ca-dir", "", "Directory holding a persistent CA (created if missing)")
	serveCmd.Flags().StringVar(&f.logFile, "log-file", "", "Also write debug-level JSON logs to this file")
	serveCmd.Flags().StringVar(&f.certOut, "cert-out", "", "Write the root certificate to this file")
	serveCmd.Flags().DurationVar(&f.readTimeout, "read-timeout", 0, "Per-read timeout (0 = none)")
	serveCmd.Flags().DurationVar(&f.writeTimeout, "write-timeout", 0, "Per-write timeout (0 = none)")
	serveCmd.Flags().DurationVar(&f.handshakeTimeout, "handshake-timeout", 0, "TLS handshake timeout (0 = none)")
	serveCmd.Flags().StringArrayVar(&f.mocks, "mock", nil, "Mock as 'METHOD PATH[=BODY]'; use 'METHOD PATH?QUERY =BODY' when the path has a query (repeatable)")
}
