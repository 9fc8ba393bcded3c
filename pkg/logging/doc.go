// Package logging provides structured logging configuration for mockproxy.
//
// This package wraps log/slog so the proxy, the CLI and the test fixture
// log the same way. It supports configurable log levels and output formats.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("proxy listening", "addr", "127.0.0.1:1234")
//	logger.Warn("tls handshake failed", "conn", id, "error", err)
//
// # Output Formats
//
//   - Text: Human-readable format for development
//   - JSON: Structured format for log aggregation systems
//
// Setting Config.File tees records, as JSON, to a second writer. That sink
// filters at Config.FileLevel (debug unless set), independent of Level.
//
// # Integration
//
// Components accept a *slog.Logger through an option. If no logger is
// provided, they use logging.Nop().
package logging
