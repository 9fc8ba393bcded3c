// Package cli provides the command-line interface for mockproxy.
//
// Commands:
//   - serve: Run the proxy in the foreground with mocks from a file or flags
//   - ca init: Generate a root CA and write it to a directory
//   - ca export: Print or copy the root certificate for trust installation
//   - validate: Check a configuration file without starting the proxy
//   - version: Show mockproxy version
//
// Main is exposed so test scripts can run the CLI in-process.
package cli
