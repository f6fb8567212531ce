// Command creativeflow generates ad scripts from spreadsheet performance data,
// narrates and composes them, and serves the same pipeline over HTTP.
//
// Subcommands:
//   - serve: run the HTTP API
//   - generate, reprocess: run the pipeline once from the terminal
//   - runs: list recorded runs
//   - check: verify credentials, directories, and external binaries
//   - config: create, show, or validate configuration
//   - test-notify: send a test approval notification
package main
