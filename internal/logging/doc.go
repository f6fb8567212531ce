// Package logging assembles structured slog loggers and formatting helpers used
// across creativeflow services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code automatically tags
// log lines with run IDs, stages, suggestion slots, and correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
