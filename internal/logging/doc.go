// Package logging assembles the structured slog loggers used across dbsyncctl.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so API calls and command handlers tag
// their lines with the command name and request correlation ID. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Full-screen programs must not write to the terminal they draw on; build
// their logger with TargetFile so output goes to the configured log file
// only.
package logging
