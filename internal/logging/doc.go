// Package logging assembles the structured slog loggers used across the
// EnSight client runtime.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and standardizes the attribute keys that session, transport, and
// event code attach to log lines. The package also provides a no-op logger
// for tests and for wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components
// emit data with the same shape as the rest of the system.
package logging
