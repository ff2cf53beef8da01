// Package logging assembles structured slog loggers and formatting helpers
// used across airtrack services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and provides standardized attribute keys so recorder, presence,
// and uploader code tag log lines consistently. A no-op logger is available
// for tests and wiring code that cannot fail.
package logging
