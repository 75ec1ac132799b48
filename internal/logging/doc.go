// Package logging assembles the structured slog loggers used by plantmerge.
//
// It owns the console and JSON handlers, level parsing, and output routing
// (stderr plus an optional log file), and exposes helpers that tag records
// with the run id and dataset label carried in a context. NewNop returns a
// discarding logger for tests and wiring code that cannot fail.
package logging
