// Package main hosts the plantmerge CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration once, applies
// command-line path overrides, and hands off to the pipeline. Results are
// rendered as tables on stdout; structured logs go to stderr and the log
// directory.
//
// Keep this package lean: new behavior belongs in the internal packages and
// is surfaced here through commands or flags.
package main
