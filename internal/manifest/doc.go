// Package manifest persists merge-run provenance in SQLite.
//
// Every run gets a row keyed by a UUID, and every copied image gets a row
// linking its output name back to the source path, group id, day index, size,
// and SHA-256. The database lives outside the output directory, so resetting
// the output never erases history. Schema changes ship as embedded SQL
// migrations applied on Open.
package manifest
