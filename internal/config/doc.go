// Package config loads, normalizes, and validates plantmerge configuration data.
//
// It supplies repository defaults that mirror the plant dataset layout,
// expands user paths (including tilde shortcuts), reads TOML files, and honours
// environment fallbacks such as PLANTMERGE_SOURCE_ROOT. The Config type
// centralizes every knob the merge pipeline needs: dataset roots, the output
// directory, selection rules, grouping size, and manifest location.
//
// Always obtain settings through this package so downstream code receives
// absolute paths and clear validation errors. In particular the output
// directory guard lives here: the pipeline deletes that directory before every
// run, so Validate refuses locations that overlap the source data.
package config
