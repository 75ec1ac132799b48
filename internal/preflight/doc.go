// Package preflight provides readiness checks for the filesystem paths a
// merge run depends on.
//
// These checks run in two contexts:
//   - The pipeline calls CheckFreeSpace after planning, before the output
//     directory is reset, so a run that cannot fit aborts with the previous
//     output intact.
//   - The CLI "plantmerge config validate" command calls RunAll to display
//     dataset root and output directory health.
package preflight
