// Package pipeline drives a merge run end to end.
//
// A run first plans every group without touching the output: dataset roots
// are checked, target folders located and sorted, files listed, filtered, and
// chunked while a single counter threads plant ids from 1 across folders and
// datasets. Only when the whole plan is known and fits on the output
// filesystem is the output directory locked, reset, and filled group by
// group. Dry runs stop after planning.
package pipeline
