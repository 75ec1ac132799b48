// Package selection decides which files in a segmentation folder become
// sequence candidates.
//
// A file qualifies when its name ends with an accepted extension, contains
// the required keyword, and, for time-filtered datasets, carries an hour
// field inside one of the keep windows. An hour that cannot be parsed is a
// rejection, never an error.
package selection
