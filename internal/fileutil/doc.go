// Package fileutil holds the filesystem primitives the merge pipeline relies
// on: copying an image with its metadata, optionally verifying the copy, and
// resetting the output directory.
package fileutil
