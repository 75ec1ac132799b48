// Package discover locates segmentation folders inside a dataset tree and
// lists their candidate files.
//
// Every listing is sorted before it is returned. Group identifiers are handed
// out in traversal order, so the order must not depend on what the operating
// system's directory iteration happens to produce.
package discover
