// Package naming decides which files belong to a batch and where their
// converted counterparts go.
//
// Extension matching is a case-sensitive suffix test; it is the only signal
// used to classify a file. Output paths keep the source base name, swap the
// final extension, and are joined onto the destination directory. Two inputs
// that map to the same output path are not detected here: the later write
// wins.
package naming
