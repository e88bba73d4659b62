// Package pipeline runs one conversion batch: list the source directory,
// then take each file through validate, decode and encode, and return a
// [Summary] holding exactly one [Result] per listed file.
//
// Files are processed one at a time in listing order. Every stage reports
// its outcome as a value, so a bad file is recorded and the loop moves on;
// nothing here exits the process. A failure to list the source directory
// ends the batch early with [Summary.ListingFailed] set.
//
// Progress and outcomes are reported through an injected [Sink]. A started
// batch is not cancellable; a filesystem call that blocks will block the
// whole batch.
package pipeline
