// Package flatten copies every file with a given extension from a directory
// tree into one flat output directory and then rewrites the extension of the
// copies.
//
// The run has two phases. Phase 1 consumes the lazy scanner sequence and
// copies each match into the output directory; a NameRegistry hands out
// collision-free names (x.log, x(1).log, x(2).log, ...) so two files with the
// same name from different directories never overwrite each other. Phase 2
// renames the copies in place from the source to the target extension.
//
// The output directory is always excluded from the scan, so running the tool
// twice with the output under the root never copies its own output.
//
// Failures are split into fatal errors (bad configuration, missing root,
// unusable output directory, lock held, canceled) that abort the run, and
// per-entry failures that are recorded in the result while the run continues.
// Options.FailFast turns the first per-entry failure into an abort.
package flatten
