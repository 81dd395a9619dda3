package models

import "time"

// State is a stage of the flatten pipeline. A run moves strictly forward
// through INIT, SCANNING, COPYING, RENAMING and DONE.
type State string

// Pipeline state constants
const (
	StateInit     State = "INIT"     // Pipeline constructed, nothing touched yet
	StateScanning State = "SCANNING" // Walking the root, no entry copied yet
	StateCopying  State = "COPYING"  // Phase 1: copying matches into the output dir
	StateRenaming State = "RENAMING" // Phase 2: rewriting extensions in the output dir
	StateDone     State = "DONE"     // Both phases completed
)

// Failure kind constants recorded on EntryFailure and in run history
const (
	FailureScan   = "scan"   // A subtree or symlink could not be read
	FailureCopy   = "copy"   // An entry could not be copied
	FailureRename = "rename" // An output file could not be renamed
)

// EntryFailure is a recoverable, per-entry failure. The run carries on past it
// unless fail-fast is enabled.
type EntryFailure struct {
	Kind    string // One of FailureScan, FailureCopy, FailureRename
	Path    string // Source path (copy, scan) or output path (rename)
	Message string // Human-readable cause
}

// RenamedFile maps a phase-1 output name to its final name.
type RenamedFile struct {
	From string
	To   string
}

// RunResult represents the aggregate result of one flatten run
type RunResult struct {
	RunID     string         // uuid assigned when the run starts
	Root      string         // Scanned root directory
	Output    string         // Output directory
	From      string         // Source extension, canonical form
	To        string         // Target extension, canonical form
	DryRun    bool           // True when nothing was written
	State     State          // Furthest state reached
	StartedAt time.Time      // When the run started
	Duration  time.Duration  // Total run time
	Scanned   int            // Matching files yielded by the scanner
	Copied    int            // Files written to the output dir
	Renamed   int            // Files renamed to the target extension
	Skipped   int            // Output files left untouched by the rename pass
	Failures  []EntryFailure // Recoverable failures in the order they happened
	Copies    []RenamedFile  // Source path (From) to output name (To) for each copy
	Renames   []RenamedFile  // Output name before and after phase 2
	Err       error          // Fatal error, nil when the run reached DONE
}

// Failed returns the number of recoverable failures.
func (r *RunResult) Failed() int {
	return len(r.Failures)
}

// Succeeded reports whether the run reached DONE without a fatal error.
func (r *RunResult) Succeeded() bool {
	return r.Err == nil && r.State == StateDone
}

// AddFailure appends a recoverable failure.
func (r *RunResult) AddFailure(kind, path string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.Failures = append(r.Failures, EntryFailure{Kind: kind, Path: path, Message: msg})
}
