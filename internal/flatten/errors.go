package flatten

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/flatten/internal/models"
)

// Sentinel errors matched with errors.Is.
var (
	// ErrRootNotFound is returned when the root directory is missing or not a directory.
	ErrRootNotFound = errors.New("root directory not found")
	// ErrOutputUnavailable is returned when the output directory cannot be created or listed.
	ErrOutputUnavailable = errors.New("output directory unavailable")
	// ErrLocked is returned when another process holds the output directory lock.
	ErrLocked = errors.New("output directory is locked by another run")
	// ErrCanceled is returned when the context is canceled between entries.
	ErrCanceled = errors.New("run canceled")
	// ErrInvalidConfig is returned for options that fail validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrorKind classifies a PipelineError.
type ErrorKind int

const (
	// KindConfiguration is an invalid option or a root that does not exist.
	KindConfiguration ErrorKind = iota
	// KindIOUnavailable means the output directory cannot be used.
	KindIOUnavailable
	// KindEntryCopy is a per-entry failure during phase 1.
	KindEntryCopy
	// KindEntryRename is a per-entry failure during phase 2.
	KindEntryRename
	// KindCanceled means the run was interrupted.
	KindCanceled
)

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindIOUnavailable:
		return "io-unavailable"
	case KindEntryCopy:
		return "entry-copy"
	case KindEntryRename:
		return "entry-rename"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// PipelineError is an error raised by the pipeline with the state it was
// raised in and the path it concerns.
type PipelineError struct {
	Kind  ErrorKind    // Classification
	Phase models.State // State the pipeline was in
	Path  string       // Path involved (optional)
	Err   error        // Underlying error
}

// NewPipelineError creates a PipelineError.
func NewPipelineError(kind ErrorKind, phase models.State, path string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Phase: phase, Path: path, Err: err}
}

// Error implements the error interface for PipelineError.
func (e *PipelineError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%s)", e.Kind, strings.ToLower(string(e.Phase))))
	if e.Path != "" {
		sb.WriteString(fmt.Sprintf(" %s", e.Path))
	}
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the error aborts the run. Entry failures are
// recoverable unless fail-fast promotes them.
func (e *PipelineError) IsFatal() bool {
	switch e.Kind {
	case KindEntryCopy, KindEntryRename:
		return false
	default:
		return true
	}
}

// IsFatal reports whether err is, or wraps, a fatal PipelineError. Errors
// that are not PipelineErrors are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.IsFatal()
	}
	return true
}
