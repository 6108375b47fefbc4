package job

import (
	"context"
	"errors"
)

// Sentinel errors for the job lifecycle. Callers classify failures with
// [errors.Is] against these; [KindOf] maps them to the wire-level error kind
// carried on a failed job.
var (
	// ErrValidation reports an unusable submission input.
	ErrValidation = errors.New("job: invalid input")

	// ErrNotFound reports an unknown job identifier.
	ErrNotFound = errors.New("job: not found")

	// ErrCapacityExceeded reports a full work queue. No job record is
	// created when Submit fails with this error.
	ErrCapacityExceeded = errors.New("job: queue capacity exceeded")

	// ErrUnsupportedLanguage reports that no correction rule set exists for
	// a language. It degrades correction, never fails the job.
	ErrUnsupportedLanguage = errors.New("job: unsupported language")

	// ErrStageTimeout reports that a pipeline stage exceeded its bound.
	ErrStageTimeout = errors.New("job: stage timed out")

	// ErrStageFailure reports that a pipeline collaborator returned an error.
	ErrStageFailure = errors.New("job: stage failed")

	// ErrCancelled reports a job finalized by a caller's cancel request.
	ErrCancelled = errors.New("job: cancelled")
)

// ErrorKind is the machine-readable classification carried on a failed job.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindNotFound            ErrorKind = "not_found"
	KindCapacityExceeded    ErrorKind = "capacity_exceeded"
	KindUnsupportedLanguage ErrorKind = "unsupported_language"
	KindStageTimeout        ErrorKind = "stage_timeout"
	KindStageFailure        ErrorKind = "stage_failure"
	KindCancelled           ErrorKind = "cancelled"
	KindInternal            ErrorKind = "internal"
)

// KindOf classifies err into an [ErrorKind]. Unrecognised errors map to
// [KindInternal]; context deadline errors count as stage timeouts.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrCapacityExceeded):
		return KindCapacityExceeded
	case errors.Is(err, ErrUnsupportedLanguage):
		return KindUnsupportedLanguage
	case errors.Is(err, ErrStageTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindStageTimeout
	case errors.Is(err, ErrStageFailure):
		return KindStageFailure
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	default:
		return KindInternal
	}
}
