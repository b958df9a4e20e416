package kvweb

import (
	"errors"
	"fmt"
)

var (
	ErrSubmission    = errors.New("job submission failed")
	ErrJobNotFound   = errors.New("job not found")
	ErrDecode        = errors.New("unexpected response")
	ErrJobFailed     = errors.New("job failed")
	ErrUnknownStatus = errors.New("unknown job status")
	ErrTimeout       = errors.New("job did not complete in time")
)

// SubmissionError is returned when the create endpoint answers with a
// non 2xx status.
type SubmissionError struct {
	StatusCode int
	Body       string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s: status %d, body: %s", ErrSubmission, e.StatusCode, e.Body)
}

func (e *SubmissionError) Is(target error) bool {
	return target == ErrSubmission
}

// StatusError is returned when polling gets an unexpected HTTP status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, e.Body)
}

// Transient reports whether the request may succeed when repeated.
func (e *StatusError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// JobFailedError is returned when the service reports a terminal failure.
type JobFailedError struct {
	ID     string
	Status string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s finished with status %q", e.ID, e.Status)
}

func (e *JobFailedError) Is(target error) bool {
	return target == ErrJobFailed
}

type transientError struct {
	err error
}

func (e transientError) Error() string   { return e.err.Error() }
func (e transientError) Unwrap() error   { return e.err }
func (e transientError) Transient() bool { return true }

// IsTransient reports whether err is a network or server side failure which
// is worth retrying.
func IsTransient(err error) bool {
	var t interface{ Transient() bool }
	return errors.As(err, &t) && t.Transient()
}
