package engine

import (
	"errors"
	"fmt"
)

// ===== SENTINEL ERRORS =====

var (
	// ErrTestNotAssigned maps the backend's 403 on start: the test is not
	// assigned to this student or not currently available.
	ErrTestNotAssigned = errors.New("test is not assigned or available")

	// ErrMalformedAnswers maps the backend's 400 on submit.
	ErrMalformedAnswers = errors.New("submitted answers were rejected")

	// ErrSessionExists is returned when Load is called on a controller that
	// already carries a session. At most one session per controller.
	ErrSessionExists = errors.New("a session is already loaded")

	// ErrNoSession is returned by operations that need a loaded session.
	ErrNoSession = errors.New("no session loaded")

	// ErrUnknownQuestion is returned when an answer targets a question id
	// outside the loaded definition.
	ErrUnknownQuestion = errors.New("question does not belong to the loaded test")

	// ErrFileTooLarge is returned before a file's content is accepted.
	ErrFileTooLarge = errors.New("file exceeds the upload size ceiling")
)

// ===== FAILURE TAXONOMY =====

// FailureKind classifies how a session failed.
type FailureKind string

const (
	// FailureLoad: definition unavailable or not takeable. Terminal.
	FailureLoad FailureKind = "load"
	// FailureStart: the attempt could not begin. Recoverable, the user may
	// retry from the instructions screen.
	FailureStart FailureKind = "start"
	// FailureSubmission: submit failed and reconciliation found no evidence
	// the attempt was recorded. Recoverable, the user may retry the submit.
	FailureSubmission FailureKind = "submission"
)

// Failure is the recorded reason a session sits in PhaseFailed.
type Failure struct {
	Kind        FailureKind
	Err         error
	Recoverable bool
}

func (f *Failure) Error() string {
	return fmt.Sprintf("session failed (%s): %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// MissingFileError blocks a submit locally: a file-upload question has no
// file attached. No network call is made.
type MissingFileError struct {
	QuestionID     int64
	QuestionNumber int // 1-based position in the test
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("question %d requires a file upload before submitting", e.QuestionNumber)
}

// IsValidation reports whether err is a local, always-recoverable validation
// failure that never reached the network.
func IsValidation(err error) bool {
	var mfe *MissingFileError
	return errors.As(err, &mfe)
}
