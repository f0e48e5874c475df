// Package errs defines the error taxonomy shared by the audio pipeline:
// invalid input (permanent), model initialization (fatal at startup) and
// processing failures (retryable by the job queue).
package errs

import (
	"errors"
	"fmt"
)

// InvalidInputError marks empty or malformed audio. Jobs failing with this
// error are permanent failures and must not be retried.
type InvalidInputError struct {
	Msg string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Msg
}

// NewInvalidInput creates an InvalidInputError with a formatted message.
func NewInvalidInput(format string, args ...any) error {
	return &InvalidInputError{Msg: fmt.Sprintf(format, args...)}
}

// IsInvalidInput reports whether err is (or wraps) an InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

// ModelInitError marks a failure to load an inference engine. It is fatal at
// process startup: a worker that cannot load its models must not accept jobs.
type ModelInitError struct {
	Component string
	Err       error
}

func (e *ModelInitError) Error() string {
	return fmt.Sprintf("%s initialization failed: %v", e.Component, e.Err)
}

func (e *ModelInitError) Unwrap() error {
	return e.Err
}

// NewModelInit wraps an initialization failure for the named component.
func NewModelInit(component string, err error) error {
	return &ModelInitError{Component: component, Err: err}
}

// ProcessingError wraps a failure from an inference call during a specific
// invocation. The external retry policy decides whether to re-run the job.
type ProcessingError struct {
	Stage string // "vad", "diarization", "transcription"
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// NewProcessing wraps err as a ProcessingError for the named stage.
func NewProcessing(stage string, err error) error {
	return &ProcessingError{Stage: stage, Err: err}
}

// IsProcessing reports whether err is (or wraps) a ProcessingError.
func IsProcessing(err error) bool {
	var target *ProcessingError
	return errors.As(err, &target)
}
