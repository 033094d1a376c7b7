package convert

import (
	"errors"
	"fmt"
)

// ErrorKind classifies encode failures for the controller's propagation
// policy: launch failures halt the whole queue, everything else is job-level.
type ErrorKind string

const (
	// KindInputMissing means the audio or cover file was absent at start.
	KindInputMissing ErrorKind = "input_missing"
	// KindLaunchFailed means the encoder binary could not be spawned.
	KindLaunchFailed ErrorKind = "launch_failed"
	// KindEncoderExited means the encoder ran but exited non-zero or
	// produced no output file.
	KindEncoderExited ErrorKind = "encoder_exited"
)

// EncodeError is a classified conversion failure carrying the tail of the
// encoder's diagnostic stream for support purposes.
type EncodeError struct {
	Kind    ErrorKind
	Message string
	LogTail []string
	Err     error
}

// Error formats the failure for logs and job records.
func (e *EncodeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *EncodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsLaunchFailure reports whether err is an encoder launch failure.
func IsLaunchFailure(err error) bool {
	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		return false
	}
	return encErr.Kind == KindLaunchFailed
}
