// Package errors defines process exit codes and the error type commands use
// to request a specific code from Execute.
package errors

import (
	"errors"
	"fmt"
)

// Exit codes returned by the vepclient binary.
//
// NOTE: These values are part of the scripting contract. Append only.
const (
	ExitSuccess                    = 0
	ExitFailure                    = 1
	ExitInvalidArgument            = 2
	ExitNotFound                   = 3
	ExitExternalServiceUnavailable = 4
	ExitFileWriteError             = 5
	ExitPartialFailure             = 6
	ExitSignalInt                  = 130
)

// ExitError carries a user-facing message, the underlying cause and the exit
// code the process should terminate with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError wraps err with a message and exit code.
func NewExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ErrExternalService marks failures talking to the portal or a storage backend.
var ErrExternalService = errors.New("external service unavailable")

// NewExternalServiceError returns an error wrapping ErrExternalService.
func NewExternalServiceError(detail string) error {
	return fmt.Errorf("%w: %s", ErrExternalService, detail)
}

// CodeOf returns the exit code requested by err.
//
// nil maps to ExitSuccess; errors without an ExitError in their chain map to
// ExitFailure.
func CodeOf(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
