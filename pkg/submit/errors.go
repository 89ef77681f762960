package submit

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDrafts is returned when a batch has nothing to submit.
	ErrNoDrafts = errors.New("no jobs queued. Save at least one job before submitting.")

	// ErrEmailMissing is returned when no email was entered.
	ErrEmailMissing = errors.New("Enter your email to continue.")

	// ErrDescriptionMissing is returned when a description is required but blank.
	ErrDescriptionMissing = errors.New("Enter a session description to continue.")
)

// InvalidEmailError reports an email that fails IsValidEmail.
type InvalidEmailError struct {
	Email string
}

// Error implements the error interface.
func (e *InvalidEmailError) Error() string {
	return fmt.Sprintf("%s is not a valid email. Your job has not been submitted. Please try again.", e.Email)
}

// JobError reports one draft whose upload failed.
type JobError struct {
	Index  int
	Name   string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *JobError) Error() string {
	return fmt.Sprintf("Could not submit %s: %s", e.Name, e.Reason)
}

// Unwrap returns the underlying upload error.
func (e *JobError) Unwrap() error {
	return e.Err
}
