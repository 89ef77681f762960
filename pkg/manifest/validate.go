package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/3leaps/vepclient/pkg/draft"
	"github.com/3leaps/vepclient/pkg/session"
	"github.com/3leaps/vepclient/pkg/submit"
)

// ErrValidationFailed is wrapped by ValidationErrors.
var ErrValidationFailed = errors.New("manifest validation failed")

// ValidationError represents a single validation issue.
type ValidationError struct {
	// Path locates the problematic field (e.g., "jobs[2].genome").
	Path string

	// Message describes the validation failure.
	Message string
}

// Error implements error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("manifest validation failed with ")
	b.WriteString(fmt.Sprintf("%d errors:\n", len(e)))
	for i, err := range e {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error type.
func (e ValidationErrors) Unwrap() error {
	return ErrValidationFailed
}

// Validate checks a manifest after defaults have been applied and reports
// every problem found, not just the first.
func Validate(m *Manifest) error {
	var errs ValidationErrors
	add := func(path, format string, args ...any) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if m.Version != CurrentVersion {
		add("version", "unsupported version %q (want %q)", m.Version, CurrentVersion)
	}
	if m.Session != "" && !session.IsWellFormed(m.Session) {
		add("session", "%q is not a valid session ID", m.Session)
	}
	if m.Email != "" && !submit.IsValidEmail(m.Email) {
		add("email", "%q is not a valid email", m.Email)
	}
	if len(m.Jobs) == 0 {
		add("jobs", "at least one job is required")
	}

	for i, j := range m.Jobs {
		path := fmt.Sprintf("jobs[%d]", i)
		if j.Input == "" {
			add(path+".input", "input is required")
		}
		if isBlank(j.Filter) {
			add(path+".filter", "filter is required")
		}
		if isBlank(j.Format) || j.Format == draft.FormatPlaceholder {
			add(path+".format", "output format is required")
		}
		if isBlank(j.Genome) || j.Genome == draft.GenomePlaceholder {
			add(path+".genome", "reference genome is required")
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
