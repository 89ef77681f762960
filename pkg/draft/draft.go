// Package draft models job definitions that have been composed but not
// yet submitted, and the queue that holds them until a batch is sent.
package draft

import (
	"fmt"
	"strings"
)

// Placeholder values offered by selection lists. They count as empty.
const (
	FormatPlaceholder = "-- Choose format --"
	GenomePlaceholder = "-- Choose genome --"
)

// Filter operator vocabulary understood by the portal.
var (
	StringOperators    = []string{"==", "=~", "!=", "!=~"}
	NumericalOperators = []string{"<", "<=", ">", ">="}
)

// Operators returns string operators followed by numerical operators.
func Operators() []string {
	out := make([]string, 0, len(StringOperators)+len(NumericalOperators))
	out = append(out, StringOperators...)
	return append(out, NumericalOperators...)
}

// InputRef is an opaque reference to an input file.
//
// Name is the display name used in status lines; URI identifies the file for
// whoever opens it.
type InputRef interface {
	Name() string
	URI() string
}

// Field identifies one required draft attribute.
type Field string

// Required fields in validation order.
const (
	FieldFilter    Field = "filter"
	FieldInputFile Field = "inputFile"
	FieldFormat    Field = "format"
	FieldGenome    Field = "genome"
)

// Label returns a human-readable field name.
func (f Field) Label() string {
	switch f {
	case FieldFilter:
		return "filter"
	case FieldInputFile:
		return "input file"
	case FieldFormat:
		return "output format"
	case FieldGenome:
		return "reference genome"
	default:
		return string(f)
	}
}

// MissingFieldError names the first required field that was empty.
type MissingFieldError struct {
	Field Field
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing %s", e.Field.Label())
}

// Draft is one job definition. Drafts are values; a queued draft is never
// mutated.
type Draft struct {
	Filter       string
	InputFile    InputRef
	OutputFormat string
	RefGenome    string
}

// DisplayName is the input file's display name, or "" without an input.
func (d Draft) DisplayName() string {
	if d.InputFile == nil {
		return ""
	}
	return d.InputFile.Name()
}

// Validate checks the four required fields in the order filter, input file,
// format, genome and returns a *MissingFieldError for the first one that is
// empty, blank or a placeholder.
func Validate(filter string, input InputRef, format, genome string) error {
	if isBlank(filter) {
		return &MissingFieldError{Field: FieldFilter}
	}
	if input == nil || isBlank(input.Name()) {
		return &MissingFieldError{Field: FieldInputFile}
	}
	if isBlank(format) || format == FormatPlaceholder {
		return &MissingFieldError{Field: FieldFormat}
	}
	if isBlank(genome) || genome == GenomePlaceholder {
		return &MissingFieldError{Field: FieldGenome}
	}
	return nil
}

// New validates the fields and returns the resulting draft.
func New(filter string, input InputRef, format, genome string) (Draft, error) {
	if err := Validate(filter, input, format, genome); err != nil {
		return Draft{}, err
	}
	return Draft{Filter: filter, InputFile: input, OutputFormat: format, RefGenome: genome}, nil
}

// Validate re-checks a constructed draft.
func (d Draft) Validate() error {
	return Validate(d.Filter, d.InputFile, d.OutputFormat, d.RefGenome)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
