// Package inputs resolves job input references to readable bodies and
// writes result files, on the local filesystem or in S3.
package inputs

import (
	"github.com/3leaps/vepclient/pkg/draft"
	"github.com/3leaps/vepclient/pkg/provider"
)

// Ref is an input file reference backed by a storage location.
type Ref struct {
	loc provider.Location
}

var _ draft.InputRef = Ref{}

// NewRef parses a path, file:// URI or s3:// URI.
func NewRef(raw string) (Ref, error) {
	loc, err := provider.ParseLocation(raw)
	if err != nil {
		return Ref{}, err
	}
	return Ref{loc: loc}, nil
}

// RefFor wraps an already parsed location.
func RefFor(loc provider.Location) Ref {
	return Ref{loc: loc}
}

// Name is the file name shown in status lines.
func (r Ref) Name() string {
	return r.loc.Base()
}

// URI is the location in ParseLocation form.
func (r Ref) URI() string {
	return r.loc.String()
}

// Location returns the parsed location.
func (r Ref) Location() provider.Location {
	return r.loc
}
