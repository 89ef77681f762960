// Package provider abstracts the storage that holds job input files and
// receives exported results.
//
// Two backends exist: the local filesystem (provider/file) and S3 or an
// S3-compatible store (provider/s3). Authentication uses SDK default
// credential chains; providers do not implement custom auth logic.
package provider

import (
	"context"
	"io"
	"time"
)

// Provider reads objects. Implementations must be safe for concurrent use.
type Provider interface {
	// Head returns metadata for a single object.
	// Returns ErrNotFound if the object does not exist.
	Head(ctx context.Context, key string) (*ObjectMeta, error)

	// GetObject opens an object as a stream. The caller closes the body.
	GetObject(ctx context.Context, key string) (body io.ReadCloser, contentLength int64, err error)

	// Close releases any resources held by the provider.
	Close() error
}

// ObjectPutter can create or overwrite objects.
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error
}

// Lister can enumerate keys under a prefix. It is used to expand input
// globs against remote stores.
type Lister interface {
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
}

// ListOptions configures a List operation.
type ListOptions struct {
	// Prefix filters results to keys starting with this value.
	Prefix string

	// ContinuationToken resumes listing from a previous ListResult.
	ContinuationToken string
}

// ListResult contains a page of objects from a List operation.
type ListResult struct {
	Objects []ObjectMeta

	// ContinuationToken is used to retrieve the next page.
	// Empty string indicates no more pages.
	ContinuationToken string
}

// ObjectMeta describes one object.
type ObjectMeta struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
	ContentType  string
}

// ProviderType identifies a storage backend.
type ProviderType string

const (
	// ProviderFile is the local filesystem.
	ProviderFile ProviderType = "file"

	// ProviderS3 represents AWS S3 or S3-compatible storage.
	ProviderS3 ProviderType = "s3"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}
