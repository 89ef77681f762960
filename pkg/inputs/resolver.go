package inputs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/3leaps/vepclient/pkg/draft"
	"github.com/3leaps/vepclient/pkg/provider"
	"github.com/3leaps/vepclient/pkg/provider/file"
	"github.com/3leaps/vepclient/pkg/provider/s3"
)

// ErrNoMatch is returned when a glob expands to nothing.
var ErrNoMatch = errors.New("no input files match")

// Store is the capability set the resolver needs from a remote bucket.
type Store interface {
	provider.Provider
	provider.Lister
	provider.ObjectPutter
}

// StoreFactory opens the store for one bucket.
type StoreFactory func(ctx context.Context, bucket string) (Store, error)

// S3Factory returns a StoreFactory that applies base to every bucket.
func S3Factory(base s3.Config) StoreFactory {
	return func(ctx context.Context, bucket string) (Store, error) {
		cfg := base
		cfg.Bucket = bucket
		return s3.New(ctx, cfg)
	}
}

// Resolver opens input refs and exports result bodies.
// It is safe for concurrent use.
type Resolver struct {
	local    *file.Provider
	newStore StoreFactory
	logger   *zap.Logger

	mu     sync.Mutex
	stores map[string]Store
}

// New creates a resolver. A nil factory rejects s3:// locations.
func New(newStore StoreFactory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		local:    file.New(file.Config{}),
		newStore: newStore,
		logger:   logger,
		stores:   make(map[string]Store),
	}
}

// store returns the cached store for bucket, creating it on first use.
func (r *Resolver) store(ctx context.Context, bucket string) (Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.stores[bucket]; ok {
		return st, nil
	}
	if r.newStore == nil {
		return nil, fmt.Errorf("s3 locations are not configured")
	}
	st, err := r.newStore(ctx, bucket)
	if err != nil {
		return nil, err
	}
	r.stores[bucket] = st
	r.logger.Debug("Opened bucket", zap.String("bucket", bucket))
	return st, nil
}

// Open streams the body behind ref. Any draft.InputRef whose URI parses as
// a location is accepted.
func (r *Resolver) Open(ctx context.Context, ref draft.InputRef) (io.ReadCloser, error) {
	loc, err := locationOf(ref)
	if err != nil {
		return nil, err
	}
	var src provider.Provider = r.local
	if loc.Type == provider.ProviderS3 {
		if src, err = r.store(ctx, loc.Bucket); err != nil {
			return nil, err
		}
	}
	body, _, err := src.GetObject(ctx, loc.Key)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Check verifies that ref names an existing object.
func (r *Resolver) Check(ctx context.Context, ref draft.InputRef) error {
	loc, err := locationOf(ref)
	if err != nil {
		return err
	}
	_, err = r.head(ctx, loc)
	return err
}

func (r *Resolver) head(ctx context.Context, loc provider.Location) (*provider.ObjectMeta, error) {
	if loc.Type == provider.ProviderS3 {
		st, err := r.store(ctx, loc.Bucket)
		if err != nil {
			return nil, err
		}
		return st.Head(ctx, loc.Key)
	}
	return r.local.Head(ctx, loc.Key)
}

// Expand turns a path or glob into refs in lexical order. A pattern without
// glob syntax must name an existing object.
func (r *Resolver) Expand(ctx context.Context, pattern string) ([]Ref, error) {
	loc, err := provider.ParseLocation(pattern)
	if err != nil {
		return nil, err
	}
	if !hasMeta(loc.Key) {
		if _, err := r.head(ctx, loc); err != nil {
			return nil, err
		}
		return []Ref{RefFor(loc)}, nil
	}
	if !doublestar.ValidatePattern(filepath.ToSlash(loc.Key)) {
		return nil, fmt.Errorf("invalid glob pattern %q", pattern)
	}

	var refs []Ref
	if loc.Type == provider.ProviderS3 {
		refs, err = r.expandS3(ctx, loc)
	} else {
		refs, err = r.expandLocal(loc)
	}
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, pattern)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].URI() < refs[j].URI() })
	return refs, nil
}

func (r *Resolver) expandLocal(loc provider.Location) ([]Ref, error) {
	matches, err := doublestar.FilepathGlob(loc.Key, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", loc.Key, err)
	}
	refs := make([]Ref, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, RefFor(provider.Location{Type: provider.ProviderFile, Key: m}))
	}
	return refs, nil
}

func (r *Resolver) expandS3(ctx context.Context, loc provider.Location) ([]Ref, error) {
	st, err := r.store(ctx, loc.Bucket)
	if err != nil {
		return nil, err
	}

	prefix := listPrefix(loc.Key)
	var refs []Ref
	opts := provider.ListOptions{Prefix: prefix}
	for {
		page, err := st.List(ctx, opts)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Objects {
			ok, err := doublestar.Match(loc.Key, obj.Key)
			if err != nil {
				return nil, err
			}
			if ok && !strings.HasSuffix(obj.Key, "/") {
				refs = append(refs, RefFor(provider.Location{Type: provider.ProviderS3, Bucket: loc.Bucket, Key: obj.Key}))
			}
		}
		if page.ContinuationToken == "" {
			break
		}
		opts.ContinuationToken = page.ContinuationToken
	}
	r.logger.Debug("Expanded s3 glob",
		zap.String("bucket", loc.Bucket),
		zap.String("prefix", prefix),
		zap.Int("matches", len(refs)))
	return refs, nil
}

// Export writes body to dest. Local parents are created as needed. A
// negative size leaves the length to the store.
func (r *Resolver) Export(ctx context.Context, body io.Reader, size int64, dest provider.Location) error {
	if dest.Type == provider.ProviderS3 {
		if dest.Key == "" {
			return fmt.Errorf("s3 destination %s has no key", dest)
		}
		st, err := r.store(ctx, dest.Bucket)
		if err != nil {
			return err
		}
		return st.PutObject(ctx, dest.Key, body, size)
	}
	return r.local.PutObject(ctx, dest.Key, body, size)
}

// Close releases every opened store.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result *multierror.Error
	for bucket, st := range r.stores {
		if err := st.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", bucket, err))
		}
		delete(r.stores, bucket)
	}
	return result.ErrorOrNil()
}

func locationOf(ref draft.InputRef) (provider.Location, error) {
	if ref == nil {
		return provider.Location{}, fmt.Errorf("no input file")
	}
	if r, ok := ref.(Ref); ok {
		return r.loc, nil
	}
	return provider.ParseLocation(ref.URI())
}

// hasMeta reports whether p contains glob syntax.
func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// listPrefix is the static directory part of a key pattern, used to narrow
// the listing.
func listPrefix(pattern string) string {
	base, _ := doublestar.SplitPattern(pattern)
	if base == "." || base == "" {
		return ""
	}
	return strings.TrimSuffix(base, "/") + "/"
}
