// Package file implements the provider interfaces for local paths.
package file

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/3leaps/vepclient/pkg/provider"
)

// Provider reads and writes local files.
//
// With a BaseDir, keys are relative paths confined to that directory.
// Without one, keys are ordinary paths resolved against the working
// directory.
type Provider struct {
	baseDir string
}

// Ensure Provider implements provider capability interfaces.
var (
	_ provider.Provider     = (*Provider)(nil)
	_ provider.ObjectPutter = (*Provider)(nil)
)

// Config configures a file provider.
type Config struct {
	BaseDir string
}

// New creates a file provider.
func New(cfg Config) *Provider {
	base := strings.TrimSpace(cfg.BaseDir)
	if base != "" {
		base = filepath.Clean(base)
	}
	return &Provider{baseDir: base}
}

func (p *Provider) Close() error { return nil }

// Head stats a regular file.
func (p *Provider) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	_ = ctx
	full, err := p.fullPath(key)
	if err != nil {
		return nil, p.wrapError("Head", key, err)
	}
	st, err := os.Stat(full)
	if err != nil {
		return nil, p.wrapError("Head", key, err)
	}
	if st.IsDir() {
		return nil, p.wrapError("Head", key, fmt.Errorf("%s is a directory: %w", key, provider.ErrNotFound))
	}
	return &provider.ObjectMeta{
		Key:          key,
		Size:         st.Size(),
		LastModified: st.ModTime(),
		ContentType:  mime.TypeByExtension(filepath.Ext(full)),
	}, nil
}

// GetObject opens a regular file for reading.
func (p *Provider) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	_ = ctx
	full, err := p.fullPath(key)
	if err != nil {
		return nil, 0, p.wrapError("GetObject", key, err)
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, 0, p.wrapError("GetObject", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, p.wrapError("GetObject", key, err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, 0, p.wrapError("GetObject", key, fmt.Errorf("%s is a directory: %w", key, provider.ErrNotFound))
	}
	return f, st.Size(), nil
}

// PutObject writes body to key atomically via a temp file and rename.
// Parent directories are created as needed.
func (p *Provider) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error {
	_ = ctx
	_ = contentLength
	full, err := p.fullPath(key)
	if err != nil {
		return p.wrapError("PutObject", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return p.wrapError("PutObject", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".vepclient-put-*")
	if err != nil {
		return p.wrapError("PutObject", key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	if err := tmp.Close(); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	return nil
}

func (p *Provider) fullPath(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("empty path")
	}
	if p.baseDir == "" {
		return filepath.Clean(key), nil
	}
	// Cleaning as a rooted path resolves ".." segments so keys cannot
	// escape the base dir.
	clean := strings.TrimPrefix(filepath.Clean("/"+filepath.ToSlash(key)), "/")
	return filepath.Join(p.baseDir, filepath.FromSlash(clean)), nil
}

func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{Op: op, Provider: provider.ProviderFile, Key: key, Err: err}
	switch {
	case os.IsNotExist(err):
		wrapped.Err = provider.ErrNotFound
	case os.IsPermission(err):
		wrapped.Err = provider.ErrAccessDenied
	}
	return wrapped
}
