package file

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/vepclient/pkg/provider"
)

func TestProvider_HeadAndGet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.vcf")
	require.NoError(t, os.WriteFile(path, []byte("#CHROM\n"), 0o644))

	p := New(Config{})
	ctx := context.Background()

	meta, err := p.Head(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), meta.Size)

	body, n, err := p.GetObject(ctx, path)
	require.NoError(t, err)
	defer func() { _ = body.Close() }()
	assert.Equal(t, int64(7), n)
	b, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "#CHROM\n", string(b))
}

func TestProvider_NotFound(t *testing.T) {
	p := New(Config{})
	ctx := context.Background()
	missing := filepath.Join(t.TempDir(), "missing.vcf")

	_, err := p.Head(ctx, missing)
	assert.True(t, provider.IsNotFound(err))

	_, _, err = p.GetObject(ctx, missing)
	assert.True(t, provider.IsNotFound(err))

	_, err = p.Head(ctx, t.TempDir())
	assert.True(t, provider.IsNotFound(err), "directories are not objects")
}

func TestProvider_PutObject(t *testing.T) {
	dir := t.TempDir()
	p := New(Config{BaseDir: dir})

	err := p.PutObject(context.Background(), "results/job-1.tsv", strings.NewReader("a\tb\n"), 4)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "results", "job-1.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "a\tb\n", string(b))

	entries, err := os.ReadDir(filepath.Join(dir, "results"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is removed")
}

func TestProvider_BaseDirConfinesKeys(t *testing.T) {
	dir := t.TempDir()
	p := New(Config{BaseDir: dir})

	err := p.PutObject(context.Background(), "../escape.tsv", strings.NewReader("x"), 1)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "escape.tsv"))
	assert.NoError(t, err, "dot-dot segments are resolved inside the base dir")
	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape.tsv"))
	assert.True(t, os.IsNotExist(err))
}

func TestProvider_EmptyKey(t *testing.T) {
	_, err := New(Config{}).Head(context.Background(), "  ")
	var perr *provider.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Head", perr.Op)
}
