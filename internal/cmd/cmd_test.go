package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errwrap "github.com/3leaps/vepclient/internal/errors"
	"github.com/3leaps/vepclient/pkg/draft"
	"github.com/3leaps/vepclient/pkg/inputs"
	"github.com/3leaps/vepclient/pkg/loader"
	"github.com/3leaps/vepclient/pkg/output"
	"github.com/3leaps/vepclient/pkg/portal"
	"github.com/3leaps/vepclient/pkg/portaltest"
	"github.com/3leaps/vepclient/pkg/provider"
	"github.com/3leaps/vepclient/pkg/session"
	"github.com/3leaps/vepclient/pkg/submit"
)

func writeInputs(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(p, []byte("##fileformat=VCFv4.2\n"+n+"\n"), 0o644))
		paths = append(paths, p)
	}
	return paths
}

func records(t *testing.T, out string) map[string][]output.Record {
	t.Helper()
	byType := make(map[string][]output.Record)
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var rec output.Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec), "line: %s", sc.Text())
		byType[rec.Type] = append(byType[rec.Type], rec)
	}
	require.NoError(t, sc.Err())
	return byType
}

func done(message string) portal.Status {
	return portal.Status{Message: message, Completed: true, Succeeded: true}
}

func TestSubmit_JSONWatch(t *testing.T) {
	srv := portaltest.New(t)
	srv.SetStatuses("job-1", portal.Status{Message: "Running"}, done("Done"))
	srv.SetStatuses("job-2", done("Done"))
	files := writeInputs(t, "a.vcf", "b.vcf")

	out, err := runCLI(t, "submit", "--json", "--watch",
		"--portal-url", srv.BaseURL(),
		"--input", files[0], "--input", files[1],
		"--filter", "AF < 0.01", "--format", "vcf", "--genome", "GRCh38",
		"--email", "me@example.org")
	require.NoError(t, err)

	recs := records(t, out)
	require.Len(t, recs[output.TypeSession], 1)
	var sess output.SessionRecord
	require.NoError(t, json.Unmarshal(recs[output.TypeSession][0].Data, &sess))
	assert.True(t, session.IsWellFormed(sess.ID))
	assert.False(t, sess.Restored)

	uploads := srv.Uploads()
	require.Len(t, uploads, 2)
	for _, u := range uploads {
		assert.Equal(t, sess.ID, u.Session)
		assert.Equal(t, "me@example.org", u.Email)
		assert.Equal(t, "GRCh38", u.Genome)
		assert.Equal(t, "vcf", u.Format)
		assert.Equal(t, "AF < 0.01", u.Filter)
	}

	require.Len(t, recs[output.TypeSummary], 1)
	var sum output.SummaryRecord
	require.NoError(t, json.Unmarshal(recs[output.TypeSummary][0].Data, &sum))
	assert.Equal(t, 2, sum.Submitted)
	assert.Equal(t, 0, sum.Failed)
	assert.Equal(t, 2, sum.Completed)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 0, sum.Pending)
}

func TestSubmit_PartialFailure(t *testing.T) {
	srv := portaltest.New(t)
	srv.FailUploads("b.vcf", portaltest.Failure{StatusCode: http.StatusInternalServerError})
	files := writeInputs(t, "a.vcf", "b.vcf")

	out, err := runCLI(t, "submit",
		"--portal-url", srv.BaseURL(),
		"--input", files[0], "--input", files[1],
		"--filter", "AF < 0.01", "--format", "vcf", "--genome", "GRCh38",
		"--email", "me@example.org")
	require.Error(t, err)
	assert.Equal(t, errwrap.ExitPartialFailure, errwrap.CodeOf(err))

	assert.Contains(t, out, "Queued jobs:")
	assert.Contains(t, out, "Could not submit b.vcf: Internal Server Error")
	assert.Contains(t, out, "Submitted a.vcf, waiting for result.")
	assert.Len(t, srv.Uploads(), 1)
}

func TestSubmit_InvalidEmail(t *testing.T) {
	srv := portaltest.New(t)
	files := writeInputs(t, "a.vcf")

	out, err := runCLI(t, "submit",
		"--portal-url", srv.BaseURL(),
		"--input", files[0],
		"--filter", "AF < 0.01", "--format", "vcf", "--genome", "GRCh38",
		"--email", "nobody")
	require.Error(t, err)
	assert.Equal(t, errwrap.ExitInvalidArgument, errwrap.CodeOf(err))
	assert.Contains(t, out, "nobody is not a valid email.")
	assert.Empty(t, srv.Uploads())
}

func TestSubmit_UsageErrors(t *testing.T) {
	_, err := runCLI(t, "submit")
	require.Error(t, err)
	assert.Equal(t, errwrap.ExitInvalidArgument, errwrap.CodeOf(err))

	_, err = runCLI(t, "submit", "--manifest", "batch.yaml", "--input", "a.vcf")
	require.Error(t, err)
	assert.Equal(t, errwrap.ExitInvalidArgument, errwrap.CodeOf(err))
}

func TestSubmit_Manifest(t *testing.T) {
	srv := portaltest.New(t)
	files := writeInputs(t, "a.vcf", "b.vcf")

	manifestPath := filepath.Join(t.TempDir(), "batch.yaml")
	body := fmt.Sprintf(`version: "1.0"
email: me@example.org
defaults:
  filter: AF < 0.01
  format: vcf
  genome: GRCh38
jobs:
  - input: %s
  - input: %s
    genome: GRCh37
`, files[0], files[1])
	require.NoError(t, os.WriteFile(manifestPath, []byte(body), 0o644))

	_, err := runCLI(t, "submit", "--portal-url", srv.BaseURL(), "--manifest", manifestPath)
	require.NoError(t, err)

	genomes := make(map[string]string)
	for _, u := range srv.Uploads() {
		genomes[u.FileName] = u.Genome
	}
	assert.Equal(t, map[string]string{"a.vcf": "GRCh38", "b.vcf": "GRCh37"}, genomes)
}

func TestSessionNew(t *testing.T) {
	srv := portaltest.New(t)

	out, err := runCLI(t, "session", "new", "--portal-url", srv.BaseURL())
	require.NoError(t, err)
	id := strings.TrimSpace(strings.TrimPrefix(out, "Session "))
	assert.True(t, session.IsWellFormed(id), "output %q", out)
}

func TestSessionShow_Unknown(t *testing.T) {
	srv := portaltest.New(t)

	out, err := runCLI(t, "session", "show", "0a1b2c3d", "--portal-url", srv.BaseURL())
	require.Error(t, err)
	assert.Equal(t, errwrap.ExitNotFound, errwrap.CodeOf(err))
	assert.Contains(t, out, "Unknown session 0a1b2c3d.")
}

func TestWatch_Session(t *testing.T) {
	srv := portaltest.New(t)
	srv.SetSession("0a1b2c3d", portal.SessionResponse{
		Found:  true,
		Filter: "AF < 0.01",
		Format: "vcf",
		Jobs:   []portal.SessionJob{{ID: "job-7", InputFile: "/uploads/s.vcf"}},
	})
	srv.SetStatuses("job-7", portal.Status{Message: "Running"}, done("Done"))

	out, err := runCLI(t, "watch", "0a1b2c3d", "--portal-url", srv.BaseURL())
	require.NoError(t, err)
	assert.Contains(t, out, "Loading session 0a1b2c3d.")
	assert.Contains(t, out, "Submitted s.vcf, waiting for result.")
	assert.Contains(t, out, "s.vcf: Done (download: "+srv.BaseURL()+"/results/job-7.tsv)")
}

func TestStatus(t *testing.T) {
	srv := portaltest.New(t)
	srv.SetStatuses("job-3", portal.Status{Message: "Running"})

	out, err := runCLI(t, "status", "job-3", "--portal-url", srv.BaseURL())
	require.NoError(t, err)
	assert.Contains(t, out, "job-3: Running")
	assert.Equal(t, 1, srv.StatusCalls("job-3"))
}

func TestResults(t *testing.T) {
	srv := portaltest.New(t)
	srv.SetResult("job-1", "chrom\tpos\n1\t100\n")
	srv.SetResult("job-2", "chrom\tpos\n")
	dir := t.TempDir()

	out, err := runCLI(t, "results", "job-1", "job-2", "--dest", dir+"/", "--portal-url", srv.BaseURL())
	require.NoError(t, err)
	assert.Contains(t, out, "job-1 -> ")

	b, err := os.ReadFile(filepath.Join(dir, "job-1.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "chrom\tpos\n1\t100\n", string(b))
	assert.FileExists(t, filepath.Join(dir, "job-2.tsv"))
}

func TestFields(t *testing.T) {
	srv := portaltest.New(t)
	srv.SetSchema(portal.Schema{ColNames: []string{"AF", "IMPACT"}}, 0)

	out, err := runCLI(t, "fields", "--portal-url", srv.BaseURL())
	require.NoError(t, err)
	assert.Contains(t, out, "Fields:\n  AF\n  IMPACT\n")
	assert.Contains(t, out, "String operators:    == =~ != !=~")
	assert.Contains(t, out, "Numerical operators: < <= > >=")
}

func TestMasks(t *testing.T) {
	srv := portaltest.New(t)
	srv.SetMasks([]string{"rare", "high-impact"}, map[string]string{
		"rare":        "AF < 0.01",
		"high-impact": "IMPACT == HIGH",
	})

	t.Run("List", func(t *testing.T) {
		out, err := runCLI(t, "masks", "list", "--portal-url", srv.BaseURL())
		require.NoError(t, err)
		assert.Equal(t, "rare\nhigh-impact\n", out)
	})

	t.Run("Show", func(t *testing.T) {
		out, err := runCLI(t, "masks", "show", "rare", "--portal-url", srv.BaseURL())
		require.NoError(t, err)
		assert.Contains(t, out, "AF < 0.01")
	})

	t.Run("ShowJSON", func(t *testing.T) {
		out, err := runCLI(t, "masks", "show", "high-impact", "--json", "--portal-url", srv.BaseURL())
		require.NoError(t, err)
		recs := records(t, out)
		require.Len(t, recs[output.TypeCatalog], 1)
		var cat output.CatalogRecord
		require.NoError(t, json.Unmarshal(recs[output.TypeCatalog][0].Data, &cat))
		assert.Equal(t, "mask", cat.Kind)
		assert.Equal(t, "IMPACT == HIGH", cat.Body)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := runCLI(t, "masks", "show", "nope", "--portal-url", srv.BaseURL())
		require.Error(t, err)
		assert.Equal(t, errwrap.ExitNotFound, errwrap.CodeOf(err))
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		recCode string
	}{
		{"invalid id", &session.InvalidIDError{ID: "x"}, errwrap.ExitInvalidArgument, output.ErrCodeInvalid},
		{"missing field", &draft.MissingFieldError{Field: draft.FieldGenome}, errwrap.ExitInvalidArgument, output.ErrCodeInvalid},
		{"invalid email", &submit.InvalidEmailError{Email: "x"}, errwrap.ExitInvalidArgument, output.ErrCodeInvalid},
		{"no drafts", submit.ErrNoDrafts, errwrap.ExitInvalidArgument, output.ErrCodeInvalid},
		{"unknown session", &loader.NotFoundError{ID: "0a1b2c3d"}, errwrap.ExitNotFound, output.ErrCodeNotFound},
		{"no match", fmt.Errorf("x: %w", inputs.ErrNoMatch), errwrap.ExitNotFound, output.ErrCodeNotFound},
		{"missing mask", &portal.MaskError{Name: "m", Message: "ERROR"}, errwrap.ExitNotFound, output.ErrCodeNotFound},
		{"http 404", &portal.HTTPError{Op: "results", StatusCode: 404}, errwrap.ExitNotFound, output.ErrCodeNotFound},
		{"http 503", &portal.HTTPError{Op: "status", StatusCode: 503}, errwrap.ExitExternalServiceUnavailable, output.ErrCodeUnavailable},
		{"transport", &portal.RequestError{Op: "status", Err: errors.New("refused")}, errwrap.ExitExternalServiceUnavailable, output.ErrCodeUnavailable},
		{"other", errors.New("boom"), errwrap.ExitFailure, output.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, recCode := classify(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.recCode, recCode)
		})
	}
}

func TestSessionQuery(t *testing.T) {
	q, err := sessionQuery("")
	require.NoError(t, err)
	assert.Empty(t, q)

	q, err = sessionQuery("0a1b2c3d")
	require.NoError(t, err)
	assert.Equal(t, session.QueryParam+"=0a1b2c3d", q)

	_, err = sessionQuery("../etc")
	require.Error(t, err)
}

func TestResultTarget(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		raw  string
		many bool
		want string
	}{
		{"existing dir", dir, false, filepath.Join(dir, "job-1.tsv")},
		{"trailing slash", "out/", false, filepath.Join("out", "job-1.tsv")},
		{"file name", filepath.Join(dir, "sample.tsv"), false, filepath.Join(dir, "sample.tsv")},
		{"many ids", filepath.Join(dir, "sample.tsv"), true, filepath.Join(dir, "sample.tsv", "job-1.tsv")},
		{"s3 prefix", "s3://bucket/run7/", false, "s3://bucket/run7/job-1.tsv"},
		{"s3 bucket", "s3://bucket", false, "s3://bucket/job-1.tsv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest, err := provider.ParseLocation(tt.raw)
			require.NoError(t, err)
			got := resultTarget(dest, tt.raw, "job-1", tt.many)
			if got.Type == provider.ProviderFile {
				assert.Equal(t, tt.want, got.Key)
				return
			}
			assert.Equal(t, tt.want, got.String())
		})
	}
}
