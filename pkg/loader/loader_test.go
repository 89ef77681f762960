package loader

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/vepclient/pkg/portal"
	"github.com/3leaps/vepclient/pkg/portaltest"
	"github.com/3leaps/vepclient/pkg/session"
)

type fakeTarget struct {
	id     string
	filter string
	format string
	resets int
	setErr error
}

func (f *fakeTarget) SetSessionID(id string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.id = id
	return nil
}
func (f *fakeTarget) SetFilter(s string) { f.filter = s }
func (f *fakeTarget) SetFormat(s string) { f.format = s }
func (f *fakeTarget) ResetBoard()        { f.resets++ }

type fakeJobs struct {
	resets int
	jobs   [][2]string
}

func (f *fakeJobs) Reset() {
	f.resets++
	f.jobs = nil
}
func (f *fakeJobs) RegisterJob(id, name string) { f.jobs = append(f.jobs, [2]string{id, name}) }

func newLoader(t *testing.T) (*Loader, *portaltest.Server) {
	t.Helper()
	srv := portaltest.New(t)
	client, err := portal.New(portal.Config{BaseURL: srv.BaseURL()})
	require.NoError(t, err)
	return New(client, nil), srv
}

func TestLoad_Found(t *testing.T) {
	l, srv := newLoader(t)
	srv.SetSession("0a1b2c3d", portal.SessionResponse{
		Found:  true,
		Filter: "AF < 0.01",
		Format: "vcf",
		Jobs: []portal.SessionJob{
			{ID: "j1", InputFile: "/data/in/first.vcf"},
			{ID: "j2", InputFile: "second.vcf"},
			{ID: "j3", InputFile: "s3://bucket/a/b/"},
		},
	})

	snap, err := l.Load(context.Background(), "0a1b2c3d")
	require.NoError(t, err)
	assert.Equal(t, "0a1b2c3d", snap.ID)
	assert.Equal(t, "AF < 0.01", snap.Filter)
	assert.Equal(t, "vcf", snap.Format)
	require.Len(t, snap.Jobs, 3)
	assert.Equal(t, "first.vcf", snap.Jobs[0].Name)
	assert.Equal(t, "second.vcf", snap.Jobs[1].Name)
	assert.Equal(t, "", snap.Jobs[2].Name)
}

func TestLoad_NotFound(t *testing.T) {
	l, _ := newLoader(t)

	_, err := l.Load(context.Background(), "deadbeef")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t,
		"Unknown session deadbeef.\nNote that sessions are only saved when something is submitted.",
		err.Error())
}

func TestLoad_ServerError(t *testing.T) {
	l, srv := newLoader(t)
	srv.SetSession("0a1b2c3d", portal.SessionResponse{
		Error:   true,
		Message: "database unavailable",
		Report:  json.RawMessage(`{"trace":"..."}`),
	})

	_, err := l.Load(context.Background(), "0a1b2c3d")
	var srvErr *ServerError
	require.True(t, errors.As(err, &srvErr))
	assert.Equal(t, "Error:\ndatabase unavailable", err.Error())
	assert.JSONEq(t, `{"trace":"..."}`, string(srvErr.Report))
}

func TestLoad_MalformedID(t *testing.T) {
	l, srv := newLoader(t)

	_, err := l.Load(context.Background(), "XYZ")
	var idErr *session.InvalidIDError
	require.True(t, errors.As(err, &idErr))
	assert.Equal(t, "XYZ is not a valid session ID.", err.Error())
	assert.Equal(t, 0, srv.TotalRequests())
}

func TestApply(t *testing.T) {
	target := &fakeTarget{filter: "old", format: "tsv"}
	jobs := &fakeJobs{jobs: [][2]string{{"stale", "x"}}}

	msg, err := Apply(&Snapshot{
		ID:     "0a1b2c3d",
		Filter: "AF < 0.01",
		Jobs:   []Job{{ID: "j1", Name: "a.vcf"}, {ID: "j2", Name: "b.vcf"}},
	}, target, jobs)
	require.NoError(t, err)

	assert.Equal(t, "Loading session 0a1b2c3d.", msg)
	assert.Equal(t, "0a1b2c3d", target.id)
	assert.Equal(t, "AF < 0.01", target.filter)
	assert.Equal(t, "tsv", target.format, "empty format leaves the current one")
	assert.Equal(t, 1, target.resets)
	assert.Equal(t, 1, jobs.resets)
	assert.Equal(t, [][2]string{{"j1", "a.vcf"}, {"j2", "b.vcf"}}, jobs.jobs)
}

func TestApply_SetSessionError(t *testing.T) {
	target := &fakeTarget{setErr: errors.New("bad id")}
	jobs := &fakeJobs{}

	_, err := Apply(&Snapshot{ID: "0a1b2c3d", Jobs: []Job{{ID: "j1"}}}, target, jobs)
	require.Error(t, err)
	assert.Zero(t, target.resets)
	assert.Empty(t, jobs.jobs)
}
