package board

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/vepclient/pkg/controller"
	"github.com/3leaps/vepclient/pkg/draft"
	"github.com/3leaps/vepclient/pkg/portal"
	"github.com/3leaps/vepclient/pkg/submit"
	"github.com/3leaps/vepclient/pkg/tracker"
)

type ref string

func (r ref) Name() string { return string(r) }
func (r ref) URI() string  { return string(r) }

func succeeded(snags ...string) tracker.View {
	return tracker.View{
		JobID:       "job-1",
		Name:        "a.vcf",
		DownloadURL: "http://portal/results/job-1.tsv",
		Status: &portal.Status{
			Message:      "Done",
			Completed:    true,
			Succeeded:    true,
			SnagMessages: snags,
		},
	}
}

func TestBoard_Placeholder(t *testing.T) {
	b := New(nil)
	assert.Equal(t, []string{Placeholder}, b.Lines())
}

func TestBoard_RenderStatus_Idempotent(t *testing.T) {
	var out bytes.Buffer
	b := New(&out)

	b.RenderStatus(tracker.View{JobID: "job-1", Name: "a.vcf", Pending: true})
	v := succeeded("bad line 3", "bad line 9")
	b.RenderStatus(v)
	before := out.String()

	b.RenderStatus(v)
	b.RenderStatus(v)

	assert.Equal(t, before, out.String(), "unchanged view writes nothing")
	assert.Equal(t, 1, strings.Count(out.String(), "download:"))
	assert.Equal(t, 1, strings.Count(out.String(), "bad line 3"))

	lines := b.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "a.vcf: Done (download: http://portal/results/job-1.tsv) 2 errors", lines[0])
	assert.Equal(t, "    bad line 3", lines[1])
	assert.Equal(t, "    bad line 9", lines[2])
}

func TestBoard_RenderStatus_ReplacesLine(t *testing.T) {
	b := New(nil)
	b.RenderStatus(tracker.View{JobID: "job-1", Name: "a.vcf"})
	assert.Equal(t, []string{"Submitted a.vcf, waiting for result."}, b.Lines())

	b.RenderStatus(tracker.View{JobID: "job-1", Name: "a.vcf", Status: &portal.Status{Message: "Running"}})
	assert.Equal(t, []string{"a.vcf: Running"}, b.Lines())
}

func TestBoard_UploadNotices(t *testing.T) {
	var out bytes.Buffer
	b := New(&out)

	b.Uploading(0, "a.vcf")
	b.Uploading(1, "b.vcf")
	assert.Equal(t, []string{"a.vcf: uploading ...", "b.vcf: uploading ..."}, b.Lines())

	b.Finished(submit.Outcome{Index: 0, Name: "a.vcf", JobID: "job-1"})
	b.Finished(submit.Outcome{Index: 1, Name: "b.vcf", Err: &submit.JobError{Name: "b.vcf", Reason: "Bad Gateway", Err: errors.New("x")}})

	assert.Equal(t, []string{"Could not submit b.vcf: Bad Gateway"}, b.Lines())
	assert.Contains(t, out.String(), "Could not submit b.vcf: Bad Gateway\n")
}

func TestBoard_Notify(t *testing.T) {
	var out bytes.Buffer
	b := New(&out)

	b.Notify(controller.AreaSession, "Loading session 0a1b2c3d.")
	b.Notify(controller.AreaSession, "Loading session 0a1b2c3d.")
	assert.Equal(t, "Loading session 0a1b2c3d.\n", out.String())
	assert.Equal(t, "Loading session 0a1b2c3d.", b.Message(controller.AreaSession))

	b.Notify(controller.AreaSession, "")
	assert.Empty(t, b.Message(controller.AreaSession))
}

func TestBoard_ResetBoard(t *testing.T) {
	b := New(nil)
	b.RenderStatus(succeeded())
	b.Notify(controller.AreaStatus, "kept")
	b.ResetBoard()

	assert.Equal(t, []string{Placeholder}, b.Lines())
	assert.Equal(t, "kept", b.Message(controller.AreaStatus))
}

func TestBoard_QueueRowsAndRender(t *testing.T) {
	q := &draft.Queue{}
	b := New(nil)
	q.OnEnqueue = b.QueueRow

	q.Enqueue(draft.Draft{Filter: "AF <\n 0.01", InputFile: ref("a.vcf"), OutputFormat: "tsv", RefGenome: "hg19"})
	q.Enqueue(draft.Draft{Filter: "x == 1", InputFile: ref("b.vcf"), OutputFormat: "vcf", RefGenome: "hg38"})
	b.Notify(controller.AreaEmail, "Submitting job. Notification will be sent to a@b.com")

	var out bytes.Buffer
	require.NoError(t, b.Render(&out))
	assert.Equal(t, strings.Join([]string{
		"Queued jobs:",
		"  1. a.vcf  format=tsv  genome=hg19  filter=AF < 0.01",
		"  2. b.vcf  format=vcf  genome=hg38  filter=x == 1",
		"Submitting job. Notification will be sent to a@b.com",
		Placeholder,
		"",
	}, "\n"), out.String())

	assert.Equal(t, []string{
		"1. a.vcf  format=tsv  genome=hg19  filter=AF < 0.01",
		"2. b.vcf  format=vcf  genome=hg38  filter=x == 1",
	}, b.Rows())
}
