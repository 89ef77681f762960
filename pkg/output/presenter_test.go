package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/vepclient/pkg/controller"
	"github.com/3leaps/vepclient/pkg/portal"
	"github.com/3leaps/vepclient/pkg/submit"
	"github.com/3leaps/vepclient/pkg/tracker"
)

func newPresenter() (*Presenter, *bytes.Buffer) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-1", nil)
	return NewPresenter(context.Background(), w, nil), &buf
}

func TestPresenter_RenderStatus_WritesOnChangeOnly(t *testing.T) {
	p, buf := newPresenter()

	waiting := tracker.View{JobID: "job-1", Name: "a.vcf", Pending: true}
	done := tracker.View{
		JobID:       "job-1",
		Name:        "a.vcf",
		DownloadURL: "http://portal/results/job-1.tsv",
		Status:      &portal.Status{Message: "Done", Completed: true, Succeeded: true, SnagMessages: []string{"w"}},
	}

	p.RenderStatus(waiting)
	p.RenderStatus(waiting)
	p.RenderStatus(done)
	p.RenderStatus(done)

	records := decodeLines(t, buf)
	require.Len(t, records, 2)

	var job JobRecord
	require.NoError(t, json.Unmarshal(records[1].Data, &job))
	assert.Equal(t, "One error", job.SnagSummary)
	assert.Equal(t, []string{"w"}, job.Snags)
	assert.True(t, job.Completed)
	assert.False(t, job.Pending)
}

func TestPresenter_ResetBoard(t *testing.T) {
	p, buf := newPresenter()
	v := tracker.View{JobID: "job-1", Name: "a.vcf", Pending: true}

	p.RenderStatus(v)
	p.ResetBoard()
	p.RenderStatus(v)

	assert.Len(t, decodeLines(t, buf), 2)
}

func TestPresenter_Finished(t *testing.T) {
	p, buf := newPresenter()

	p.Uploading(0, "a.vcf")
	p.Finished(submit.Outcome{Index: 0, Name: "a.vcf", JobID: "job-1"})
	p.Finished(submit.Outcome{Index: 1, Name: "b.vcf", Err: &submit.JobError{Name: "b.vcf", Reason: "Bad Gateway", Err: errors.New("x")}})

	records := decodeLines(t, buf)
	require.Len(t, records, 2)

	var ok, failed SubmissionRecord
	require.NoError(t, json.Unmarshal(records[0].Data, &ok))
	require.NoError(t, json.Unmarshal(records[1].Data, &failed))
	assert.Equal(t, "job-1", ok.JobID)
	assert.Equal(t, "Could not submit b.vcf: Bad Gateway", failed.Error)
}

func TestPresenter_Notify(t *testing.T) {
	p, buf := newPresenter()

	p.Notify(controller.AreaEmail, "Submitting job. Notification will be sent to a@b.com")
	p.Notify(controller.AreaEmail, "Submitting job. Notification will be sent to a@b.com")
	p.Notify(controller.AreaEmail, "")
	p.Notify(controller.AreaSubmission, "Could not submit b.vcf: Bad Gateway")

	records := decodeLines(t, buf)
	require.Len(t, records, 1)
	assert.Equal(t, TypeMessage, records[0].Type)

	var msg MessageRecord
	require.NoError(t, json.Unmarshal(records[0].Data, &msg))
	assert.Equal(t, "email", msg.Area)
}
