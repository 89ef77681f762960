package output

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/3leaps/vepclient/pkg/controller"
	"github.com/3leaps/vepclient/pkg/submit"
	"github.com/3leaps/vepclient/pkg/tracker"
)

// Presenter adapts a Writer to the session's presentation hooks. A job
// record is written only when the job's rendered state changed, so repeated
// renders of an unchanged status produce a single record.
type Presenter struct {
	w      Writer
	ctx    context.Context
	logger *zap.Logger

	mu       sync.Mutex
	lastJob  map[string]JobRecord
	lastMsgs map[controller.Area]string
}

// NewPresenter creates a presenter that writes under ctx.
func NewPresenter(ctx context.Context, w Writer, logger *zap.Logger) *Presenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Presenter{
		w:        w,
		ctx:      ctx,
		logger:   logger,
		lastJob:  make(map[string]JobRecord),
		lastMsgs: make(map[controller.Area]string),
	}
}

// RenderStatus implements tracker.Renderer.
func (p *Presenter) RenderStatus(v tracker.View) {
	rec := jobRecord(v)

	p.mu.Lock()
	prev, seen := p.lastJob[v.JobID]
	if seen && equalJob(prev, rec) {
		p.mu.Unlock()
		return
	}
	p.lastJob[v.JobID] = rec
	p.mu.Unlock()

	p.check(p.w.WriteJob(p.ctx, &rec))
}

// ResetBoard forgets rendered jobs so a reloaded session is written afresh.
func (p *Presenter) ResetBoard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastJob = make(map[string]JobRecord)
}

// Uploading implements submit.Observer. Upload notices are transient and
// not recorded.
func (p *Presenter) Uploading(int, string) {}

// Finished implements submit.Observer.
func (p *Presenter) Finished(o submit.Outcome) {
	rec := &SubmissionRecord{Index: o.Index, Name: o.Name, JobID: o.JobID}
	if o.Err != nil {
		rec.Error = o.Err.Error()
	}
	p.check(p.w.WriteSubmission(p.ctx, rec))
}

// Notify implements controller.Notifier. Clearing an area writes nothing.
func (p *Presenter) Notify(area controller.Area, text string) {
	p.mu.Lock()
	if p.lastMsgs[area] == text {
		p.mu.Unlock()
		return
	}
	p.lastMsgs[area] = text
	p.mu.Unlock()

	if text == "" || area == controller.AreaSubmission {
		return
	}
	p.check(p.w.WriteMessage(p.ctx, &MessageRecord{Area: string(area), Text: text}))
}

func (p *Presenter) check(err error) {
	if err != nil {
		p.logger.Warn("Failed to write record", zap.Error(err))
	}
}

func jobRecord(v tracker.View) JobRecord {
	rec := JobRecord{
		JobID:       v.JobID,
		Name:        v.Name,
		Line:        v.Line(),
		Pending:     v.Pending,
		DownloadURL: v.DownloadURL,
	}
	if v.Status != nil {
		rec.Message = v.Status.Message
		rec.Completed = v.Status.Completed
		rec.Succeeded = v.Status.Succeeded
		rec.Snags = append([]string(nil), v.Status.SnagMessages...)
		if n := len(v.Status.SnagMessages); n > 0 {
			rec.SnagSummary = tracker.SnagSummary(n)
		}
	}
	return rec
}

func equalJob(a, b JobRecord) bool {
	return a.Line == b.Line &&
		a.Pending == b.Pending &&
		a.Completed == b.Completed &&
		a.Succeeded == b.Succeeded &&
		a.DownloadURL == b.DownloadURL &&
		slices.Equal(a.Snags, b.Snags)
}

var (
	_ tracker.Renderer         = (*Presenter)(nil)
	_ submit.Observer          = (*Presenter)(nil)
	_ controller.Notifier      = (*Presenter)(nil)
	_ controller.BoardResetter = (*Presenter)(nil)
)
