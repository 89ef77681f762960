// Package tracker keeps the set of submitted jobs and polls the portal for
// their status until each one completes.
//
// Polls may overlap: every request carries a per-job sequence number and a
// response older than the newest one already applied for that job is
// dropped. A completed status is terminal and is never replaced by a
// non-completed one.
package tracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/3leaps/vepclient/pkg/portal"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 300 * time.Millisecond

// StatusFetcher reads one job status.
type StatusFetcher interface {
	GetStatus(ctx context.Context, jobID string) (*portal.Status, error)
}

// ResultLinker builds the download URL of a finished job.
type ResultLinker interface {
	ResultURL(jobID string) string
}

// Renderer draws job entries. RenderStatus may be called concurrently and
// more than once for the same View.
type Renderer interface {
	RenderStatus(v View)
}

type job struct {
	id      string
	name    string
	order   int
	status  *portal.Status
	pending bool

	issued  uint64
	applied uint64
}

// Tracker is safe for concurrent use.
type Tracker struct {
	fetcher  StatusFetcher
	linker   ResultLinker
	renderer Renderer
	logger   *zap.Logger

	mu    sync.Mutex
	jobs  map[string]*job
	count int
}

// New creates a tracker. linker and renderer may be nil.
func New(f StatusFetcher, l ResultLinker, r Renderer, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		fetcher:  f,
		linker:   l,
		renderer: r,
		logger:   logger,
		jobs:     make(map[string]*job),
	}
}

// RegisterJob starts tracking id. Registering an id that is already pending
// is a no-op. Registering a finished id starts polling it again.
func (t *Tracker) RegisterJob(id, displayName string) {
	t.mu.Lock()
	j, ok := t.jobs[id]
	if ok && j.pending {
		t.mu.Unlock()
		return
	}
	if !ok {
		j = &job{id: id, order: t.count}
		t.count++
		t.jobs[id] = j
	}
	j.name = displayName
	j.status = nil
	j.pending = true
	j.applied = j.issued
	v := t.viewLocked(j)
	t.mu.Unlock()

	t.logger.Debug("Tracking job", zap.String("job_id", id), zap.String("input", displayName))
	t.render(v)
}

// Reset forgets every job. In-flight responses for forgotten jobs are dropped.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs = make(map[string]*job)
	t.count = 0
}

// PollOnce fetches the status of every pending job concurrently and waits for
// all fetches to finish. Jobs whose fetch fails stay pending; the failures
// are logged and returned together.
func (t *Tracker) PollOnce(ctx context.Context) error {
	type ticket struct {
		job *job
		id  string
		seq uint64
	}

	t.mu.Lock()
	tickets := make([]ticket, 0, len(t.jobs))
	for _, j := range t.sortedLocked() {
		if !j.pending {
			continue
		}
		j.issued++
		tickets = append(tickets, ticket{job: j, id: j.id, seq: j.issued})
	}
	t.mu.Unlock()

	var (
		wg     sync.WaitGroup
		errMu  sync.Mutex
		result *multierror.Error
	)
	for _, tk := range tickets {
		wg.Add(1)
		go func(tk ticket) {
			defer wg.Done()
			st, err := t.fetcher.GetStatus(ctx, tk.id)
			if err != nil {
				t.logger.Warn("Status fetch failed", zap.String("job_id", tk.id), zap.Error(err))
				errMu.Lock()
				result = multierror.Append(result, err)
				errMu.Unlock()
				return
			}
			t.apply(tk.job, tk.seq, *st)
		}(tk)
	}
	wg.Wait()
	return result.ErrorOrNil()
}

// apply stores a fetched status unless a newer one already landed or the
// job was forgotten by Reset since the fetch was issued.
func (t *Tracker) apply(j *job, seq uint64, st portal.Status) {
	id := j.id
	t.mu.Lock()
	if t.jobs[id] != j || seq <= j.applied {
		t.mu.Unlock()
		t.logger.Debug("Dropping stale status", zap.String("job_id", id), zap.Uint64("seq", seq))
		return
	}
	if j.status != nil && j.status.Completed && !st.Completed {
		t.mu.Unlock()
		return
	}
	j.applied = seq
	j.status = &st
	if st.Completed {
		j.pending = false
	}
	v := t.viewLocked(j)
	t.mu.Unlock()

	if st.Completed {
		t.logger.Info("Job completed",
			zap.String("job_id", id),
			zap.Bool("succeeded", st.Succeeded),
			zap.Int("snags", len(st.SnagMessages)))
	}
	t.render(v)
}

// RunOptions tunes Run.
type RunOptions struct {
	// Interval is the polling period. Zero uses DefaultInterval.
	Interval time.Duration

	// UntilIdle makes Run return once no job is pending.
	UntilIdle bool
}

// Run polls on a fixed period. Each tick starts a PollOnce without waiting
// for the previous one. It returns ctx.Err() when ctx is done, or nil when
// UntilIdle is set and nothing is pending. In-flight polls are awaited
// before returning.
func (t *Tracker) Run(ctx context.Context, opts RunOptions) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	if opts.UntilIdle && len(t.Pending()) == 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if opts.UntilIdle && len(t.Pending()) == 0 {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = t.PollOnce(ctx)
			}()
		}
	}
}

// RenderStatus redraws one job from its current state.
func (t *Tracker) RenderStatus(id string) {
	t.mu.Lock()
	j, ok := t.jobs[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	v := t.viewLocked(j)
	t.mu.Unlock()
	t.render(v)
}

// Pending returns pending job ids in registration order.
func (t *Tracker) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []string
	for _, j := range t.sortedLocked() {
		if j.pending {
			ids = append(ids, j.id)
		}
	}
	return ids
}

// IsPending reports whether id is still polled.
func (t *Tracker) IsPending(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	return ok && j.pending
}

// Status returns the last stored status of id.
func (t *Tracker) Status(id string) (portal.Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	if !ok || j.status == nil {
		return portal.Status{}, false
	}
	return *j.status, true
}

// Jobs returns a view of every tracked job in registration order.
func (t *Tracker) Jobs() []View {
	t.mu.Lock()
	defer t.mu.Unlock()
	sorted := t.sortedLocked()
	views := make([]View, 0, len(sorted))
	for _, j := range sorted {
		views = append(views, t.viewLocked(j))
	}
	return views
}

func (t *Tracker) sortedLocked() []*job {
	out := make([]*job, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].order < out[b].order })
	return out
}

func (t *Tracker) viewLocked(j *job) View {
	v := View{JobID: j.id, Name: j.name, Pending: j.pending}
	if j.status != nil {
		st := *j.status
		st.SnagMessages = append([]string(nil), j.status.SnagMessages...)
		v.Status = &st
		if st.Succeeded && t.linker != nil {
			v.DownloadURL = t.linker.ResultURL(j.id)
		}
	}
	return v
}

func (t *Tracker) render(v View) {
	if t.renderer != nil {
		t.renderer.RenderStatus(v)
	}
}
