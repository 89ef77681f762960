// Package submit turns queued job drafts into portal uploads.
//
// A batch shares one session id and email. Each draft becomes its own
// request; requests are issued in draft order and may complete in any order.
// A failed upload is reported for that draft only and never cancels its
// siblings.
package submit

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/3leaps/vepclient/pkg/draft"
	"github.com/3leaps/vepclient/pkg/portal"
)

// Uploader sends one job to the portal and returns its assigned id.
type Uploader interface {
	Upload(ctx context.Context, req portal.UploadRequest) (string, error)
}

// Opener resolves a draft's input reference to a readable body.
type Opener interface {
	Open(ctx context.Context, ref draft.InputRef) (io.ReadCloser, error)
}

// Registrar receives every job the portal accepted.
type Registrar interface {
	RegisterJob(id, displayName string)
}

// Observer is told about per-draft progress. Methods may be called from
// several goroutines at once.
type Observer interface {
	// Uploading is called before the request for a draft is issued.
	Uploading(index int, name string)

	// Finished is called once the draft's response (or failure) arrives.
	Finished(o Outcome)
}

// Config tunes a Coordinator.
type Config struct {
	// RateLimit caps request issue rate in requests per second. Zero is
	// unlimited.
	RateLimit float64

	// RequireDescription rejects batches with a blank Description.
	RequireDescription bool
}

// Batch is one submit action.
type Batch struct {
	Drafts      []draft.Draft
	SessionID   string
	Email       string
	Description string
}

// Outcome is the result of one draft's upload.
type Outcome struct {
	Index int
	Name  string

	// JobID is set on success.
	JobID string

	// Err is set on failure and is always a *JobError.
	Err error
}

// OK reports whether the portal accepted the draft.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Outcomes holds one Outcome per draft, indexed by draft position.
type Outcomes []Outcome

// Succeeded counts accepted drafts.
func (os Outcomes) Succeeded() int {
	n := 0
	for _, o := range os {
		if o.OK() {
			n++
		}
	}
	return n
}

// Err aggregates every failure, or returns nil when all drafts succeeded.
func (os Outcomes) Err() error {
	var result *multierror.Error
	for _, o := range os {
		if o.Err != nil {
			result = multierror.Append(result, o.Err)
		}
	}
	return result.ErrorOrNil()
}

// Coordinator submits batches. It keeps no per-batch state and may be reused.
type Coordinator struct {
	uploader  Uploader
	opener    Opener
	registrar Registrar
	observer  Observer
	config    Config
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// New creates a coordinator. registrar and observer may be nil.
func New(u Uploader, o Opener, r Registrar, obs Observer, cfg Config, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		uploader:  u,
		opener:    o,
		registrar: r,
		observer:  obs,
		config:    cfg,
		logger:    logger,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c
}

// Check runs the batch preconditions without touching the network.
func (c *Coordinator) Check(b Batch) error {
	if len(b.Drafts) == 0 {
		return ErrNoDrafts
	}
	if b.Email == "" {
		return ErrEmailMissing
	}
	if !IsValidEmail(b.Email) {
		return &InvalidEmailError{Email: b.Email}
	}
	if c.config.RequireDescription && strings.TrimSpace(b.Description) == "" {
		return ErrDescriptionMissing
	}
	return nil
}

// SubmitBatch uploads every draft of b and waits for all responses.
//
// A precondition failure is returned as the error with no request made.
// Otherwise the error is nil and per-draft failures are in the Outcomes.
// Cancelling ctx fails the drafts that have not completed yet.
func (c *Coordinator) SubmitBatch(ctx context.Context, b Batch) (Outcomes, error) {
	if err := c.Check(b); err != nil {
		return nil, err
	}

	outcomes := make(Outcomes, len(b.Drafts))
	var wg sync.WaitGroup

	for i, d := range b.Drafts {
		name := d.DisplayName()
		if err := c.waitForRateLimit(ctx); err != nil {
			outcomes[i] = c.fail(i, name, err)
			c.finished(outcomes[i])
			continue
		}

		c.uploading(i, name)
		wg.Add(1)
		go func(i int, d draft.Draft) {
			defer wg.Done()
			outcomes[i] = c.submitOne(ctx, i, d, b)
			c.finished(outcomes[i])
		}(i, d)
	}

	wg.Wait()

	c.logger.Info("Batch submitted",
		zap.String("session", b.SessionID),
		zap.Int("jobs", len(outcomes)),
		zap.Int("succeeded", outcomes.Succeeded()))

	return outcomes, nil
}

func (c *Coordinator) submitOne(ctx context.Context, index int, d draft.Draft, b Batch) Outcome {
	name := d.DisplayName()
	req := portal.UploadRequest{
		Filter:   d.Filter,
		Format:   d.OutputFormat,
		Session:  b.SessionID,
		Genome:   d.RefGenome,
		Email:    b.Email,
		FileName: name,
		Open: func() (io.ReadCloser, error) {
			return c.opener.Open(ctx, d.InputFile)
		},
	}

	id, err := c.uploader.Upload(ctx, req)
	if err != nil {
		c.logger.Warn("Upload failed",
			zap.Int("index", index),
			zap.String("input", name),
			zap.Error(err))
		return c.fail(index, name, err)
	}

	if c.registrar != nil {
		c.registrar.RegisterJob(id, name)
	}
	c.logger.Debug("Upload accepted",
		zap.Int("index", index),
		zap.String("input", name),
		zap.String("job_id", id))
	return Outcome{Index: index, Name: name, JobID: id}
}

func (c *Coordinator) fail(index int, name string, err error) Outcome {
	return Outcome{
		Index: index,
		Name:  name,
		Err:   &JobError{Index: index, Name: name, Reason: portal.StatusText(err), Err: err},
	}
}

func (c *Coordinator) waitForRateLimit(ctx context.Context) error {
	if c.limiter == nil {
		return ctx.Err()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting to submit: %w", err)
	}
	return nil
}

func (c *Coordinator) uploading(index int, name string) {
	if c.observer != nil {
		c.observer.Uploading(index, name)
	}
}

func (c *Coordinator) finished(o Outcome) {
	if c.observer != nil {
		c.observer.Finished(o)
	}
}
