// Package controller wires the session state machine together and exposes
// one method per user action.
//
// Every handler reports problems through the Notifier and also returns them,
// so a caller can both show the message and choose an exit status. No
// handler leaves the state half-updated on failure.
package controller

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/3leaps/vepclient/pkg/draft"
	"github.com/3leaps/vepclient/pkg/loader"
	"github.com/3leaps/vepclient/pkg/portal"
	"github.com/3leaps/vepclient/pkg/session"
	"github.com/3leaps/vepclient/pkg/submit"
)

// Submitter checks and submits a batch of drafts.
type Submitter interface {
	Check(b submit.Batch) error
	SubmitBatch(ctx context.Context, b submit.Batch) (submit.Outcomes, error)
}

// SessionLoader fetches a saved session.
type SessionLoader interface {
	Load(ctx context.Context, id string) (*loader.Snapshot, error)
}

// SchemaSource reports the filterable field names.
type SchemaSource interface {
	GetSchema(ctx context.Context) (*portal.Schema, error)
}

// MaskSource lists and reads predefined filters.
type MaskSource interface {
	List(ctx context.Context) ([]string, error)
	Get(ctx context.Context, name string) (string, error)
}

// Options wires a Controller. Queue, Submitter, Tracker and Loader are
// required; the rest may be left zero.
type Options struct {
	Generator session.Generator
	Queue     *draft.Queue
	Submitter Submitter
	Tracker   loader.JobTracker
	Loader    SessionLoader
	Schema    SchemaSource
	Masks     MaskSource
	Notifier  Notifier
	Board     BoardResetter
	Logger    *zap.Logger
}

// Controller owns one SessionState. It is safe for concurrent use.
type Controller struct {
	opts     Options
	identity session.Identity
	logger   *zap.Logger

	mu    sync.Mutex
	state SessionState
}

// New creates a controller with an empty state.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Queue == nil {
		opts.Queue = &draft.Queue{}
	}
	return &Controller{opts: opts, logger: logger}
}

// State returns a copy of the current state.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Queue returns the draft queue.
func (c *Controller) Queue() *draft.Queue {
	return c.opts.Queue
}

// SessionID returns the active session id.
func (c *Controller) SessionID() string {
	return c.identity.ID()
}

// Init establishes the session id from a URL-style query string. A
// well-formed "session" parameter is adopted and its saved state loaded;
// otherwise a fresh id is generated. It reports whether the id was restored.
//
// A restored id stays active even when the portal does not know it yet.
func (c *Controller) Init(ctx context.Context, rawQuery string) (bool, error) {
	id, restored := c.opts.Generator.ResolveID(rawQuery)
	if err := c.SetSessionID(id); err != nil {
		return false, err
	}
	c.logger.Debug("Session initialized", zap.String("session", id), zap.Bool("restored", restored))

	if !restored {
		c.resetBoard()
		return false, nil
	}
	if err := c.LoadSession(ctx, id); err != nil && !errors.Is(err, loader.ErrNotFound) {
		return true, err
	}
	return true, nil
}

// SetSessionID implements loader.Target.
func (c *Controller) SetSessionID(id string) error {
	if err := c.identity.Set(id); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.SessionID = id
	c.mu.Unlock()
	return nil
}

// SetFilter replaces the filter text.
func (c *Controller) SetFilter(filter string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Filter = filter
}

// ClearFilter empties the filter text.
func (c *Controller) ClearFilter() {
	c.SetFilter("")
}

// SetFormat sets the output format.
func (c *Controller) SetFormat(format string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Format = format
}

// SetGenome sets the reference genome.
func (c *Controller) SetGenome(genome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Genome = genome
}

// SetEmail sets the notification email.
func (c *Controller) SetEmail(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Email = email
}

// SetDescription sets the session description.
func (c *Controller) SetDescription(description string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Description = description
}

// ResetBoard implements loader.Target.
func (c *Controller) ResetBoard() {
	c.resetBoard()
}

// SaveJob validates the current filter, format and genome with input and
// queues the draft. The queue keeps earlier drafts: this is "save and create
// new", ready for the next input file.
func (c *Controller) SaveJob(input draft.InputRef) (int, error) {
	st := c.State()
	d, err := draft.New(st.Filter, input, st.Format, st.Genome)
	if err != nil {
		c.notify(AreaStatus, err.Error())
		return -1, err
	}
	idx := c.opts.Queue.Enqueue(d)
	c.notify(AreaStatus, "")
	c.logger.Debug("Job saved", zap.Int("index", idx), zap.String("input", d.DisplayName()))
	return idx, nil
}

// SubmitAll submits every queued draft. The queue is consumed only when the
// batch passes its preconditions.
func (c *Controller) SubmitAll(ctx context.Context) (submit.Outcomes, error) {
	st := c.State()
	batch := submit.Batch{
		Drafts:      c.opts.Queue.Drafts(),
		SessionID:   c.identity.ID(),
		Email:       st.Email,
		Description: st.Description,
	}

	if err := c.opts.Submitter.Check(batch); err != nil {
		c.notifyPrecondition(err)
		return nil, err
	}

	batch.Drafts = c.opts.Queue.Take()
	if len(batch.Drafts) == 0 {
		c.notifyPrecondition(submit.ErrNoDrafts)
		return nil, submit.ErrNoDrafts
	}
	c.notify(AreaEmail, "Submitting job. Notification will be sent to "+st.Email)

	out, err := c.opts.Submitter.SubmitBatch(ctx, batch)
	if err != nil {
		c.notifyPrecondition(err)
		return nil, err
	}

	var failures []string
	for _, o := range out {
		if o.Err != nil {
			failures = append(failures, o.Err.Error())
		}
	}
	c.notify(AreaSubmission, strings.Join(failures, "\n"))
	return out, nil
}

func (c *Controller) notifyPrecondition(err error) {
	var emailErr *submit.InvalidEmailError
	switch {
	case errors.Is(err, submit.ErrEmailMissing), errors.As(err, &emailErr):
		c.notify(AreaEmail, err.Error())
	default:
		c.notify(AreaSubmission, err.Error())
	}
}

// LoadSession replaces the session with a saved one. A malformed id is
// rejected without contacting the portal. On any failure the state is left
// as it was.
func (c *Controller) LoadSession(ctx context.Context, id string) error {
	snap, err := c.opts.Loader.Load(ctx, id)
	if err != nil {
		c.notify(AreaSession, sessionMessage(err))
		return err
	}

	msg, err := loader.Apply(snap, c, c.opts.Tracker)
	if err != nil {
		c.notify(AreaSession, err.Error())
		return err
	}
	c.notify(AreaSession, msg)
	c.logger.Info("Session loaded", zap.String("session", id), zap.Int("jobs", len(snap.Jobs)))
	return nil
}

func sessionMessage(err error) string {
	var (
		idErr    *session.InvalidIDError
		srvErr   *loader.ServerError
		notFound *loader.NotFoundError
	)
	switch {
	case errors.As(err, &idErr), errors.As(err, &srvErr), errors.As(err, &notFound):
		return err.Error()
	default:
		return "Error:\n" + portal.StatusText(err)
	}
}

// LoadSchema fetches the filterable field names into the state.
func (c *Controller) LoadSchema(ctx context.Context) ([]string, error) {
	if c.opts.Schema == nil {
		return nil, nil
	}
	schema, err := c.opts.Schema.GetSchema(ctx)
	if err != nil {
		c.notify(AreaStatus, "Unable to load available fields: "+portal.StatusText(err))
		return nil, err
	}
	if schema.IsError {
		c.notify(AreaStatus, "Unable to load available fields: "+schema.Message)
	}
	if schema.ColNames != nil {
		c.mu.Lock()
		c.state.Fields = append([]string(nil), schema.ColNames...)
		c.mu.Unlock()
	}
	if schema.IsError {
		return schema.ColNames, &SchemaError{Message: schema.Message}
	}
	return schema.ColNames, nil
}

// LoadMasks fetches the predefined filter names into the state.
func (c *Controller) LoadMasks(ctx context.Context) ([]string, error) {
	if c.opts.Masks == nil {
		return nil, nil
	}
	names, err := c.opts.Masks.List(ctx)
	if err != nil {
		c.notify(AreaStatus, "Unable to load masks: "+portal.StatusText(err))
		return nil, err
	}
	c.mu.Lock()
	c.state.Masks = append([]string(nil), names...)
	c.mu.Unlock()
	return names, nil
}

// ApplyMask replaces the filter with a predefined one. On failure the filter
// is left unchanged.
func (c *Controller) ApplyMask(ctx context.Context, name string) error {
	if c.opts.Masks == nil {
		return errors.New("no mask source configured")
	}
	body, err := c.opts.Masks.Get(ctx, name)
	if err != nil {
		var maskErr *portal.MaskError
		if errors.As(err, &maskErr) {
			c.notify(AreaStatus, maskErr.Message)
		} else {
			c.notify(AreaStatus, "Unable to load mask "+name+": "+portal.StatusText(err))
		}
		return err
	}
	c.SetFilter(body)
	return nil
}

// SchemaError is a schema response that the portal flagged as an error.
type SchemaError struct {
	Message string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return "Unable to load available fields: " + e.Message
}

func (c *Controller) notify(area Area, text string) {
	if c.opts.Notifier != nil {
		c.opts.Notifier.Notify(area, text)
	}
}

func (c *Controller) resetBoard() {
	if c.opts.Board != nil {
		c.opts.Board.ResetBoard()
	}
}

var (
	_ loader.Target = (*Controller)(nil)
	_ Submitter     = (*submit.Coordinator)(nil)
)
