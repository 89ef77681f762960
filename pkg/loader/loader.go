// Package loader restores a saved portal session: its filter, output format
// and previously submitted jobs.
package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/3leaps/vepclient/pkg/portal"
	"github.com/3leaps/vepclient/pkg/session"
)

// ErrNotFound is wrapped by NotFoundError.
var ErrNotFound = errors.New("session not found")

// NotFoundError reports a session id the portal does not know.
type NotFoundError struct {
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Unknown session %s.\nNote that sessions are only saved when something is submitted.", e.ID)
}

// Unwrap returns ErrNotFound.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ServerError is a session lookup the portal answered with error:true.
type ServerError struct {
	Message string

	// Report is the server's diagnostic payload. It is logged, not shown.
	Report []byte
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return "Error:\n" + e.Message
}

// Job is one previously submitted job of a session.
type Job struct {
	ID        string
	InputFile string

	// Name is the last path segment of InputFile.
	Name string
}

// Snapshot is a found session.
type Snapshot struct {
	ID     string
	Filter string
	Format string
	Jobs   []Job
}

// SessionFetcher reads a session record.
type SessionFetcher interface {
	GetSession(ctx context.Context, sessionID string) (*portal.SessionResponse, error)
}

// Target receives the restored editor state.
type Target interface {
	SetSessionID(id string) error
	SetFilter(filter string)
	SetFormat(format string)
	ResetBoard()
}

// JobTracker receives the restored jobs.
type JobTracker interface {
	Reset()
	RegisterJob(id, displayName string)
}

// Loader fetches and applies sessions.
type Loader struct {
	fetcher SessionFetcher
	logger  *zap.Logger
}

// New creates a loader.
func New(f SessionFetcher, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{fetcher: f, logger: logger}
}

// Load fetches session id. A malformed id fails with *session.InvalidIDError
// before any request is made.
func (l *Loader) Load(ctx context.Context, id string) (*Snapshot, error) {
	if !session.IsWellFormed(id) {
		return nil, &session.InvalidIDError{ID: id}
	}

	resp, err := l.fetcher.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.Error:
		l.logger.Debug("Session lookup failed on server",
			zap.String("session", id),
			zap.String("message", resp.Message),
			zap.ByteString("report", resp.Report))
		return nil, &ServerError{Message: resp.Message, Report: resp.Report}
	case !resp.Found:
		return nil, &NotFoundError{ID: id}
	}

	snap := &Snapshot{
		ID:     id,
		Filter: resp.Filter,
		Format: resp.Format,
		Jobs:   make([]Job, 0, len(resp.Jobs)),
	}
	for _, j := range resp.Jobs {
		snap.Jobs = append(snap.Jobs, Job{ID: j.ID, InputFile: j.InputFile, Name: baseName(j.InputFile)})
	}
	return snap, nil
}

// Apply installs snap: the session id, the filter and format when the
// session recorded them, and its jobs in place of the current ones. It
// returns the message to show.
func Apply(snap *Snapshot, target Target, jobs JobTracker) (string, error) {
	if err := target.SetSessionID(snap.ID); err != nil {
		return "", err
	}
	if snap.Filter != "" {
		target.SetFilter(snap.Filter)
	}
	if snap.Format != "" {
		target.SetFormat(snap.Format)
	}
	target.ResetBoard()
	jobs.Reset()
	for _, j := range snap.Jobs {
		jobs.RegisterJob(j.ID, j.Name)
	}
	return fmt.Sprintf("Loading session %s.", snap.ID), nil
}

func baseName(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}
