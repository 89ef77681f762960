package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/vepclient/internal/config"
	errwrap "github.com/3leaps/vepclient/internal/errors"
	"github.com/3leaps/vepclient/internal/observability"
	"github.com/3leaps/vepclient/pkg/board"
	"github.com/3leaps/vepclient/pkg/controller"
	"github.com/3leaps/vepclient/pkg/draft"
	"github.com/3leaps/vepclient/pkg/inputs"
	"github.com/3leaps/vepclient/pkg/loader"
	"github.com/3leaps/vepclient/pkg/manifest"
	"github.com/3leaps/vepclient/pkg/masks"
	"github.com/3leaps/vepclient/pkg/output"
	"github.com/3leaps/vepclient/pkg/portal"
	"github.com/3leaps/vepclient/pkg/provider"
	"github.com/3leaps/vepclient/pkg/provider/s3"
	"github.com/3leaps/vepclient/pkg/session"
	"github.com/3leaps/vepclient/pkg/submit"
	"github.com/3leaps/vepclient/pkg/tracker"
)

// presentation is implemented by both the text board and the JSONL
// presenter.
type presentation interface {
	tracker.Renderer
	submit.Observer
	controller.Notifier
	controller.BoardResetter
}

// app is the object graph one command runs against.
type app struct {
	cfg    *config.Config
	out    io.Writer
	logger *zap.Logger
	runID  string
	start  time.Time

	client   *portal.Client
	resolver *inputs.Resolver
	tracker  *tracker.Tracker
	ctrl     *controller.Controller

	// Exactly one of board and writer is set, depending on --json.
	board  *board.Board
	writer output.Writer
}

func newApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	cfg := loadedConfig
	if cfg == nil {
		var err error
		if cfg, err = config.Load(ctx); err != nil {
			return nil, errwrap.NewExitError(errwrap.ExitInvalidArgument, "Invalid configuration", err)
		}
	}
	logger := observability.CLILogger

	client, err := portal.New(portal.Config{
		BaseURL: cfg.Portal.BaseURL,
		Timeout: cfg.Portal.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, errwrap.NewExitError(errwrap.ExitInvalidArgument, "Invalid portal URL", err)
	}

	// S3-compatible endpoints generally need path-style addressing.
	resolver := inputs.New(inputs.S3Factory(s3.Config{
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		Profile:         cfg.S3.Profile,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		ForcePathStyle:  cfg.S3.ForcePathStyle || cfg.S3.Endpoint != "",
	}), logger)

	a := &app{
		cfg:      cfg,
		out:      cmd.OutOrStdout(),
		logger:   logger,
		runID:    uuid.New().String(),
		start:    time.Now(),
		client:   client,
		resolver: resolver,
	}

	queue := &draft.Queue{}
	var view presentation
	if jsonOutput {
		w := output.NewJSONLWriter(a.out, a.runID, a.sessionID)
		a.writer = w
		view = output.NewPresenter(ctx, w, logger)
	} else {
		a.board = board.New(a.out)
		queue.OnEnqueue = a.board.QueueRow
		view = a.board
	}

	a.tracker = tracker.New(client, client, view, logger)
	coord := submit.New(client, a.resolver, a.tracker, view, submit.Config{
		RateLimit:          cfg.Submit.RateLimit,
		RequireDescription: cfg.Submit.RequireDescription,
	}, logger)

	a.ctrl = controller.New(controller.Options{
		Queue:     queue,
		Submitter: coord,
		Tracker:   a.tracker,
		Loader:    loader.New(client, logger),
		Schema:    client,
		Masks:     masks.New(client, cfg.Masks.CacheTTL, logger),
		Notifier:  view,
		Board:     view,
		Logger:    logger,
	})

	logger.Debug("Client ready",
		zap.String("run_id", a.runID),
		zap.String("portal", client.BaseURL()),
		zap.Bool("json", jsonOutput))
	return a, nil
}

func (a *app) sessionID() string {
	if a.ctrl == nil {
		return ""
	}
	return a.ctrl.SessionID()
}

func (a *app) close() {
	if err := a.resolver.Close(); err != nil {
		a.logger.Warn("Failed to close storage", zap.Error(err))
	}
	if a.writer != nil {
		_ = a.writer.Close()
	}
}

// printf writes human output; it is silent in --json mode.
func (a *app) printf(format string, args ...any) {
	if a.writer != nil {
		return
	}
	_, _ = fmt.Fprintf(a.out, format, args...)
}

// reportSession announces the active session.
func (a *app) reportSession(ctx context.Context, restored bool) {
	st := a.ctrl.State()
	if a.writer != nil {
		a.check(a.writer.WriteSession(ctx, &output.SessionRecord{
			ID:       st.SessionID,
			Restored: restored,
			Filter:   st.Filter,
			Format:   st.Format,
			Jobs:     len(a.tracker.Jobs()),
		}))
		return
	}
	a.printf("Session %s\n", st.SessionID)
}

// watch polls until every tracked job completed, or polls once.
func (a *app) watch(ctx context.Context, follow bool) error {
	if !follow {
		return a.tracker.PollOnce(ctx)
	}
	return a.tracker.Run(ctx, tracker.RunOptions{
		Interval:  a.cfg.Poll.Interval,
		UntilIdle: true,
	})
}

// summary writes the closing record in --json mode.
func (a *app) summary(ctx context.Context, outcomes submit.Outcomes) {
	if a.writer == nil {
		return
	}
	rec := &output.SummaryRecord{
		Submitted: outcomes.Succeeded(),
		Failed:    len(outcomes) - outcomes.Succeeded(),
	}
	for _, v := range a.tracker.Jobs() {
		switch {
		case v.Pending:
			rec.Pending++
		case v.Status != nil && v.Status.Completed:
			rec.Completed++
			if v.Status.Succeeded {
				rec.Succeeded++
			}
		}
	}
	rec.Duration = time.Since(a.start)
	rec.DurationHuman = rec.Duration.Round(time.Millisecond).String()
	a.check(a.writer.WriteSummary(ctx, rec))
}

func (a *app) check(err error) {
	if err != nil {
		a.logger.Warn("Failed to write record", zap.Error(err))
	}
}

// fail logs err, writes an error record in --json mode and returns the
// ExitError for Execute.
func (a *app) fail(ctx context.Context, message string, err error) error {
	code, recCode := classify(err)
	a.logger.Error(message, zap.Error(err))
	if a.writer != nil {
		a.check(a.writer.WriteError(ctx, &output.ErrorRecord{Code: recCode, Message: err.Error()}))
	}
	return errwrap.NewExitError(code, message, err)
}

// invalidArgument logs and returns a usage failure found before the app
// is built.
func invalidArgument(message string, err error) error {
	if err != nil {
		observability.CLILogger.Error(message, zap.Error(err))
	} else {
		observability.CLILogger.Error(message)
	}
	return errwrap.NewExitError(errwrap.ExitInvalidArgument, message, err)
}

// classify maps an error to an exit code and an error record code.
func classify(err error) (int, string) {
	var (
		idErr      *session.InvalidIDError
		fieldErr   *draft.MissingFieldError
		emailErr   *submit.InvalidEmailError
		manifErr   manifest.ValidationErrors
		httpErr    *portal.HTTPError
		requestErr *portal.RequestError
		cfgErr     *s3.ConfigError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return errwrap.ExitSignalInt, output.ErrCodeInternal
	case errors.As(err, &idErr),
		errors.As(err, &fieldErr),
		errors.As(err, &emailErr),
		errors.As(err, &manifErr),
		errors.As(err, &cfgErr),
		errors.Is(err, submit.ErrNoDrafts),
		errors.Is(err, submit.ErrEmailMissing),
		errors.Is(err, submit.ErrDescriptionMissing):
		return errwrap.ExitInvalidArgument, output.ErrCodeInvalid
	case errors.Is(err, loader.ErrNotFound),
		errors.Is(err, inputs.ErrNoMatch),
		errors.Is(err, portal.ErrMaskLoad),
		provider.IsNotFound(err):
		return errwrap.ExitNotFound, output.ErrCodeNotFound
	case errors.As(err, &httpErr) && httpErr.StatusCode == 404:
		return errwrap.ExitNotFound, output.ErrCodeNotFound
	case errors.As(err, &httpErr),
		errors.As(err, &requestErr),
		provider.IsUnavailable(err),
		provider.IsAccessDenied(err):
		return errwrap.ExitExternalServiceUnavailable, output.ErrCodeUnavailable
	}
	return errwrap.ExitFailure, output.ErrCodeInternal
}

// sessionQuery renders id as the query string the controller resolves.
func sessionQuery(id string) (string, error) {
	if id == "" {
		return "", nil
	}
	if !session.IsWellFormed(id) {
		return "", &session.InvalidIDError{ID: id}
	}
	return session.QueryParam + "=" + id, nil
}
