// Package output provides JSONL output for session activity.
//
// Output is structured as typed record envelopes. Each line is a
// self-contained JSON object that can be parsed independently, so a
// long-running watch can be piped into line-oriented tools.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: vepclient.<type>.v<version>
const (
	// TypeSession identifies session establishment records.
	TypeSession = "vepclient.session.v1"

	// TypeSubmission identifies per-draft upload outcome records.
	TypeSubmission = "vepclient.submission.v1"

	// TypeJob identifies job status records.
	TypeJob = "vepclient.job.v1"

	// TypeMessage identifies user-facing message records.
	TypeMessage = "vepclient.message.v1"

	// TypeCatalog identifies field, operator and mask listings.
	TypeCatalog = "vepclient.catalog.v1"

	// TypeDownload identifies result download records.
	TypeDownload = "vepclient.download.v1"

	// TypeError identifies error records.
	TypeError = "vepclient.error.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "vepclient.summary.v1"
)

// Record is the envelope for all JSONL output.
type Record struct {
	// Type identifies the record type (e.g., "vepclient.job.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// RunID correlates every record of one command invocation.
	RunID string `json:"run_id"`

	// Session is the active session id, if known.
	Session string `json:"session,omitempty"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// SessionRecord reports the session a command runs in.
type SessionRecord struct {
	ID       string `json:"id"`
	Restored bool   `json:"restored"`
	Filter   string `json:"filter,omitempty"`
	Format   string `json:"format,omitempty"`
	Jobs     int    `json:"jobs"`
}

// SubmissionRecord is the outcome of one draft's upload.
type SubmissionRecord struct {
	Index int    `json:"index"`
	Name  string `json:"name"`

	// JobID is set on success.
	JobID string `json:"job_id,omitempty"`

	// Error is the user-facing failure line.
	Error string `json:"error,omitempty"`
}

// JobRecord is the rendered state of one tracked job.
type JobRecord struct {
	JobID       string   `json:"job_id"`
	Name        string   `json:"name"`
	Line        string   `json:"line"`
	Message     string   `json:"message,omitempty"`
	Pending     bool     `json:"pending"`
	Completed   bool     `json:"completed"`
	Succeeded   bool     `json:"succeeded"`
	DownloadURL string   `json:"download_url,omitempty"`
	Snags       []string `json:"snags,omitempty"`
	SnagSummary string   `json:"snag_summary,omitempty"`
}

// MessageRecord is a message shown in an area of the client.
type MessageRecord struct {
	Area string `json:"area"`
	Text string `json:"text"`
}

// CatalogRecord lists portal vocabulary: filterable fields, filter
// operators, mask names, or one mask body.
type CatalogRecord struct {
	// Kind is "fields", "operators", "masks" or "mask".
	Kind  string   `json:"kind"`
	Names []string `json:"names"`

	// Body is the filter text of a single mask.
	Body string `json:"body,omitempty"`
}

// DownloadRecord reports a result file written to a destination.
type DownloadRecord struct {
	JobID string `json:"job_id"`
	Dest  string `json:"dest"`
	Bytes int64  `json:"bytes"`
}

// ErrorRecord is the data payload for errors.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// JobID is the job related to this error, if applicable.
	JobID string `json:"job_id,omitempty"`

	// Details contains additional error context.
	Details any `json:"details,omitempty"`
}

// Error codes for ErrorRecord.
const (
	// ErrCodeNotFound indicates the session, job or result was not found.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeInvalid indicates rejected user input.
	ErrCodeInvalid = "INVALID"

	// ErrCodeUpload indicates a failed upload.
	ErrCodeUpload = "UPLOAD_FAILED"

	// ErrCodeStatus indicates a failed status fetch.
	ErrCodeStatus = "STATUS_FAILED"

	// ErrCodeUnavailable indicates the portal could not be reached.
	ErrCodeUnavailable = "PORTAL_UNAVAILABLE"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal = "INTERNAL"
)

// SummaryRecord is emitted once at the end of a command.
type SummaryRecord struct {
	Submitted int `json:"submitted"`
	Failed    int `json:"failed"`
	Completed int `json:"completed"`
	Succeeded int `json:"succeeded"`
	Pending   int `json:"pending"`

	// Duration is the total command duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
