package output

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Writer outputs JSONL records.
//
// Implementations must be safe for concurrent use from multiple
// goroutines. Each Write* method emits a complete record as a
// single line of JSON followed by a newline.
type Writer interface {
	WriteSession(ctx context.Context, rec *SessionRecord) error
	WriteSubmission(ctx context.Context, rec *SubmissionRecord) error
	WriteJob(ctx context.Context, rec *JobRecord) error
	WriteMessage(ctx context.Context, rec *MessageRecord) error
	WriteCatalog(ctx context.Context, rec *CatalogRecord) error
	WriteDownload(ctx context.Context, rec *DownloadRecord) error
	WriteError(ctx context.Context, rec *ErrorRecord) error
	WriteSummary(ctx context.Context, rec *SummaryRecord) error

	// Close flushes any buffered output and releases resources.
	Close() error
}

// JSONLWriter writes records as newline-delimited JSON to an io.Writer.
//
// JSONLWriter is safe for concurrent use. Writes are serialized using
// a mutex to ensure atomic line writes (no interleaved output).
type JSONLWriter struct {
	w       io.Writer
	runID   string
	session func() string
	mu      sync.Mutex

	// closed indicates the writer has been closed.
	closed bool
}

// NewJSONLWriter creates a new JSONL writer.
//
// Parameters:
//   - w: The underlying writer (stdout, file, etc.)
//   - runID: Correlation ID for this invocation
//   - session: Returns the active session id for each record; may be nil
func NewJSONLWriter(w io.Writer, runID string, session func() string) *JSONLWriter {
	return &JSONLWriter{
		w:       w,
		runID:   runID,
		session: session,
	}
}

func (jw *JSONLWriter) WriteSession(ctx context.Context, rec *SessionRecord) error {
	return jw.writeRecord(ctx, TypeSession, rec)
}

func (jw *JSONLWriter) WriteSubmission(ctx context.Context, rec *SubmissionRecord) error {
	return jw.writeRecord(ctx, TypeSubmission, rec)
}

func (jw *JSONLWriter) WriteJob(ctx context.Context, rec *JobRecord) error {
	return jw.writeRecord(ctx, TypeJob, rec)
}

func (jw *JSONLWriter) WriteMessage(ctx context.Context, rec *MessageRecord) error {
	return jw.writeRecord(ctx, TypeMessage, rec)
}

func (jw *JSONLWriter) WriteCatalog(ctx context.Context, rec *CatalogRecord) error {
	return jw.writeRecord(ctx, TypeCatalog, rec)
}

func (jw *JSONLWriter) WriteDownload(ctx context.Context, rec *DownloadRecord) error {
	return jw.writeRecord(ctx, TypeDownload, rec)
}

// WriteError emits an error record.
func (jw *JSONLWriter) WriteError(ctx context.Context, rec *ErrorRecord) error {
	return jw.writeRecord(ctx, TypeError, rec)
}

// WriteSummary emits a summary record.
func (jw *JSONLWriter) WriteSummary(ctx context.Context, rec *SummaryRecord) error {
	return jw.writeRecord(ctx, TypeSummary, rec)
}

// Close marks the writer as closed.
//
// If the underlying writer implements io.Closer, it is NOT closed.
// The caller is responsible for closing the underlying writer.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	jw.closed = true
	return nil
}

// writeRecord marshals data and writes a complete record line.
//
// The mutex is held for the write so lines never interleave.
func (jw *JSONLWriter) writeRecord(ctx context.Context, recordType string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	var session string
	if jw.session != nil {
		session = jw.session()
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return ErrWriterClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	record := Record{
		Type:    recordType,
		TS:      time.Now().UTC(),
		RunID:   jw.runID,
		Session: session,
		Data:    dataBytes,
	}

	recordBytes, err := json.Marshal(record)
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}

	// io.Writer may return n < len(p) with a nil error; a short write would
	// truncate the line.
	recordBytes = append(recordBytes, '\n')
	if err := writeAll(jw.w, recordBytes); err != nil {
		return &WriteError{Op: "write", Err: err}
	}

	return nil
}

// writeAll writes all bytes to w, handling short writes.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			// No progress made - avoid infinite loop
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

// Compile-time check that JSONLWriter implements Writer.
var _ Writer = (*JSONLWriter)(nil)
