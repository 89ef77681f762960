// Package board is the terminal presentation of a session: queued drafts,
// upload notices, job status lines and messages.
//
// Every entry point is idempotent. Rendering a job with an unchanged View
// writes nothing and the warning panel of a job is written at most once,
// so a poll loop can redraw freely.
package board

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/3leaps/vepclient/pkg/controller"
	"github.com/3leaps/vepclient/pkg/draft"
	"github.com/3leaps/vepclient/pkg/submit"
	"github.com/3leaps/vepclient/pkg/tracker"
)

// Placeholder is shown while the board has no jobs.
const Placeholder = "(Submission status updates will appear here)"

type entry struct {
	id    string
	line  string
	snags []string
}

// Board collects presentation state and streams changes to an io.Writer.
// It is safe for concurrent use.
type Board struct {
	mu       sync.Mutex
	out      io.Writer
	entries  map[string]*entry
	order    []string
	notices  map[int]string
	failures []string
	messages map[controller.Area]string
	rows     []string
}

// New creates a board that streams changed lines to out. A nil out keeps
// the board silent; Render still works.
func New(out io.Writer) *Board {
	b := &Board{out: out}
	b.reset()
	return b
}

func (b *Board) reset() {
	b.entries = make(map[string]*entry)
	b.order = nil
	b.notices = make(map[int]string)
	b.failures = nil
	if b.messages == nil {
		b.messages = make(map[controller.Area]string)
	}
}

// ResetBoard drops every job entry and notice. Messages and queued rows are
// kept.
func (b *Board) ResetBoard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

// RenderStatus draws one job.
func (b *Board) RenderStatus(v tracker.View) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[v.JobID]
	if !ok {
		e = &entry{id: v.JobID}
		b.entries[v.JobID] = e
		b.order = append(b.order, v.JobID)
	}
	if line := v.Line(); line != e.line {
		e.line = line
		b.emit(line)
	}
	if snags := v.Snags(); len(snags) > 0 && e.snags == nil {
		e.snags = append([]string(nil), snags...)
		for _, s := range e.snags {
			b.emit("    " + s)
		}
	}
}

// Uploading shows the temporary notice for a draft being sent.
func (b *Board) Uploading(index int, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	text := name + ": uploading ..."
	if b.notices[index] == text {
		return
	}
	b.notices[index] = text
	b.emit(text)
}

// Finished clears a draft's notice and records its failure, if any.
func (b *Board) Finished(o submit.Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.notices, o.Index)
	if o.Err != nil {
		msg := o.Err.Error()
		b.failures = append(b.failures, msg)
		b.emit(msg)
	}
}

// Notify sets the message of an area. An empty text clears it.
func (b *Board) Notify(area controller.Area, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.messages[area] == text {
		return
	}
	if text == "" {
		delete(b.messages, area)
		return
	}
	b.messages[area] = text
	if area == controller.AreaSubmission {
		// Per-job failures are already streamed by Finished.
		return
	}
	b.emit(text)
}

// QueueRow records a summary row for a queued draft. It matches the
// draft.Queue OnEnqueue signature.
func (b *Board) QueueRow(index int, d draft.Draft) {
	b.mu.Lock()
	defer b.mu.Unlock()
	row := fmt.Sprintf("%d. %s  format=%s  genome=%s  filter=%s",
		index+1, d.DisplayName(), d.OutputFormat, d.RefGenome, oneLine(d.Filter))
	if index < len(b.rows) {
		b.rows[index] = row
		return
	}
	b.rows = append(b.rows, row)
}

// Rows returns the queued draft rows.
func (b *Board) Rows() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.rows...)
}

// Lines returns the job area: notices, then job lines with their warnings
// indented below, or the placeholder when empty.
func (b *Board) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.linesLocked()
}

func (b *Board) linesLocked() []string {
	var lines []string
	idx := make([]int, 0, len(b.notices))
	for i := range b.notices {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		lines = append(lines, b.notices[i])
	}
	for _, id := range b.order {
		e := b.entries[id]
		lines = append(lines, e.line)
		for _, s := range e.snags {
			lines = append(lines, "    "+s)
		}
	}
	lines = append(lines, b.failures...)
	if len(lines) == 0 {
		return []string{Placeholder}
	}
	return lines
}

// Message returns the current text of an area.
func (b *Board) Message(area controller.Area) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.messages[area]
}

// Render writes the whole board.
func (b *Board) Render(w io.Writer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var sb strings.Builder
	if len(b.rows) > 0 {
		sb.WriteString("Queued jobs:\n")
		for _, r := range b.rows {
			sb.WriteString("  " + r + "\n")
		}
	}
	for _, area := range []controller.Area{controller.AreaSession, controller.AreaEmail, controller.AreaStatus} {
		if msg := b.messages[area]; msg != "" {
			sb.WriteString(msg + "\n")
		}
	}
	for _, l := range b.linesLocked() {
		sb.WriteString(l + "\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (b *Board) emit(line string) {
	if b.out == nil {
		return
	}
	_, _ = fmt.Fprintln(b.out, line)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var (
	_ tracker.Renderer         = (*Board)(nil)
	_ submit.Observer          = (*Board)(nil)
	_ controller.Notifier      = (*Board)(nil)
	_ controller.BoardResetter = (*Board)(nil)
)
