package draft

import "sync"

// Queue holds drafts in the order they were saved.
//
// Each position is one composite Draft, so the per-attribute views returned
// by Columns always share a length. Queue is safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	drafts []Draft

	// OnEnqueue, if set, is called after each Enqueue with the new index.
	// It runs outside the queue lock.
	OnEnqueue func(index int, d Draft)
}

// Enqueue appends d and returns its 0-based index.
func (q *Queue) Enqueue(d Draft) int {
	q.mu.Lock()
	q.drafts = append(q.drafts, d)
	idx := len(q.drafts) - 1
	cb := q.OnEnqueue
	q.mu.Unlock()

	if cb != nil {
		cb(idx, d)
	}
	return idx
}

// Len returns the number of queued drafts.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.drafts)
}

// Get returns the draft at index i.
func (q *Queue) Get(i int) (Draft, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i < 0 || i >= len(q.drafts) {
		return Draft{}, false
	}
	return q.drafts[i], true
}

// Drafts returns a copy of the queued drafts.
func (q *Queue) Drafts() []Draft {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Draft, len(q.drafts))
	copy(out, q.drafts)
	return out
}

// Take returns the queued drafts and empties the queue in one step, so each
// draft is consumed by exactly one batch.
func (q *Queue) Take() []Draft {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.drafts
	q.drafts = nil
	return out
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.drafts = nil
	q.mu.Unlock()
}

// Columns is the per-attribute view of a queue.
type Columns struct {
	Filters    []string
	InputFiles []InputRef
	Formats    []string
	Genomes    []string
}

// Columns returns the four attribute sequences. Index i in every sequence
// describes the i-th queued draft.
func (q *Queue) Columns() Columns {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.drafts)
	c := Columns{
		Filters:    make([]string, 0, n),
		InputFiles: make([]InputRef, 0, n),
		Formats:    make([]string, 0, n),
		Genomes:    make([]string, 0, n),
	}
	for _, d := range q.drafts {
		c.Filters = append(c.Filters, d.Filter)
		c.InputFiles = append(c.InputFiles, d.InputFile)
		c.Formats = append(c.Formats, d.OutputFormat)
		c.Genomes = append(c.Genomes, d.RefGenome)
	}
	return c
}
