package tracker

import (
	"fmt"

	"github.com/3leaps/vepclient/pkg/portal"
)

// View is everything a renderer needs to draw one job entry. Rendering the
// same View twice must produce the same presentation.
type View struct {
	JobID string
	Name  string

	// Status is nil until the first status response arrives.
	Status *portal.Status

	// Pending reports whether the job is still polled.
	Pending bool

	// DownloadURL is set only when the job succeeded.
	DownloadURL string
}

// Line is the single-line summary of a job, e.g.
// "sample.vcf: Done (download: http://.../results/abc.tsv) One error".
func (v View) Line() string {
	if v.Status == nil {
		return fmt.Sprintf("Submitted %s, waiting for result.", v.Name)
	}
	line := v.Name + ": " + v.Status.Message
	if v.DownloadURL != "" {
		line += " (download: " + v.DownloadURL + ")"
	}
	if n := len(v.Status.SnagMessages); n > 0 {
		line += " " + SnagSummary(n)
	}
	return line
}

// Snags returns the job's warning messages, if any.
func (v View) Snags() []string {
	if v.Status == nil {
		return nil
	}
	return v.Status.SnagMessages
}

// SnagSummary phrases a warning count for the status line.
func SnagSummary(n int) string {
	switch n {
	case 0:
		return "No errors"
	case 1:
		return "One error"
	default:
		return fmt.Sprintf("%d errors", n)
	}
}
