package manifest

import (
	"context"
	"fmt"

	"github.com/3leaps/vepclient/pkg/draft"
	"github.com/3leaps/vepclient/pkg/inputs"
)

// Expander turns a job's input pattern into concrete file refs.
type Expander interface {
	Expand(ctx context.Context, pattern string) ([]inputs.Ref, error)
}

// Drafts expands every job into drafts, in manifest order and then in
// expansion order.
func (m *Manifest) Drafts(ctx context.Context, x Expander) ([]draft.Draft, error) {
	var out []draft.Draft
	for i, j := range m.Jobs {
		refs, err := x.Expand(ctx, j.Input)
		if err != nil {
			return nil, fmt.Errorf("jobs[%d].input: %w", i, err)
		}
		for _, ref := range refs {
			d, err := draft.New(j.Filter, ref, j.Format, j.Genome)
			if err != nil {
				return nil, fmt.Errorf("jobs[%d]: %w", i, err)
			}
			out = append(out, d)
		}
	}
	return out, nil
}
