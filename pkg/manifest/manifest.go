// Package manifest loads batch manifests: a file describing several jobs
// that are submitted together in one session.
//
// A manifest looks like:
//
//	version: "1.0"
//	email: someone@example.org
//	description: trio re-run
//	defaults:
//	  filter: "Consequence == missense_variant"
//	  format: vcf
//	  genome: GRCh38
//	jobs:
//	  - input: data/run1/*.vcf
//	  - input: s3://inputs/run2/sample.vcf
//	    genome: GRCh37
package manifest

import "strings"

// CurrentVersion is the only manifest version understood.
const CurrentVersion = "1.0"

// Manifest is a parsed batch manifest.
type Manifest struct {
	// Version is the manifest schema version. Empty means CurrentVersion.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Session reuses an existing session id. Empty starts a new session.
	Session string `json:"session,omitempty" yaml:"session,omitempty"`

	// Email receives the completion notification.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Defaults fill any attribute a job leaves empty.
	Defaults JobDefaults `json:"defaults,omitempty" yaml:"defaults,omitempty"`

	Jobs []Job `json:"jobs" yaml:"jobs"`
}

// JobDefaults are the attributes shared by every job unless overridden.
type JobDefaults struct {
	Filter string `json:"filter,omitempty" yaml:"filter,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	Genome string `json:"genome,omitempty" yaml:"genome,omitempty"`
}

// Job is one manifest entry. Input may be a glob that expands to several
// drafts sharing the other attributes.
type Job struct {
	Input  string `json:"input" yaml:"input"`
	Filter string `json:"filter,omitempty" yaml:"filter,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	Genome string `json:"genome,omitempty" yaml:"genome,omitempty"`
}

// ApplyDefaults fills empty job attributes from Defaults and sets the
// version.
func (m *Manifest) ApplyDefaults() {
	if strings.TrimSpace(m.Version) == "" {
		m.Version = CurrentVersion
	}
	for i := range m.Jobs {
		j := &m.Jobs[i]
		j.Input = strings.TrimSpace(j.Input)
		if strings.TrimSpace(j.Filter) == "" {
			j.Filter = m.Defaults.Filter
		}
		if strings.TrimSpace(j.Format) == "" {
			j.Format = m.Defaults.Format
		}
		if strings.TrimSpace(j.Genome) == "" {
			j.Genome = m.Defaults.Genome
		}
	}
}
