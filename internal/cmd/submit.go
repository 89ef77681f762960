package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/3leaps/vepclient/internal/errors"
	"github.com/3leaps/vepclient/pkg/draft"
	"github.com/3leaps/vepclient/pkg/manifest"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Queue input files as jobs and submit them",
	Long: `Queue one job per input file and submit the batch to the portal.

Inputs may be local paths, file:// URIs or s3:// URIs, and may contain
globs (data/**/*.vcf). Every job in the batch shares filter, output format
and reference genome unless a manifest gives per-job values.

Examples:
  vepclient submit --input a.vcf --input b.vcf --filter "AF < 0.01" --format vcf --genome GRCh38 --email me@example.org
  vepclient submit --input "s3://inputs/run7/*.vcf" --filter "IMPACT == HIGH" --format tab --genome GRCh37 --email me@example.org --watch
  vepclient submit --manifest batch.yaml --session 0a1b2c3d`,
	Args: cobra.NoArgs,
	RunE: runSubmit,
}

var (
	submitInputs      []string
	submitFilter      string
	submitMask        string
	submitFormat      string
	submitGenome      string
	submitEmail       string
	submitDescription string
	submitSession     string
	submitManifest    string
	submitWatch       bool
)

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringArrayVarP(&submitInputs, "input", "i", nil, "Input file, URI or glob (repeatable)")
	submitCmd.Flags().StringVarP(&submitFilter, "filter", "f", "", "Filter expression applied to every job")
	submitCmd.Flags().StringVar(&submitMask, "mask", "", "Use a predefined filter by name")
	submitCmd.Flags().StringVar(&submitFormat, "format", "", "Output format")
	submitCmd.Flags().StringVar(&submitGenome, "genome", "", "Reference genome")
	submitCmd.Flags().StringVarP(&submitEmail, "email", "e", "", "Notification email")
	submitCmd.Flags().StringVarP(&submitDescription, "description", "d", "", "Session description")
	submitCmd.Flags().StringVarP(&submitSession, "session", "s", "", "Add jobs to an existing session")
	submitCmd.Flags().StringVarP(&submitManifest, "manifest", "m", "", "Batch manifest (YAML or JSON)")
	submitCmd.Flags().BoolVarP(&submitWatch, "watch", "w", false, "Follow job status until every job completes")
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var m *manifest.Manifest
	if submitManifest != "" {
		if len(submitInputs) > 0 {
			return invalidArgument("Use either --manifest or --input", nil)
		}
		var err error
		if m, err = manifest.Load(submitManifest); err != nil {
			return invalidArgument("Invalid manifest", err)
		}
	} else if len(submitInputs) == 0 {
		return invalidArgument("Nothing to submit: pass --input or --manifest", nil)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	sessionID, email, description := submitSession, submitEmail, submitDescription
	if m != nil {
		sessionID = firstNonEmpty(sessionID, m.Session)
		email = firstNonEmpty(email, m.Email)
		description = firstNonEmpty(description, m.Description)
	}

	query, err := sessionQuery(sessionID)
	if err != nil {
		return a.fail(ctx, "Invalid session", err)
	}
	restored, err := a.ctrl.Init(ctx, query)
	if err != nil {
		return a.fail(ctx, "Failed to load session", err)
	}
	a.reportSession(ctx, restored)

	a.ctrl.SetEmail(email)
	a.ctrl.SetDescription(description)

	if m != nil {
		err = queueManifest(ctx, a, m)
	} else {
		err = queueInputs(ctx, a)
	}
	if err != nil {
		return a.fail(ctx, "Failed to queue jobs", err)
	}

	if a.board != nil {
		a.printf("Queued jobs:\n")
		for _, row := range a.board.Rows() {
			a.printf("  %s\n", row)
		}
	}

	outcomes, err := a.ctrl.SubmitAll(ctx)
	if err != nil {
		return a.fail(ctx, "Submission rejected", err)
	}

	if submitWatch && outcomes.Succeeded() > 0 {
		if err := a.watch(ctx, true); err != nil {
			return a.fail(ctx, "Status tracking stopped", err)
		}
	}
	a.summary(ctx, outcomes)

	sent := outcomes.Succeeded()
	a.logger.Debug("Submit finished",
		zap.String("session", a.sessionID()),
		zap.Int("submitted", sent),
		zap.Int("failed", len(outcomes)-sent))

	switch {
	case sent == 0:
		a.logger.Error("No job was accepted", zap.Int("failed", len(outcomes)))
		return errwrap.NewExitError(errwrap.ExitExternalServiceUnavailable, "No job was accepted", outcomes.Err())
	case sent < len(outcomes):
		msg := fmt.Sprintf("%d of %d jobs failed", len(outcomes)-sent, len(outcomes))
		a.logger.Warn(msg)
		return errwrap.NewExitError(errwrap.ExitPartialFailure, msg, outcomes.Err())
	}
	return nil
}

// queueInputs saves one draft per expanded --input with the shared flags.
func queueInputs(ctx context.Context, a *app) error {
	if submitMask != "" {
		if err := a.ctrl.ApplyMask(ctx, submitMask); err != nil {
			return err
		}
	}
	if submitFilter != "" {
		a.ctrl.SetFilter(submitFilter)
	}
	if submitFormat != "" {
		a.ctrl.SetFormat(submitFormat)
	}
	if submitGenome != "" {
		a.ctrl.SetGenome(submitGenome)
	}

	for _, pattern := range submitInputs {
		refs, err := a.resolver.Expand(ctx, pattern)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			if _, err := a.ctrl.SaveJob(ref); err != nil {
				return err
			}
		}
	}
	return nil
}

// queueManifest saves every manifest draft with its own attributes.
func queueManifest(ctx context.Context, a *app, m *manifest.Manifest) error {
	drafts, err := m.Drafts(ctx, a.resolver)
	if err != nil {
		return err
	}
	for _, d := range drafts {
		if err := saveDraft(a, d); err != nil {
			return err
		}
	}
	return nil
}

func saveDraft(a *app, d draft.Draft) error {
	a.ctrl.SetFilter(d.Filter)
	a.ctrl.SetFormat(d.OutputFormat)
	a.ctrl.SetGenome(d.RefGenome)
	_, err := a.ctrl.SaveJob(d.InputFile)
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
