package cmd

import (
	"github.com/spf13/cobra"

	"github.com/3leaps/vepclient/pkg/submit"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>...",
	Short: "Show the status of jobs",
	Long: `Fetch the current status of one or more jobs by id.

Examples:
  vepclient status job-41 job-42
  vepclient status job-42 --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStatus,
}

var statusWatch bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Poll until every job completes")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	for _, id := range args {
		a.tracker.RegisterJob(id, id)
	}
	if err := a.watch(ctx, statusWatch); err != nil {
		return a.fail(ctx, "Failed to fetch status", err)
	}
	a.summary(ctx, submit.Outcomes{})
	return nil
}
