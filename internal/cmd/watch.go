package cmd

import (
	"github.com/spf13/cobra"

	"github.com/3leaps/vepclient/pkg/submit"
)

var watchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Follow every job of a session until it completes",
	Long: `Load a saved session and poll its jobs until none is pending.

Example:
  vepclient watch 0a1b2c3d`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	return showSession(cmd, args[0], true)
}

// showSession loads a session, reports it and polls its jobs once or until
// idle.
func showSession(cmd *cobra.Command, id string, follow bool) error {
	ctx := cmd.Context()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ctrl.LoadSession(ctx, id); err != nil {
		return a.fail(ctx, "Failed to load session", err)
	}
	a.reportSession(ctx, true)

	if err := a.watch(ctx, follow); err != nil {
		return a.fail(ctx, "Failed to fetch status", err)
	}
	a.summary(ctx, submit.Outcomes{})
	return nil
}
