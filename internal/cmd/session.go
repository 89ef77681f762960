package cmd

import (
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Create or inspect sessions",
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Print a fresh session id",
	Long: `Generate a new session id. Sessions are saved by the portal only once
a job is submitted with them.

Example:
  vepclient session new`,
	Args: cobra.NoArgs,
	RunE: runSessionNew,
}

var sessionShowCmd = &cobra.Command{
	Use:     "show <session-id>",
	Aliases: []string{"load"},
	Short:   "Load a saved session and show its jobs",
	Long: `Load a saved session: its filter, output format and jobs, with each
job's current status.

Example:
  vepclient session show 0a1b2c3d`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionShow,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionNewCmd)
	sessionCmd.AddCommand(sessionShowCmd)
}

func runSessionNew(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.ctrl.Init(ctx, ""); err != nil {
		return a.fail(ctx, "Failed to create session", err)
	}
	a.reportSession(ctx, false)
	return nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	return showSession(cmd, args[0], false)
}
