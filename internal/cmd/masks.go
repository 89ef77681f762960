package cmd

import (
	"github.com/spf13/cobra"

	"github.com/3leaps/vepclient/pkg/output"
)

var masksCmd = &cobra.Command{
	Use:   "masks",
	Short: "List and show predefined filters",
}

var masksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List predefined filter names",
	Args:  cobra.NoArgs,
	RunE:  runMasksList,
}

var masksShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print the filter text of a predefined filter",
	Long: `Print the filter text of a predefined filter. The text can be passed to
submit --filter, or the name to submit --mask.

Example:
  vepclient masks show rare-missense`,
	Args: cobra.ExactArgs(1),
	RunE: runMasksShow,
}

func init() {
	rootCmd.AddCommand(masksCmd)
	masksCmd.AddCommand(masksListCmd)
	masksCmd.AddCommand(masksShowCmd)
}

func runMasksList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	names, err := a.ctrl.LoadMasks(ctx)
	if err != nil {
		return a.fail(ctx, "Failed to list masks", err)
	}
	if a.writer != nil {
		a.check(a.writer.WriteCatalog(ctx, &output.CatalogRecord{Kind: "masks", Names: names}))
		return nil
	}
	for _, n := range names {
		a.printf("%s\n", n)
	}
	return nil
}

func runMasksShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := args[0]

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ctrl.ApplyMask(ctx, name); err != nil {
		return a.fail(ctx, "Failed to load mask", err)
	}
	body := a.ctrl.State().Filter
	if a.writer != nil {
		a.check(a.writer.WriteCatalog(ctx, &output.CatalogRecord{Kind: "mask", Names: []string{name}, Body: body}))
		return nil
	}
	a.printf("%s\n", body)
	return nil
}
