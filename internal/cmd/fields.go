package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/3leaps/vepclient/pkg/draft"
	"github.com/3leaps/vepclient/pkg/output"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List filterable fields and filter operators",
	Long: `List the column names the portal accepts in filter expressions, and the
comparison operators.

Example:
  vepclient fields`,
	Args: cobra.NoArgs,
	RunE: runFields,
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}

func runFields(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	fields, err := a.ctrl.LoadSchema(ctx)
	if err != nil {
		return a.fail(ctx, "Failed to load fields", err)
	}

	if a.writer != nil {
		a.check(a.writer.WriteCatalog(ctx, &output.CatalogRecord{Kind: "fields", Names: fields}))
		a.check(a.writer.WriteCatalog(ctx, &output.CatalogRecord{Kind: "operators", Names: draft.Operators()}))
		return nil
	}

	a.printf("Fields:\n")
	for _, f := range fields {
		a.printf("  %s\n", f)
	}
	a.printf("String operators:    %s\n", strings.Join(draft.StringOperators, " "))
	a.printf("Numerical operators: %s\n", strings.Join(draft.NumericalOperators, " "))
	return nil
}
