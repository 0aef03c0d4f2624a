package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metalake-labs/mdlh/internal/views"
)

// NewViewsCommand creates the views command.
func NewViewsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "views [name]",
		Short: "List gold projections or render one",
		Long: `Without an argument, list the available gold projections. With a name,
render that projection over the current snapshot.`,
		Example: `  # List projections
  mdlh views

  # Render the tag projection
  mdlh views TAGS

  # As JSON
  mdlh views GLOSSARY_DETAILS --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, name := range views.Names() {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := views.NewService(cc.Store, cc.Logger).Query(args[0])
			if err != nil {
				return err
			}

			if cc.outputFormat() == "json" {
				return renderJSON(cmd.OutOrStdout(), result)
			}
			renderTable(cmd.OutOrStdout(), result.Columns, result.Rows)
			return nil
		},
	}
}
