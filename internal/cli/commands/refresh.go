package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh cycle",
		Long: `Extract assets and process edges from the configured source, resolve the
lineage relation, and promote the result as the new current snapshot.

The swap is atomic: until promotion succeeds, readers keep seeing the
previous snapshot, and a failed cycle leaves it untouched.`,
		Example: `  # Refresh from the source configured in mdlh.yaml
  mdlh refresh

  # Refresh into an alternate state database
  mdlh refresh --state /var/lib/mdlh/state.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			source, err := cc.connectSource(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = source.Close() }()

			snap, err := cc.newRunner(source).Run(cmd.Context())
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(),
				"Snapshot %s promoted: %d assets, %d edges\n",
				snap.ID, snap.AssetCount, snap.EdgeCount)
			return nil
		},
	}
}
