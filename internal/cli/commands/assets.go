package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metalake-labs/mdlh/internal/lineage"
	"github.com/metalake-labs/mdlh/pkg/meta"
)

// AssetsOptions holds options for the assets command.
type AssetsOptions struct {
	TypeName  string
	Connector string
	Limit     int
	Offset    int
}

// NewAssetsCommand creates the assets command.
func NewAssetsCommand() *cobra.Command {
	opts := &AssetsOptions{}

	cmd := &cobra.Command{
		Use:   "assets [guid]",
		Short: "List or inspect assets in the current snapshot",
		Example: `  # List assets
  mdlh assets --type Table --limit 20

  # Inspect one asset
  mdlh assets 9c3b... --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runGetAsset(cmd, args[0])
			}
			return runListAssets(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.TypeName, "type", "t", "", "Filter by entity type")
	cmd.Flags().StringVar(&opts.Connector, "connector", "", "Filter by connector name")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "Max rows to return")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Rows to skip")

	return cmd
}

func currentSnapshotID(cc *CommandContext) (string, error) {
	snap, err := cc.Store.CurrentSnapshot()
	if err != nil {
		return "", err
	}
	if snap == nil {
		return "", lineage.ErrNoSnapshot
	}
	return snap.ID, nil
}

func runListAssets(cmd *cobra.Command, opts *AssetsOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	snapID, err := currentSnapshotID(cc)
	if err != nil {
		return err
	}

	assets, err := cc.Store.ListAssets(snapID, meta.AssetFilter{
		TypeName:      opts.TypeName,
		ConnectorName: opts.Connector,
		Limit:         opts.Limit,
		Offset:        opts.Offset,
	})
	if err != nil {
		return err
	}

	if cc.outputFormat() == "json" {
		if assets == nil {
			assets = []meta.Asset{}
		}
		return renderJSON(cmd.OutOrStdout(), assets)
	}

	rows := make([][]any, 0, len(assets))
	for _, a := range assets {
		rows = append(rows, []any{
			a.GUID, a.TypeName, a.Name, a.ConnectorName, a.HasLineage,
		})
	}
	renderTable(cmd.OutOrStdout(),
		[]string{"guid", "type", "name", "connector", "lineage"}, rows)
	return nil
}

func runGetAsset(cmd *cobra.Command, guid string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	snapID, err := currentSnapshotID(cc)
	if err != nil {
		return err
	}

	asset, err := cc.Store.GetAsset(snapID, guid)
	if err != nil {
		return err
	}
	if asset == nil {
		return fmt.Errorf("asset not found: %s", guid)
	}

	return renderJSON(cmd.OutOrStdout(), asset)
}
