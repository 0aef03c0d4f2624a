package commands

import (
	"github.com/spf13/cobra"

	"github.com/metalake-labs/mdlh/internal/lineage"
	"github.com/metalake-labs/mdlh/pkg/meta"
)

// LineageOptions holds options for the lineage command.
type LineageOptions struct {
	Direction string
	Depth     int
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	opts := &LineageOptions{}

	cmd := &cobra.Command{
		Use:   "lineage <guid>",
		Short: "Show lineage for an asset",
		Long: `Walk the resolved edge graph from a start asset and print every reachable
asset with its hop distance. An asset reachable through multiple paths is
reported once per direction, at its minimum level.`,
		Example: `  # Full lineage, both directions
  mdlh lineage 9c3b...

  # Only upstream producers, two hops deep
  mdlh lineage 9c3b... --direction upstream --depth 2

  # As JSON
  mdlh lineage 9c3b... --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Direction, "direction", "d", "", "Traversal direction (upstream|downstream, default both)")
	cmd.Flags().IntVar(&opts.Depth, "depth", 0, "Max traversal depth (0 = configured default)")

	return cmd
}

func runLineage(cmd *cobra.Command, guid string, opts *LineageOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	depth := opts.Depth
	if depth <= 0 {
		depth = cc.Cfg.Refresh.MaxDepth
	}

	svc := lineage.NewService(cc.Store, cc.Logger)

	var hops []meta.LineageHop
	if opts.Direction == "" {
		hops, err = svc.Full(guid, depth)
	} else {
		hops, err = svc.Lineage(guid, meta.Direction(opts.Direction), depth)
	}
	if err != nil {
		return err
	}

	if cc.outputFormat() == "json" {
		if hops == nil {
			hops = []meta.LineageHop{}
		}
		return renderJSON(cmd.OutOrStdout(), hops)
	}

	rows := make([][]any, 0, len(hops))
	for _, h := range hops {
		rows = append(rows, []any{
			string(h.Direction), h.Level, h.RelatedGUID, h.RelatedName, h.RelatedType,
		})
	}
	renderTable(cmd.OutOrStdout(),
		[]string{"direction", "level", "guid", "name", "type"}, rows)
	return nil
}
