package commands

import (
	"github.com/spf13/cobra"
)

// SnapshotsOptions holds options for the snapshots command.
type SnapshotsOptions struct {
	Runs  bool
	Limit int
}

// NewSnapshotsCommand creates the snapshots command.
func NewSnapshotsCommand() *cobra.Command {
	opts := &SnapshotsOptions{}

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List refresh snapshots and runs",
		Example: `  # List snapshots, newest first
  mdlh snapshots

  # List refresh runs instead
  mdlh snapshots --runs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if opts.Runs {
				return listRuns(cmd, cc, opts.Limit)
			}
			return listSnapshots(cmd, cc)
		},
	}

	cmd.Flags().BoolVar(&opts.Runs, "runs", false, "List refresh runs instead of snapshots")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Max runs to return")

	return cmd
}

func listSnapshots(cmd *cobra.Command, cc *CommandContext) error {
	snapshots, err := cc.Store.ListSnapshots()
	if err != nil {
		return err
	}

	if cc.outputFormat() == "json" {
		return renderJSON(cmd.OutOrStdout(), snapshots)
	}

	rows := make([][]any, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, []any{
			s.ID, string(s.Status), s.CreatedAt, s.PromotedAt, s.AssetCount, s.EdgeCount,
		})
	}
	renderTable(cmd.OutOrStdout(),
		[]string{"id", "status", "created", "promoted", "assets", "edges"}, rows)
	return nil
}

func listRuns(cmd *cobra.Command, cc *CommandContext, limit int) error {
	runs, err := cc.Store.ListRuns(limit)
	if err != nil {
		return err
	}

	if cc.outputFormat() == "json" {
		return renderJSON(cmd.OutOrStdout(), runs)
	}

	rows := make([][]any, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []any{
			r.ID, r.SnapshotID, string(r.Status), r.StartedAt, r.CompletedAt, r.Error,
		})
	}
	renderTable(cmd.OutOrStdout(),
		[]string{"id", "snapshot", "status", "started", "completed", "error"}, rows)
	return nil
}
