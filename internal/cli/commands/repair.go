package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/metalake-labs/mdlh/internal/repair"
	"github.com/metalake-labs/mdlh/pkg/meta"
)

// RepairOptions holds options for the repair commands.
type RepairOptions struct {
	Database  string
	Schema    string
	Threshold int
}

// NewRepairCommand creates the repair command group.
func NewRepairCommand() *cobra.Command {
	opts := &RepairOptions{}

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Repair stale Iceberg tables in Snowflake",
		Long: `Discover Iceberg tables whose storage metadata has gone stale and repair
them by refreshing the metadata and re-enabling auto refresh.

The source connection must point at Snowflake.`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "database", "", "Target database (default: repair.database from config)")
	cmd.PersistentFlags().StringVar(&opts.Schema, "schema", "", "Target schema (default: repair.schema from config)")
	cmd.PersistentFlags().IntVar(&opts.Threshold, "threshold", 0, "Staleness threshold in days (default: repair.threshold_days from config)")

	cmd.AddCommand(newRepairStaleCommand(opts))
	cmd.AddCommand(newRepairRunCommand(opts))
	cmd.AddCommand(newRepairSchemasCommand(opts))

	return cmd
}

// resolve fills unset options from the repair config section.
func (o *RepairOptions) resolve(cc *CommandContext) error {
	if o.Database == "" {
		o.Database = cc.Cfg.Repair.Database
	}
	if o.Schema == "" {
		o.Schema = cc.Cfg.Repair.Schema
	}
	if o.Threshold <= 0 {
		o.Threshold = cc.Cfg.Repair.ThresholdDays
	}
	if o.Database == "" {
		return fmt.Errorf("no target database: set repair.database or pass --database")
	}
	return nil
}

// repairService connects the source and builds a repair service over it.
func repairService(ctx context.Context, cc *CommandContext) (*repair.Service, func(), error) {
	source, err := cc.connectSource(ctx)
	if err != nil {
		return nil, nil, err
	}
	if source.DialectName() != "snowflake" {
		_ = source.Close()
		return nil, nil, fmt.Errorf("repair requires a snowflake source, got %s", source.DialectName())
	}
	cleanup := func() { _ = source.Close() }
	return repair.NewService(source.DB(), cc.Logger), cleanup, nil
}

func newRepairStaleCommand(opts *RepairOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stale",
		Short: "List stale Iceberg tables",
		Example: `  # Tables in the configured schema older than the configured threshold
  mdlh repair stale

  # Custom namespace and threshold
  mdlh repair stale --database ANALYTICS --schema GOLD --threshold 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := opts.resolve(cc); err != nil {
				return err
			}

			svc, closeSource, err := repairService(cmd.Context(), cc)
			if err != nil {
				return err
			}
			defer closeSource()

			stale, err := svc.FindStaleTables(cmd.Context(), opts.Database, opts.Schema, opts.Threshold)
			if err != nil {
				return err
			}

			if cc.outputFormat() == "json" {
				if stale == nil {
					stale = []meta.StaleTable{}
				}
				return renderJSON(cmd.OutOrStdout(), stale)
			}

			rows := make([][]any, 0, len(stale))
			for _, t := range stale {
				rows = append(rows, []any{
					t.Database, t.Schema, t.Name, t.LastAltered, t.RowCount, t.DaysStale,
				})
			}
			renderTable(cmd.OutOrStdout(),
				[]string{"database", "schema", "table", "last altered", "rows", "days stale"}, rows)
			return nil
		},
	}
}

func newRepairRunCommand(opts *RepairOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [table...]",
		Short: "Repair stale Iceberg tables",
		Long: `Refresh the Iceberg metadata of the named tables (DATABASE.SCHEMA.TABLE,
or SCHEMA.TABLE within the target database) and re-enable auto refresh.
Without arguments, every stale table found by the scan is repaired.

Each table is repaired independently: a failure is reported and the batch
continues with the next table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := opts.resolve(cc); err != nil {
				return err
			}

			svc, closeSource, err := repairService(cmd.Context(), cc)
			if err != nil {
				return err
			}
			defer closeSource()

			var targets []meta.StaleTable
			if len(args) > 0 {
				targets, err = parseTableArgs(args, opts.Database, opts.Schema)
			} else {
				targets, err = svc.FindStaleTables(cmd.Context(), opts.Database, opts.Schema, opts.Threshold)
			}
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to repair")
				return nil
			}

			results := svc.Repair(cmd.Context(), targets)

			if cc.outputFormat() == "json" {
				return renderJSON(cmd.OutOrStdout(), results)
			}

			failed := 0
			rows := make([][]any, 0, len(results))
			for _, r := range results {
				if !r.Success {
					failed++
				}
				rows = append(rows, []any{r.Table, r.Success, r.Message})
			}
			renderTable(cmd.OutOrStdout(), []string{"table", "repaired", "message"}, rows)
			if failed > 0 {
				return fmt.Errorf("%d of %d tables failed to repair", failed, len(results))
			}
			return nil
		},
	}
}

func newRepairSchemasCommand(opts *RepairOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List schemas in the target database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := opts.resolve(cc); err != nil {
				return err
			}

			svc, closeSource, err := repairService(cmd.Context(), cc)
			if err != nil {
				return err
			}
			defer closeSource()

			schemas, err := svc.ListSchemas(cmd.Context(), opts.Database)
			if err != nil {
				return err
			}
			for _, s := range schemas {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

// parseTableArgs converts table name arguments into repair targets.
func parseTableArgs(args []string, defaultDB, defaultSchema string) ([]meta.StaleTable, error) {
	targets := make([]meta.StaleTable, 0, len(args))
	for _, arg := range args {
		parts := strings.Split(arg, ".")
		switch len(parts) {
		case 3:
			targets = append(targets, meta.StaleTable{
				Database: parts[0], Schema: parts[1], Name: parts[2],
			})
		case 2:
			targets = append(targets, meta.StaleTable{
				Database: defaultDB, Schema: parts[0], Name: parts[1],
			})
		case 1:
			if defaultSchema == "" {
				return nil, fmt.Errorf("table %q needs a schema: pass --schema or qualify the name", arg)
			}
			targets = append(targets, meta.StaleTable{
				Database: defaultDB, Schema: defaultSchema, Name: parts[0],
			})
		default:
			return nil, fmt.Errorf("invalid table name %q (want [db.]schema.table)", arg)
		}
	}
	return targets, nil
}
