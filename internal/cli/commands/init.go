package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/metalake-labs/mdlh/internal/config"
)

// scaffold mirrors the config file layout for `mdlh init`.
type scaffold struct {
	StatePath string          `yaml:"state_path"`
	Source    scaffoldSource  `yaml:"source"`
	Refresh   scaffoldRefresh `yaml:"refresh"`
	Repair    scaffoldRepair  `yaml:"repair"`
	Server    scaffoldServer  `yaml:"server"`
}

type scaffoldSource struct {
	Type      string `yaml:"type"`
	Path      string `yaml:"path,omitempty"`
	Account   string `yaml:"account,omitempty"`
	Database  string `yaml:"database,omitempty"`
	Schema    string `yaml:"schema,omitempty"`
	Warehouse string `yaml:"warehouse,omitempty"`
	Role      string `yaml:"role,omitempty"`
	User      string `yaml:"user,omitempty"`
	Password  string `yaml:"password,omitempty"`
}

type scaffoldRefresh struct {
	Interval      string `yaml:"interval"`
	MaxDepth      int    `yaml:"max_depth"`
	KeepSnapshots int    `yaml:"keep_snapshots"`
}

type scaffoldRepair struct {
	Database      string `yaml:"database,omitempty"`
	Schema        string `yaml:"schema,omitempty"`
	ThresholdDays int    `yaml:"threshold_days"`
}

type scaffoldServer struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var snowflake bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize an mdlh configuration",
		Long: `Create an mdlh.yaml configuration file with sensible defaults.

By default the source is a local DuckDB file, useful for development
against warehouse extracts. Use --snowflake for a Snowflake source
scaffold with credential placeholders that expand from the environment.`,
		Example: `  # Initialize in the current directory
  mdlh init

  # Snowflake source scaffold
  mdlh init --snowflake

  # Overwrite an existing config
  mdlh init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
				if err := os.MkdirAll(dir, 0750); err != nil {
					return fmt.Errorf("failed to create directory %s: %w", dir, err)
				}
			}

			configPath := filepath.Join(dir, "mdlh.yaml")
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("mdlh.yaml already exists. Use --force to overwrite")
			}

			cfg := defaultScaffold(snowflake)
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}

			if err := os.WriteFile(configPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", configPath, err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&snowflake, "snowflake", false, "Scaffold a Snowflake source")

	return cmd
}

func defaultScaffold(snowflake bool) scaffold {
	s := scaffold{
		StatePath: config.DefaultStateFile,
		Source: scaffoldSource{
			Type: "duckdb",
			Path: "metadata.duckdb",
		},
		Refresh: scaffoldRefresh{
			Interval:      "1h",
			MaxDepth:      config.DefaultMaxDepth,
			KeepSnapshots: config.DefaultKeepSnapshots,
		},
		Repair: scaffoldRepair{
			ThresholdDays: config.DefaultThresholdDays,
		},
		Server: scaffoldServer{
			Host: config.DefaultServerHost,
			Port: config.DefaultServerPort,
		},
	}

	if snowflake {
		s.Source = scaffoldSource{
			Type:      "snowflake",
			Account:   "myorg-myaccount",
			Database:  "ANALYTICS",
			Schema:    "BRONZE",
			Warehouse: "COMPUTE_WH",
			Role:      "SYSADMIN",
			User:      "${SNOWFLAKE_USER}",
			Password:  "${SNOWFLAKE_PASSWORD}",
		}
		s.Repair.Database = "ANALYTICS"
		s.Repair.Schema = "GOLD"
	}

	return s
}
