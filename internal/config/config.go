// Package config defines the application configuration and its loading
// rules. Precedence (highest to lowest): flags > environment variables >
// config file > defaults.
package config

import (
	"time"

	"github.com/metalake-labs/mdlh/internal/adapter"
)

// Defaults applied before any file, env, or flag layer.
const (
	DefaultStateFile     = "mdlh.db"
	DefaultOutput        = "table"
	DefaultSourceType    = "duckdb"
	DefaultInterval      = time.Hour
	DefaultMaxDepth      = 5
	DefaultKeepSnapshots = 3
	DefaultThresholdDays = 7
	DefaultServerHost    = "127.0.0.1"
	DefaultServerPort    = 8080
)

// SourceConfig describes the metadata source warehouse.
type SourceConfig struct {
	Type      string            `koanf:"type"`
	Path      string            `koanf:"path"`
	Host      string            `koanf:"host"`
	Port      int               `koanf:"port"`
	Account   string            `koanf:"account"`
	Database  string            `koanf:"database"`
	Schema    string            `koanf:"schema"`
	Warehouse string            `koanf:"warehouse"`
	Role      string            `koanf:"role"`
	User      string            `koanf:"user"`
	Password  string            `koanf:"password"`
	Options   map[string]string `koanf:"options"`

	// EntityTables / EdgeTables override the built-in source table sets.
	EntityTables []string `koanf:"entity_tables"`
	EdgeTables   []string `koanf:"edge_tables"`
}

// AdapterConfig converts the source section into an adapter connection config.
func (s SourceConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:      s.Type,
		Path:      s.Path,
		Host:      s.Host,
		Port:      s.Port,
		Account:   s.Account,
		Database:  s.Database,
		Schema:    s.Schema,
		Warehouse: s.Warehouse,
		Role:      s.Role,
		Username:  s.User,
		Password:  s.Password,
		Options:   s.Options,
	}
}

// RefreshConfig controls the refresh pipeline.
type RefreshConfig struct {
	// Interval between periodic refresh cycles under `mdlh serve`.
	Interval time.Duration `koanf:"interval"`
	// MaxDepth is the traversal depth cap for lineage queries.
	MaxDepth int `koanf:"max_depth"`
	// KeepSnapshots is how many retired snapshots survive pruning.
	KeepSnapshots int `koanf:"keep_snapshots"`
}

// RepairConfig controls the Iceberg repair utility.
type RepairConfig struct {
	Database      string `koanf:"database"`
	Schema        string `koanf:"schema"`
	ThresholdDays int    `koanf:"threshold_days"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// Config is the root configuration.
type Config struct {
	StatePath string `koanf:"state_path"`
	Verbose   bool   `koanf:"verbose"`
	Output    string `koanf:"output"`

	Source  SourceConfig  `koanf:"source"`
	Refresh RefreshConfig `koanf:"refresh"`
	Repair  RepairConfig  `koanf:"repair"`
	Server  ServerConfig  `koanf:"server"`
}
