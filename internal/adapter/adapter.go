// Package adapter provides database adapter interfaces and implementations
// for reading metadata source tables and issuing maintenance statements.
package adapter

import (
	"context"
	"database/sql"
)

// Config holds the configuration for connecting to a metadata source.
type Config struct {
	// Type specifies the source type (e.g., "duckdb", "postgres", "snowflake")
	Type string

	// Path is the file path for file-based databases (e.g., DuckDB)
	// Use ":memory:" for in-memory databases
	Path string

	// Host is the hostname for network-based databases
	Host string

	// Port is the port number for network-based databases
	Port int

	// Account is the account identifier for Snowflake
	Account string

	// Database is the database name
	Database string

	// Schema is the default schema to use
	Schema string

	// Warehouse is the compute warehouse for Snowflake
	Warehouse string

	// Role is the session role for Snowflake
	Role string

	// Username for authentication
	Username string

	// Password for authentication
	Password string

	// Options contains additional driver-specific options
	Options map[string]string
}

// Rows wraps sql.Rows to provide a consistent interface across adapters.
type Rows struct {
	*sql.Rows
}

// Adapter defines the interface that all source adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the source using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows (e.g., ALTER, SET).
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// DB exposes the underlying connection for callers that need
	// parameterized queries against the source.
	DB() *sql.DB

	// DialectName returns the SQL dialect name for this adapter
	// (e.g., "duckdb", "postgres", "snowflake").
	DialectName() string
}
