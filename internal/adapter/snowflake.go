package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/snowflakedb/gosnowflake" // snowflake driver
)

func init() {
	Register("snowflake", func() Adapter { return NewSnowflakeAdapter() })
}

// SnowflakeAdapter implements the Adapter interface for Snowflake. It is
// used both as a metadata source and as the target for Iceberg table repair.
type SnowflakeAdapter struct {
	db     *sql.DB
	config Config
}

// NewSnowflakeAdapter creates a new Snowflake adapter instance.
func NewSnowflakeAdapter() *SnowflakeAdapter {
	return &SnowflakeAdapter{}
}

// buildSnowflakeDSN constructs a gosnowflake connection string from config.
func buildSnowflakeDSN(cfg Config) string {
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s",
		cfg.Username, cfg.Password, cfg.Account, cfg.Database, cfg.Schema)

	sep := "?"
	if cfg.Warehouse != "" {
		dsn += sep + "warehouse=" + cfg.Warehouse
		sep = "&"
	}
	if cfg.Role != "" {
		dsn += sep + "role=" + cfg.Role
	}
	return dsn
}

// Connect establishes a connection to Snowflake.
func (a *SnowflakeAdapter) Connect(ctx context.Context, cfg Config) error {
	dsn := buildSnowflakeDSN(cfg)

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return fmt.Errorf("failed to open snowflake connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping snowflake: %w", err)
	}

	a.db = db
	a.config = cfg

	return nil
}

// Close closes the Snowflake connection.
func (a *SnowflakeAdapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (a *SnowflakeAdapter) Exec(ctx context.Context, sqlStr string) error {
	if a.db == nil {
		return fmt.Errorf("database connection not established")
	}

	_, err := a.db.ExecContext(ctx, sqlStr)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}

	return nil
}

// Query executes a SQL statement that returns rows.
func (a *SnowflakeAdapter) Query(ctx context.Context, sqlStr string) (*Rows, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := a.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	return &Rows{Rows: rows}, nil
}

// DB exposes the underlying connection.
func (a *SnowflakeAdapter) DB() *sql.DB {
	return a.db
}

// DialectName returns "snowflake".
func (a *SnowflakeAdapter) DialectName() string {
	return "snowflake"
}

// Ensure SnowflakeAdapter implements Adapter interface
var _ Adapter = (*SnowflakeAdapter)(nil)
