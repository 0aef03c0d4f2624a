// Package repair is the administrative utility for Iceberg tables whose
// storage metadata has gone stale in Snowflake: it discovers candidate
// tables by last-altered age, refreshes each one's metadata, and re-enables
// auto refresh. Failures are isolated per table so one bad table never
// aborts the batch.
package repair

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/metalake-labs/mdlh/pkg/meta"
)

// Querier is the slice of database/sql the repair service needs. Satisfied
// by *sql.DB, which lets tests drive the service with sqlmock.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Service runs staleness scans and repair batches against a Snowflake
// connection.
type Service struct {
	db     Querier
	logger *slog.Logger
}

// NewService creates a repair service over a connected database.
func NewService(db Querier, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// quoteIdent wraps an identifier in double quotes, escaping embedded quotes.
// Identifiers arrive from user selection and INFORMATION_SCHEMA rows, not
// from bind parameters, so they must be quoted before interpolation.
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// qualify joins database, schema, and table into a fully qualified quoted name.
func qualify(database, schema, table string) string {
	return quoteIdent(database) + "." + quoteIdent(schema) + "." + quoteIdent(table)
}

// ListSchemas returns the schema names of a database, excluding the
// INFORMATION_SCHEMA itself.
func (s *Service) ListSchemas(ctx context.Context, database string) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT SCHEMA_NAME FROM %s.INFORMATION_SCHEMA.SCHEMATA
		 WHERE SCHEMA_NAME <> 'INFORMATION_SCHEMA' ORDER BY SCHEMA_NAME`,
		quoteIdent(database),
	)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan schema name: %w", err)
		}
		schemas = append(schemas, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schemas: %w", err)
	}
	return schemas, nil
}

// FindStaleTables returns the tables in a schema that hold rows but whose
// metadata has not been altered within thresholdDays.
func (s *Service) FindStaleTables(ctx context.Context, database, schema string, thresholdDays int) ([]meta.StaleTable, error) {
	if thresholdDays <= 0 {
		return nil, fmt.Errorf("staleness threshold must be positive, got %d days", thresholdDays)
	}

	query := fmt.Sprintf(
		`SELECT TABLE_CATALOG, TABLE_SCHEMA, TABLE_NAME, LAST_ALTERED, ROW_COUNT
		 FROM %s.INFORMATION_SCHEMA.TABLES
		 WHERE TABLE_SCHEMA = ?
		   AND ROW_COUNT > 0
		   AND LAST_ALTERED < DATEADD(day, -?, CURRENT_TIMESTAMP())
		 ORDER BY LAST_ALTERED`,
		quoteIdent(database),
	)

	rows, err := s.db.QueryContext(ctx, query, schema, thresholdDays)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for stale tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	now := time.Now().UTC()
	var stale []meta.StaleTable
	for rows.Next() {
		var t meta.StaleTable
		if err := rows.Scan(&t.Database, &t.Schema, &t.Name, &t.LastAltered, &t.RowCount); err != nil {
			return nil, fmt.Errorf("failed to scan stale table: %w", err)
		}
		t.DaysStale = int(now.Sub(t.LastAltered).Hours() / 24)
		stale = append(stale, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale tables: %w", err)
	}

	s.logger.Info("staleness scan complete",
		"database", database, "schema", schema,
		"threshold_days", thresholdDays, "stale", len(stale))
	return stale, nil
}

// Repair refreshes each selected table's Iceberg metadata and re-enables
// auto refresh. The batch always yields one result per table; a failure is
// recorded and the loop continues with the next table.
func (s *Service) Repair(ctx context.Context, tables []meta.StaleTable) []meta.RepairResult {
	results := make([]meta.RepairResult, 0, len(tables))

	for _, t := range tables {
		name := qualify(t.Database, t.Schema, t.Name)
		if err := s.repairOne(ctx, name); err != nil {
			s.logger.Error("table repair failed", "table", name, "error", err)
			results = append(results, meta.RepairResult{
				Table:   name,
				Success: false,
				Message: err.Error(),
			})
			continue
		}
		s.logger.Info("table repaired", "table", name)
		results = append(results, meta.RepairResult{
			Table:   name,
			Success: true,
			Message: "metadata refreshed, auto refresh enabled",
		})
	}

	return results
}

func (s *Service) repairOne(ctx context.Context, qualified string) error {
	if _, err := s.db.ExecContext(ctx, "ALTER ICEBERG TABLE "+qualified+" REFRESH"); err != nil {
		return fmt.Errorf("refresh metadata: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "ALTER ICEBERG TABLE "+qualified+" SET AUTO_REFRESH = TRUE"); err != nil {
		return fmt.Errorf("enable auto refresh: %w", err)
	}
	return nil
}
