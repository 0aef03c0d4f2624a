// Package refresh implements the periodic metadata refresh pipeline: extract
// assets and raw process edges from a source warehouse, aggregate and resolve
// them, and persist the result as a new immutable snapshot that is promoted
// atomically.
package refresh

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/metalake-labs/mdlh/internal/adapter"
	"github.com/metalake-labs/mdlh/pkg/meta"
)

// DefaultEntityTables are the per-entity-type source tables read when the
// config does not name its own set. The "_entity" suffix is the source
// warehouse convention for registry extracts.
var DefaultEntityTables = []string{
	"table_entity",
	"view_entity",
	"column_entity",
	"schema_entity",
	"database_entity",
	"atlasglossaryterm_entity",
	"dashboard_entity",
}

// DefaultEdgeTables are the per-process-type edge sources unioned into the
// lineage relation.
var DefaultEdgeTables = []string{
	"process_entity",
	"dbtprocess_entity",
	"columnprocess_entity",
	"biprocess_entity",
}

// Extractor reads the asset registry and raw process edges from a source
// warehouse. Entity tables share one column contract (see assetQuery);
// edge tables expose (process_guid, input_guid, output_guid) with nullable
// endpoints.
type Extractor struct {
	source adapter.Adapter
	logger *slog.Logger
}

// NewExtractor creates an extractor over a connected source adapter.
func NewExtractor(source adapter.Adapter, logger *slog.Logger) *Extractor {
	return &Extractor{source: source, logger: logger}
}

func assetQuery(table string) string {
	return fmt.Sprintf(`SELECT guid, type_name, name, qualified_name, description,
		status, certificate_status, connector_name, created_by, updated_by,
		created_at, updated_at, owner_users, term_guids, tag_names,
		custom_metadata
	FROM %s`, table)
}

func edgeQuery(table string) string {
	return fmt.Sprintf(`SELECT process_guid, input_guid, output_guid FROM %s`, table)
}

// parseList decodes a list-valued source column. Warehouses export these as
// JSON arrays; a plain comma-separated string is accepted as a fallback.
func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var items []string
		if err := json.Unmarshal([]byte(raw), &items); err == nil {
			return items
		}
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	if len(items) == 0 {
		return nil
	}
	return items
}

// ExtractAssets reads all entity tables in parallel and merges their rows.
// Each table holds a disjoint entity type, so the merge is a plain append.
func (e *Extractor) ExtractAssets(ctx context.Context, tables []string) ([]meta.Asset, error) {
	if len(tables) == 0 {
		tables = DefaultEntityTables
	}

	var (
		mu     sync.Mutex
		assets []meta.Asset
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, table := range tables {
		g.Go(func() error {
			rows, err := e.extractEntityTable(gctx, table)
			if err != nil {
				return fmt.Errorf("entity table %s: %w", table, err)
			}
			e.logger.Debug("extracted entity table", "table", table, "rows", len(rows))

			mu.Lock()
			assets = append(assets, rows...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return assets, nil
}

func (e *Extractor) extractEntityTable(ctx context.Context, table string) ([]meta.Asset, error) {
	rows, err := e.source.Query(ctx, assetQuery(table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var assets []meta.Asset
	for rows.Next() {
		var (
			a                    meta.Asset
			guid                 sql.NullString
			typeName, name       sql.NullString
			qualifiedName        sql.NullString
			description, status  sql.NullString
			certificate          sql.NullString
			connector            sql.NullString
			createdBy, updatedBy sql.NullString
			createdAt, updatedAt sql.NullTime
			owners, terms, tags  sql.NullString
			customMetadata       sql.NullString
		)
		if err := rows.Scan(
			&guid, &typeName, &name, &qualifiedName, &description,
			&status, &certificate, &connector, &createdBy, &updatedBy,
			&createdAt, &updatedAt, &owners, &terms, &tags,
			&customMetadata,
		); err != nil {
			return nil, fmt.Errorf("failed to scan asset row: %w", err)
		}

		// A registry row without a guid cannot be referenced by any edge
		if !guid.Valid || guid.String == "" {
			continue
		}

		a.GUID = guid.String
		a.TypeName = typeName.String
		a.Name = name.String
		a.QualifiedName = qualifiedName.String
		a.Description = description.String
		a.Status = status.String
		a.CertificateStatus = certificate.String
		a.ConnectorName = connector.String
		a.CreatedBy = createdBy.String
		a.UpdatedBy = updatedBy.String
		if createdAt.Valid {
			a.CreatedAt = createdAt.Time.UTC()
		}
		if updatedAt.Valid {
			a.UpdatedAt = updatedAt.Time.UTC()
		}
		a.OwnerUsers = parseList(owners.String)
		a.TermGUIDs = parseList(terms.String)
		a.TagNames = parseList(tags.String)
		a.CustomMetadata = customMetadata.String

		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset rows: %w", err)
	}
	return assets, nil
}

// ExtractRawEdges reads all process edge tables in parallel. Rows keep their
// source grouping so the aggregator can apply set-union semantics.
func (e *Extractor) ExtractRawEdges(ctx context.Context, tables []string) ([][]meta.RawEdge, error) {
	if len(tables) == 0 {
		tables = DefaultEdgeTables
	}

	sources := make([][]meta.RawEdge, len(tables))

	g, gctx := errgroup.WithContext(ctx)
	for i, table := range tables {
		g.Go(func() error {
			rows, err := e.extractEdgeTable(gctx, table)
			if err != nil {
				return fmt.Errorf("edge table %s: %w", table, err)
			}
			e.logger.Debug("extracted edge table", "table", table, "rows", len(rows))
			sources[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return sources, nil
}

func (e *Extractor) extractEdgeTable(ctx context.Context, table string) ([]meta.RawEdge, error) {
	rows, err := e.source.Query(ctx, edgeQuery(table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var edges []meta.RawEdge
	for rows.Next() {
		var process, input, output sql.NullString
		if err := rows.Scan(&process, &input, &output); err != nil {
			return nil, fmt.Errorf("failed to scan edge row: %w", err)
		}
		edges = append(edges, meta.RawEdge{
			ProcessGUID: process.String,
			InputGUID:   input.String,
			OutputGUID:  output.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edge rows: %w", err)
	}
	return edges, nil
}
