// Package views exposes the gold projections: read-only, independently
// queryable slices of the current snapshot (tags, glossary, pipelines, data
// quality, ...). Each projection is a plain SQL query over the snapshot
// relations; a failing projection reports its own error and never affects
// the others.
package views

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/metalake-labs/mdlh/internal/lineage"
	"github.com/metalake-labs/mdlh/internal/state"
)

// Result is one rendered projection: column names plus rows of scalar values.
type Result struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// definitions maps a projection name to its SQL. Every query binds the
// snapshot id exactly once and orders its output deterministically.
var definitions = map[string]string{
	// One row per (asset, tag) pair, expanded from the JSON tag list.
	"TAGS": `
		SELECT a.guid, a.name, a.type_name, je.value AS tag_name
		FROM assets a, json_each(a.tag_names) AS je
		WHERE a.snapshot_id = ?
		ORDER BY a.guid, tag_name`,

	// Assets carrying a custom-metadata blob.
	"CUSTOM_METADATA": `
		SELECT guid, name, type_name, custom_metadata
		FROM assets
		WHERE snapshot_id = ? AND custom_metadata <> ''
		ORDER BY guid`,

	// Glossary terms with their linkage back to tagged assets.
	"GLOSSARY_DETAILS": `
		SELECT guid, name, description, status, certificate_status
		FROM assets
		WHERE snapshot_id = ? AND type_name = 'AtlasGlossaryTerm'
		ORDER BY guid`,

	// Data quality rule and metric entities.
	"DATA_QUALITY_DETAILS": `
		SELECT guid, name, type_name, qualified_name, status
		FROM assets
		WHERE snapshot_id = ? AND type_name IN
			('DataQualityRule', 'DataQualityMetric', 'MonteCarloMonitor', 'SodaCheck')
		ORDER BY guid`,

	// Per-process fan-in/fan-out over the resolved edge relation.
	"PIPELINE_DETAILS": `
		SELECT process_guid,
			COUNT(*) AS edge_count,
			COUNT(DISTINCT input_guid) AS input_count,
			COUNT(DISTINCT output_guid) AS output_count
		FROM edges
		WHERE snapshot_id = ?
		GROUP BY process_guid
		ORDER BY process_guid`,

	// Classic warehouse objects.
	"RELATIONAL_ASSET_DETAILS": `
		SELECT guid, name, type_name, qualified_name, connector_name,
			certificate_status, has_lineage
		FROM assets
		WHERE snapshot_id = ? AND type_name IN
			('Table', 'View', 'MaterialisedView', 'Column', 'Schema', 'Database')
		ORDER BY guid`,

	// Data mesh constructs (products and domains).
	"DATA_MESH_DETAILS": `
		SELECT guid, name, type_name, qualified_name, status
		FROM assets
		WHERE snapshot_id = ? AND type_name IN ('DataProduct', 'DataDomain')
		ORDER BY guid`,

	// Assets with authored documentation.
	"README": `
		SELECT guid, name, type_name, description
		FROM assets
		WHERE snapshot_id = ? AND description <> ''
		ORDER BY guid`,
}

// Names returns the available projection names, sorted.
func Names() []string {
	names := make([]string, 0, len(definitions))
	for name := range definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownViewError is returned when a caller asks for a projection that does
// not exist.
type UnknownViewError struct {
	Name      string
	Available []string
}

func (e *UnknownViewError) Error() string {
	return fmt.Sprintf("unknown view %q (available: %s)",
		e.Name, strings.Join(e.Available, ", "))
}

// Service renders gold projections over the current snapshot.
type Service struct {
	store  *state.SQLiteStore
	logger *slog.Logger
}

// NewService creates a projection service over an opened store.
func NewService(store *state.SQLiteStore, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Query renders one projection against the current snapshot. View names are
// case-insensitive.
func (s *Service) Query(name string) (*Result, error) {
	canonical := strings.ToUpper(name)
	query, ok := definitions[canonical]
	if !ok {
		return nil, &UnknownViewError{Name: name, Available: Names()}
	}

	snap, err := s.store.CurrentSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current snapshot: %w", err)
	}
	if snap == nil {
		return nil, lineage.ErrNoSnapshot
	}

	rows, err := s.store.DB().Query(query, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query view %s: %w", canonical, err)
	}
	defer func() { _ = rows.Close() }()

	return collect(canonical, rows)
}

// collect scans all rows into a Result, stringifying byte slices so the
// output marshals cleanly to JSON.
func collect(name string, rows *sql.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &Result{Name: name, Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan view row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating view rows: %w", err)
	}
	return result, nil
}
