package state

import (
	"fmt"
	"sort"

	"github.com/metalake-labs/mdlh/pkg/meta"
)

// InsertEdges bulk-loads the resolved edge relation for a building snapshot.
// Edges are written in (process, input, output) order for refresh idempotence.
func (s *SQLiteStore) InsertEdges(snapshotID string, edges []meta.Edge) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	sorted := make([]meta.Edge, len(edges))
	copy(sorted, edges)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ProcessGUID != b.ProcessGUID {
			return a.ProcessGUID < b.ProcessGUID
		}
		if a.InputGUID != b.InputGUID {
			return a.InputGUID < b.InputGUID
		}
		return a.OutputGUID < b.OutputGUID
	})

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(
		`INSERT INTO edges (snapshot_id, process_guid, input_guid, output_guid,
			input_name, input_type, output_name, output_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range sorted {
		if _, err := stmt.Exec(
			snapshotID, e.ProcessGUID, e.InputGUID, e.OutputGUID,
			e.InputName, e.InputType, e.OutputName, e.OutputType,
		); err != nil {
			return fmt.Errorf("failed to insert edge %s: %w", e.ProcessGUID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit edges: %w", err)
	}
	return nil
}

// ListEdges returns the full resolved edge relation for a snapshot in
// (process, input, output) order.
func (s *SQLiteStore) ListEdges(snapshotID string) ([]meta.Edge, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT process_guid, input_guid, output_guid,
			input_name, input_type, output_name, output_type
		 FROM edges WHERE snapshot_id = ?
		 ORDER BY process_guid, input_guid, output_guid`,
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edges []meta.Edge
	for rows.Next() {
		var e meta.Edge
		if err := rows.Scan(
			&e.ProcessGUID, &e.InputGUID, &e.OutputGUID,
			&e.InputName, &e.InputType, &e.OutputName, &e.OutputType,
		); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}
	return edges, nil
}
