package state

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/metalake-labs/mdlh/pkg/meta"
)

const assetColumns = `guid, type_name, name, qualified_name, description, status,
	certificate_status, connector_name, created_by, updated_by, created_at,
	updated_at, owner_users, term_guids, tag_names, custom_metadata, has_lineage`

// InsertAssets bulk-loads the asset registry for a building snapshot.
// Assets are written in guid order so identical inputs produce identical
// relations regardless of map iteration upstream.
func (s *SQLiteStore) InsertAssets(snapshotID string, assets []meta.Asset) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	sorted := make([]meta.Asset, len(assets))
	copy(sorted, assets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].GUID < sorted[j].GUID })

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(
		`INSERT INTO assets (snapshot_id, ` + assetColumns + `)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, a := range sorted {
		var createdAt, updatedAt any
		if !a.CreatedAt.IsZero() {
			createdAt = a.CreatedAt.UTC()
		}
		if !a.UpdatedAt.IsZero() {
			updatedAt = a.UpdatedAt.UTC()
		}
		if _, err := stmt.Exec(
			snapshotID, a.GUID, a.TypeName, a.Name, a.QualifiedName,
			a.Description, a.Status, a.CertificateStatus, a.ConnectorName,
			a.CreatedBy, a.UpdatedBy, createdAt, updatedAt,
			marshalList(a.OwnerUsers), marshalList(a.TermGUIDs),
			marshalList(a.TagNames), a.CustomMetadata, a.HasLineage,
		); err != nil {
			return fmt.Errorf("failed to insert asset %s: %w", a.GUID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit assets: %w", err)
	}
	return nil
}

// GetAsset retrieves one asset from a snapshot. Returns nil without error
// when the guid is not present (absence is a degraded result, not a failure).
func (s *SQLiteStore) GetAsset(snapshotID, guid string) (*meta.Asset, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	a, err := scanAsset(s.db.QueryRow(
		`SELECT `+assetColumns+` FROM assets WHERE snapshot_id = ? AND guid = ?`,
		snapshotID, guid,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return a, nil
}

// ListAssets returns assets from a snapshot in guid order, narrowed by the
// filter.
func (s *SQLiteStore) ListAssets(snapshotID string, filter meta.AssetFilter) ([]meta.Asset, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + assetColumns + ` FROM assets WHERE snapshot_id = ?`)
	args := []any{snapshotID}

	if filter.TypeName != "" {
		sb.WriteString(` AND type_name = ?`)
		args = append(args, filter.TypeName)
	}
	if filter.ConnectorName != "" {
		sb.WriteString(` AND connector_name = ?`)
		args = append(args, filter.ConnectorName)
	}
	if filter.HasLineage != nil {
		sb.WriteString(` AND has_lineage = ?`)
		args = append(args, *filter.HasLineage)
	}
	sb.WriteString(` ORDER BY guid`)
	if filter.Limit > 0 {
		sb.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var assets []meta.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}
	return assets, nil
}

func scanAsset(row scanner) (*meta.Asset, error) {
	a := &meta.Asset{}
	var createdAt, updatedAt sql.NullTime
	var owners, terms, tags string
	if err := row.Scan(
		&a.GUID, &a.TypeName, &a.Name, &a.QualifiedName, &a.Description,
		&a.Status, &a.CertificateStatus, &a.ConnectorName, &a.CreatedBy,
		&a.UpdatedBy, &createdAt, &updatedAt, &owners, &terms, &tags,
		&a.CustomMetadata, &a.HasLineage,
	); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		a.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		a.UpdatedAt = updatedAt.Time
	}
	a.OwnerUsers = unmarshalList(owners)
	a.TermGUIDs = unmarshalList(terms)
	a.TagNames = unmarshalList(tags)
	return a, nil
}
