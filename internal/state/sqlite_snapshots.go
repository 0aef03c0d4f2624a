package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/metalake-labs/mdlh/pkg/meta"
)

// CreateSnapshot registers a new snapshot in the building state.
func (s *SQLiteStore) CreateSnapshot() (*meta.Snapshot, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	snap := &meta.Snapshot{
		ID:        generateID(),
		Status:    meta.SnapshotStatusBuilding,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO snapshots (id, status, created_at) VALUES (?, ?, ?)`,
		snap.ID, snap.Status, snap.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}

	return snap, nil
}

// PromoteSnapshot atomically makes a built snapshot the current one: the
// previous current snapshot is retired, the pointer is moved, and the new
// snapshot's counts are finalized, all in one transaction. Readers therefore
// observe either the old complete snapshot or the new complete snapshot.
func (s *SQLiteStore) PromoteSnapshot(id string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin promotion: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRow(`SELECT status FROM snapshots WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("snapshot not found: %s", id)
	}
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if meta.SnapshotStatus(status) != meta.SnapshotStatusBuilding {
		return fmt.Errorf("snapshot %s is %s, not building", id, status)
	}

	now := time.Now().UTC()

	if _, err := tx.Exec(
		`UPDATE snapshots SET status = ? WHERE status = ?`,
		meta.SnapshotStatusRetired, meta.SnapshotStatusCurrent,
	); err != nil {
		return fmt.Errorf("failed to retire current snapshot: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE snapshots SET
			status = ?,
			promoted_at = ?,
			asset_count = (SELECT COUNT(*) FROM assets WHERE snapshot_id = ?),
			edge_count = (SELECT COUNT(*) FROM edges WHERE snapshot_id = ?)
		WHERE id = ?`,
		meta.SnapshotStatusCurrent, now, id, id, id,
	); err != nil {
		return fmt.Errorf("failed to promote snapshot: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE current_snapshot SET snapshot_id = ? WHERE id = 1`, id,
	); err != nil {
		return fmt.Errorf("failed to move current pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit promotion: %w", err)
	}
	return nil
}

// FailSnapshot marks an abandoned build. Its partial relations are removed;
// the current snapshot (if any) is untouched.
func (s *SQLiteStore) FailSnapshot(id string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM assets WHERE snapshot_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear assets: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM edges WHERE snapshot_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear edges: %w", err)
	}

	res, err := tx.Exec(
		`UPDATE snapshots SET status = ? WHERE id = ? AND status = ?`,
		meta.SnapshotStatusFailed, id, meta.SnapshotStatusBuilding,
	)
	if err != nil {
		return fmt.Errorf("failed to fail snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("snapshot %s not in building state", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// GetSnapshot retrieves a snapshot by id.
func (s *SQLiteStore) GetSnapshot(id string) (*meta.Snapshot, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	snap, err := scanSnapshot(s.db.QueryRow(
		`SELECT id, status, created_at, promoted_at, asset_count, edge_count
		 FROM snapshots WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return snap, nil
}

// CurrentSnapshot resolves the current-snapshot pointer. Returns nil without
// error when no refresh has ever been promoted.
func (s *SQLiteStore) CurrentSnapshot() (*meta.Snapshot, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	snap, err := scanSnapshot(s.db.QueryRow(
		`SELECT s.id, s.status, s.created_at, s.promoted_at, s.asset_count, s.edge_count
		 FROM current_snapshot c
		 JOIN snapshots s ON s.id = c.snapshot_id
		 WHERE c.id = 1`,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots returns all snapshots, newest first.
func (s *SQLiteStore) ListSnapshots() ([]*meta.Snapshot, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, status, created_at, promoted_at, asset_count, edge_count
		 FROM snapshots ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snaps []*meta.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snaps, nil
}

// PruneSnapshots deletes retired and failed snapshots beyond the most recent
// keep of them, cascading their relations. The current snapshot is never
// pruned. Returns the number of snapshots removed.
func (s *SQLiteStore) PruneSnapshots(keep int) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}
	if keep < 0 {
		keep = 0
	}

	res, err := s.db.Exec(
		`DELETE FROM snapshots WHERE id IN (
			SELECT id FROM snapshots
			WHERE status IN (?, ?)
			ORDER BY created_at DESC
			LIMIT -1 OFFSET ?
		)`,
		meta.SnapshotStatusRetired, meta.SnapshotStatusFailed, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan code.
type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*meta.Snapshot, error) {
	snap := &meta.Snapshot{}
	var promotedAt sql.NullTime
	if err := row.Scan(
		&snap.ID, &snap.Status, &snap.CreatedAt, &promotedAt,
		&snap.AssetCount, &snap.EdgeCount,
	); err != nil {
		return nil, err
	}
	if promotedAt.Valid {
		snap.PromotedAt = &promotedAt.Time
	}
	return snap, nil
}
