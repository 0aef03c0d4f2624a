package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/metalake-labs/mdlh/pkg/meta"
)

// CreateRun records the start of a refresh cycle bound to a snapshot.
func (s *SQLiteStore) CreateRun(snapshotID string) (*meta.RefreshRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &meta.RefreshRun{
		ID:         generateID(),
		SnapshotID: snapshotID,
		Status:     meta.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO refresh_runs (id, snapshot_id, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.SnapshotID, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// CompleteRun marks a run finished with the given status.
func (s *SQLiteStore) CompleteRun(id string, status meta.RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errPtr *string
	if errMsg != "" {
		errPtr = &errMsg
	}

	res, err := s.db.Exec(
		`UPDATE refresh_runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		status, time.Now().UTC(), errPtr, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetLatestRun returns the most recent refresh run, or nil when none exist.
func (s *SQLiteStore) GetLatestRun() (*meta.RefreshRun, error) {
	runs, err := s.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// ListRuns returns refresh runs, newest first, up to limit (0 = all).
func (s *SQLiteStore) ListRuns(limit int) ([]*meta.RefreshRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	query := `SELECT id, snapshot_id, status, started_at, completed_at, error
		 FROM refresh_runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*meta.RefreshRun
	for rows.Next() {
		run := &meta.RefreshRun{}
		var completedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(
			&run.ID, &run.SnapshotID, &run.Status, &run.StartedAt,
			&completedAt, &errMsg,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		if errMsg.Valid {
			run.Error = errMsg.String
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}
