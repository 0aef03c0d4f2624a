package meta

import "time"

// SnapshotStatus is the lifecycle state of a refresh snapshot.
type SnapshotStatus string

const (
	// SnapshotStatusBuilding marks a snapshot still being populated.
	SnapshotStatusBuilding SnapshotStatus = "building"
	// SnapshotStatusCurrent marks the snapshot readers bind to.
	SnapshotStatusCurrent SnapshotStatus = "current"
	// SnapshotStatusRetired marks a previously current snapshot.
	SnapshotStatusRetired SnapshotStatus = "retired"
	// SnapshotStatusFailed marks a snapshot whose build was abandoned.
	SnapshotStatusFailed SnapshotStatus = "failed"
)

// Snapshot is one immutable output of the refresh pipeline. A refresh builds
// a complete new snapshot and promotes it atomically; the asset and edge
// relations inside a snapshot never change after promotion.
type Snapshot struct {
	ID         string         `json:"id"`
	Status     SnapshotStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	PromotedAt *time.Time     `json:"promoted_at,omitempty"`
	AssetCount int64          `json:"asset_count"`
	EdgeCount  int64          `json:"edge_count"`
}

// RunStatus is the state of one refresh cycle.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RefreshRun records one invocation of the refresh pipeline.
type RefreshRun struct {
	ID          string     `json:"id"`
	SnapshotID  string     `json:"snapshot_id"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// StaleTable describes an Iceberg table whose storage metadata has not been
// refreshed within the configured threshold.
type StaleTable struct {
	Database    string    `json:"database"`
	Schema      string    `json:"schema"`
	Name        string    `json:"name"`
	LastAltered time.Time `json:"last_altered"`
	RowCount    int64     `json:"row_count"`
	DaysStale   int       `json:"days_stale"`
}

// RepairResult is the per-table outcome of an Iceberg repair batch. One
// table's failure never aborts the rest of the batch, so a batch yields one
// result per selected table.
type RepairResult struct {
	Table   string `json:"table"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}
