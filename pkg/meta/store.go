package meta

// AssetFilter narrows ListAssets results. Zero values mean "no filter".
type AssetFilter struct {
	TypeName      string
	ConnectorName string
	HasLineage    *bool
	Limit         int
	Offset        int
}

// Store defines the snapshot persistence contract. Implementations must
// guarantee that PromoteSnapshot is atomic with respect to readers resolving
// the current snapshot: a reader either sees the previous complete snapshot
// or the new complete snapshot, never a partial build.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// Snapshot lifecycle
	CreateSnapshot() (*Snapshot, error)
	PromoteSnapshot(id string) error
	FailSnapshot(id string) error
	GetSnapshot(id string) (*Snapshot, error)
	CurrentSnapshot() (*Snapshot, error)
	ListSnapshots() ([]*Snapshot, error)
	PruneSnapshots(keep int) (int, error)

	// Relation writes (valid only while the snapshot is building)
	InsertAssets(snapshotID string, assets []Asset) error
	InsertEdges(snapshotID string, edges []Edge) error

	// Relation reads
	GetAsset(snapshotID, guid string) (*Asset, error)
	ListAssets(snapshotID string, filter AssetFilter) ([]Asset, error)
	ListEdges(snapshotID string) ([]Edge, error)

	// Refresh run bookkeeping
	CreateRun(snapshotID string) (*RefreshRun, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetLatestRun() (*RefreshRun, error)
	ListRuns(limit int) ([]*RefreshRun, error)
}
