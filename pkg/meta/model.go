// Package meta defines the core domain types of the Gold layer: assets,
// resolved lineage edges, traversal results, and snapshot/run records.
// It is dependency-free so that storage, graph, and transport packages can
// share types without pulling drivers.
package meta

import "time"

// UnknownType is the sentinel resolved type for an edge endpoint whose guid
// has no matching row in the asset registry. Unresolvable references degrade
// to this sentinel instead of failing the refresh.
const UnknownType = "unknown"

// Direction selects which way a lineage traversal walks the edge graph.
type Direction string

const (
	// DirectionUpstream walks toward the assets that produce the start asset.
	DirectionUpstream Direction = "upstream"
	// DirectionDownstream walks toward the assets the start asset produces.
	DirectionDownstream Direction = "downstream"
)

// Valid reports whether d is one of the two traversal directions.
func (d Direction) Valid() bool {
	return d == DirectionUpstream || d == DirectionDownstream
}

// Asset is a node in the metadata graph: any catalogued entity (table,
// column, dashboard, pipeline, term, ...) with a globally unique guid.
type Asset struct {
	// GUID is the unique identifier across the whole registry
	GUID string
	// TypeName is the entity type (e.g. "Table", "AtlasGlossaryTerm")
	TypeName string
	// Name is the display name
	Name string
	// QualifiedName is the fully qualified name within its connector
	QualifiedName string
	// Description is a human-readable description
	Description string
	// Status is the entity status (ACTIVE, DELETED, ...)
	Status string
	// CertificateStatus is the governance certificate (VERIFIED, DRAFT, ...)
	CertificateStatus string
	// ConnectorName identifies the source system (snowflake, postgres, ...)
	ConnectorName string
	// CreatedBy / UpdatedBy are audit principals
	CreatedBy string
	UpdatedBy string
	// CreatedAt / UpdatedAt are audit timestamps
	CreatedAt time.Time
	UpdatedAt time.Time
	// OwnerUsers are the declared owners
	OwnerUsers []string
	// TermGUIDs are linked glossary term identifiers
	TermGUIDs []string
	// TagNames are attached classification/tag names
	TagNames []string
	// CustomMetadata is the raw custom-metadata JSON blob, if any
	CustomMetadata string
	// HasLineage is true when the asset appears on at least one resolved edge
	HasLineage bool
}

// RawEdge is an unresolved (process, input, output) triple as read from a
// process-type source table. Either endpoint may be empty; such rows cannot
// participate in a path and are dropped during aggregation.
type RawEdge struct {
	ProcessGUID string
	InputGUID   string
	OutputGUID  string
}

// Edge is a resolved, directed lineage edge: exactly one input asset feeding
// one output asset through a mediating process. Endpoint names and types are
// denormalized for read performance; endpoints missing from the registry
// carry the raw guid as name and UnknownType as type.
type Edge struct {
	ProcessGUID string
	InputGUID   string
	OutputGUID  string
	InputName   string
	InputType   string
	OutputName  string
	OutputType  string
}

// LineageHop is one row of a lineage traversal result. Level is the hop
// distance from the start asset; it begins at 1 and the start asset itself is
// never emitted. An asset reachable via multiple paths appears once per
// direction, at its minimum level.
type LineageHop struct {
	StartGUID   string    `json:"start_guid"`
	Direction   Direction `json:"direction"`
	RelatedGUID string    `json:"related_guid"`
	RelatedName string    `json:"related_name"`
	RelatedType string    `json:"related_type"`
	Level       int       `json:"level"`
}
