// Package snapshot implements the schema-versioned embedded-file export
// (spec.md §4.H): the self-contained package of trails, routing nodes,
// routing edges, and region metadata that downstream collaborators consume
// offline.
package snapshot

import "errors"

// SchemaVersion is the integer stamped into every snapshot's schema_version
// table. The source material emits versions 9, 12, 13, and 14 in different
// places (spec.md §9 open question); this repository picks one authoritative
// version rather than inferring it from context, per spec.md §9's directive
// that consumers must read the stamped version, not guess it.
const SchemaVersion = 14

// SchemaDescription is the human-readable text stored alongside
// SchemaVersion.
const SchemaDescription = "trails + routing_nodes + routing_edges + region_metadata, GeoJSON geometry with Z"

// ErrSizeBudgetExceeded is returned when the written file exceeds the
// configured budget (spec.md §4.H "rejects export when computed file size
// exceeds a configured budget").
var ErrSizeBudgetExceeded = errors.New("snapshot: file size exceeds configured budget")

// ErrStructuralCheck is returned when the post-write structural check finds
// a missing table, missing column, or an out-of-range sample value.
var ErrStructuralCheck = errors.New("snapshot: structural post-check failed")

// Config holds the exporter's tunables (spec.md §6).
type Config struct {
	MaxSnapshotSizeMB float64 // hard cap; exceeding is ResourceLimit-fatal
}

// DefaultConfig returns spec.md §6's documented default: no documented
// default exists for max_snapshot_size_mb (it is deployment-specific), so
// this picks a generous but enforced 512 MB ceiling.
func DefaultConfig() Config {
	return Config{MaxSnapshotSizeMB: 512}
}

// RegionMetadata is one row of the region_metadata table: a summary record
// describing the region the snapshot covers.
type RegionMetadata struct {
	Region     string
	TrailCount int
	NodeCount  int
	EdgeCount  int
	MinLng     float64
	MinLat     float64
	MaxLng     float64
	MaxLat     float64
}

// Input bundles the post-pipeline result the exporter serializes.
type Input struct {
	Trails  []TrailRow
	Nodes   []NodeRow
	Edges   []EdgeRow
	Regions []RegionMetadata
}
