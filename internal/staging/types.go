// Package staging implements the isolated working namespace (spec.md 4.B):
// the mutable working set of trails, intersection points, nodes, and edges
// that every other pipeline component reads and writes through, plus the
// transactional boundary atomic splits run inside.
package staging

import (
	"time"

	"github.com/trailnet/trailnet/internal/geom"
)

// ElevationStats holds the non-negative elevation summary of a Trail.
type ElevationStats struct {
	Gain float64
	Loss float64
	Min  float64
	Max  float64
	Avg  float64
	// HasStats reports whether the stats were computed (e.g. a 2D trail
	// with no elevation samples has HasStats == false).
	HasStats bool
}

// BoundingBox is an inclusive WGS84 bounding box.
type BoundingBox struct {
	MinLng, MinLat, MaxLng, MaxLat float64
}

// Trail is one row of the trails table (spec.md §3 "Trail").
type Trail struct {
	TrailID          string
	Name             string
	Region           string
	TrailType        string
	Surface          string
	Difficulty       string
	Geometry         geom.Line
	LengthKm         float64
	Elevation        ElevationStats
	BBox             BoundingBox
	Source           string
	OriginalTrailID  string // empty ↔ never split
	CreatedAt        time.Time
}

// IsSegment reports whether this row was produced by a split.
func (t Trail) IsSegment() bool {
	return t.OriginalTrailID != ""
}

// IntersectionKind is a closed enumeration (spec.md §3 "IntersectionPoint").
type IntersectionKind string

const (
	KindCrossing   IntersectionKind = "crossing"
	KindTEndpoint  IntersectionKind = "t_endpoint"
	KindYEndpoint  IntersectionKind = "y_endpoint"
)

// IntersectionPoint exists only during a pipeline run.
type IntersectionPoint struct {
	Point    geom.Point
	Kind     IntersectionKind
	TrailIDs []string // set of >=2 participating trail ids
}

// SplitOpKind is a closed enumeration (spec.md §3 "SplitOperationLog").
type SplitOpKind string

const (
	OpSplit  SplitOpKind = "split"
	OpSnap   SplitOpKind = "snap"
	OpMerge  SplitOpKind = "merge"
	OpDelete SplitOpKind = "delete"
	OpInsert SplitOpKind = "insert"
)

// SplitOperationResult carries the outcome of one split operation.
type SplitOperationResult struct {
	OK               bool
	SegmentsCreated  int
	OriginalLengthKm float64
	TotalLengthKm    float64
	LengthDiffKm     float64
	LengthDiffPct    float64
	Error            string
}

// SplitOperationLog is the append-only record of a central-split-manager
// mutation.
type SplitOperationLog struct {
	OpID               string
	Timestamp          time.Time
	ServiceName        string
	OpKind             SplitOpKind
	OriginalTrailID    string
	OriginalTrailName  string
	Result             SplitOperationResult
	Metadata           map[string]string
}

// CandidatePair is a coarse candidate pair of trail ids surfaced by a
// bounding-box / ST_DWithin query, ahead of exact geometry evaluation.
type CandidatePair struct {
	TrailIDA string
	TrailIDB string
	// DistanceMeters is the approximate minimum distance between the two
	// trails' geometries as reported by the spatial index/database.
	DistanceMeters float64
}

// Page is a bounded, cursor-addressable slice of a read-set iteration.
type Page struct {
	Trails     []Trail
	NextCursor string
	HasMore    bool
}
