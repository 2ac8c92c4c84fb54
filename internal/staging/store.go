package staging

import (
	"context"
	"errors"
	"regexp"
)

// ErrInvalidNamespace is returned when a namespace name fails validation.
// Namespace names are validated once at construction and never interpolated
// elsewhere (DESIGN NOTES "ad-hoc SQL building → parameterized templates").
var ErrInvalidNamespace = errors.New("staging: invalid namespace name")

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = errors.New("staging: not found")

var namespacePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidateNamespace checks that name is safe to use as a SQL identifier.
func ValidateNamespace(name string) error {
	if !namespacePattern.MatchString(name) {
		return ErrInvalidNamespace
	}
	return nil
}

// Tx is the transactional boundary a single split (or any other mutating
// operation) runs inside. Every method on Tx observes the same underlying
// database transaction; Commit/Rollback end it.
type Tx interface {
	InsertTrails(ctx context.Context, trails []Trail) error
	DeleteTrail(ctx context.Context, trailID string) error
	AppendSplitLog(ctx context.Context, entry SplitOperationLog) error
	Commit() error
	Rollback() error
}

// Store is the staging namespace: the isolated working area all pipeline
// mutations occur in (spec.md §4.B). A Store is created once per pipeline
// run and exclusively owned by it (spec.md §5 "the working namespace is
// exclusively owned by the current run").
type Store interface {
	// CreateNamespace provisions the namespace's tables. It must be
	// idempotent: calling it twice on an existing namespace is a no-op.
	CreateNamespace(ctx context.Context) error
	// DropNamespace tears down the namespace and all its rows.
	DropNamespace(ctx context.Context) error

	// BeginTx starts a new transaction for a single mutating operation.
	BeginTx(ctx context.Context) (Tx, error)

	// LoadTrails bulk-inserts the initial corpus of trails (ingestion),
	// outside of any split transaction.
	LoadTrails(ctx context.Context, trails []Trail) error

	// GetTrail returns one trail by id, or ErrNotFound.
	GetTrail(ctx context.Context, trailID string) (Trail, error)

	// ListTrails returns a bounded, cursor-paginated slice of trails,
	// optionally filtered by region (exact match) and source (exact
	// match). An empty cursor starts from the beginning; Page.NextCursor
	// is empty when Page.HasMore is false.
	ListTrails(ctx context.Context, region, source string, bbox *BoundingBox, cursor string, limit int) (Page, error)

	// CrossingCandidates returns unordered trail-id pairs whose
	// geometries are reported as intersecting (point-like) by the
	// underlying spatial index, ordered by proximity ascending.
	// snapToleranceDegrees widens candidacy to pairs that only intersect
	// after the pre-crossing snap (spec.md §6 snap_tolerance_degrees), so
	// a near-coincident vertex that snapping would bring onto the other
	// trail isn't filtered out before the detector ever sees it.
	CrossingCandidates(ctx context.Context, minTrailLengthMeters, snapToleranceDegrees float64) ([]CandidatePair, error)

	// TEndpointCandidates returns, for every endpoint of every trail,
	// candidate (endpoint trail, nearby trail) pairs within tolMeters of
	// each other, excluding pairs where one trail is topologically
	// contained in the other.
	TEndpointCandidates(ctx context.Context, tolMeters, minTrailLengthMeters float64) ([]CandidatePair, error)

	// DedupCandidates returns pairs with bounding-box overlap and
	// ST_DWithin <= withinMeters, both trails at least minLengthMeters
	// long (spec.md §4.F).
	DedupCandidates(ctx context.Context, withinMeters, minLengthMeters float64) ([]CandidatePair, error)

	// InsertIntersectionPoints records detector output for the current run.
	InsertIntersectionPoints(ctx context.Context, points []IntersectionPoint) error
	// IntersectionPoints returns all recorded intersection points, sorted
	// by (lng, lat, kind, smaller_trail_id) as required by spec.md §4.C.
	IntersectionPoints(ctx context.Context) ([]IntersectionPoint, error)

	// AppendSplitLog records one SplitOperationLog row outside of any
	// split's own transaction — used by the central split manager, which
	// logs both its own split outcomes and notifications from other
	// services (spec.md §4.E).
	AppendSplitLog(ctx context.Context, entry SplitOperationLog) error

	// SplitLog returns every recorded SplitOperationLog row, in insertion
	// order.
	SplitLog(ctx context.Context) ([]SplitOperationLog, error)

	// AllTrails returns every trail row currently in the namespace, with
	// no pagination — used by components (graph synthesis, validator,
	// snapshot exporter) that need the complete post-pipeline set.
	AllTrails(ctx context.Context) ([]Trail, error)

	// Close releases the underlying connection.
	Close() error
}
