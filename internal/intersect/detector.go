// Package intersect implements the intersection detector (spec.md §4.C):
// finding crossing points between trails and T/Y endpoint-near-trail points,
// within configurable tolerances, with deterministic output ordering.
package intersect

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/trailnet/trailnet/internal/geom"
	"github.com/trailnet/trailnet/internal/staging"
)

// Config holds the detector's tunables (spec.md §6).
type Config struct {
	IntersectionToleranceMeters  float64 // default 2.0
	TIntersectionToleranceMeters float64 // default 3.0
	MinTrailLengthMeters         float64 // default 5.0
	ClusterRadiusMeters          float64 // default tol/2
	SnapToleranceDegrees         float64 // default 1e-4, pre-intersection snap (spec.md §6)
	BatchSize                    int     // candidate pairs processed per pass, default 500
}

// DefaultConfig returns the tolerances spec.md §6 lists as defaults.
func DefaultConfig() Config {
	return Config{
		IntersectionToleranceMeters:  2.0,
		TIntersectionToleranceMeters: 3.0,
		MinTrailLengthMeters:         5.0,
		ClusterRadiusMeters:          1.5,
		SnapToleranceDegrees:         1e-4,
		BatchSize:                    500,
	}
}

// Detector runs both detection regimes against a staging.Store.
type Detector struct {
	store staging.Store
	cfg   Config
	log   *logrus.Entry
}

// New builds a Detector. log may be nil, in which case a discard logger is used.
func New(store staging.Store, cfg Config, log *logrus.Entry) *Detector {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Detector{store: store, cfg: cfg, log: log}
}

// Run executes both regimes, clusters near-duplicate points, sorts the
// result deterministically (spec.md §4.C "sort by (lng, lat, kind,
// smaller_trail_id)"), persists it to the staging store, and returns it.
func (d *Detector) Run(ctx context.Context) ([]staging.IntersectionPoint, error) {
	crossings, err := d.detectCrossings(ctx)
	if err != nil {
		return nil, fmt.Errorf("intersect: crossing regime: %w", err)
	}
	tyEndpoints, err := d.detectTYEndpoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("intersect: t/y endpoint regime: %w", err)
	}

	all := append(crossings, tyEndpoints...)
	clustered := cluster(all, d.cfg.ClusterRadiusMeters)
	sortPoints(clustered)

	if err := d.store.InsertIntersectionPoints(ctx, clustered); err != nil {
		return nil, fmt.Errorf("intersect: persist points: %w", err)
	}
	d.log.WithFields(logrus.Fields{
		"crossings":   len(crossings),
		"ty_endpoints": len(tyEndpoints),
		"clustered":   len(clustered),
	}).Info("intersection detection complete")
	return clustered, nil
}

// detectCrossings implements the crossing regime (spec.md §4.C.1): for each
// candidate pair whose geometries are reported point-like intersecting,
// dump the exact intersection points. Before testing for intersection, each
// pair is snapped to the other (spec.md §6 snap_tolerance_degrees) so that
// near-coincident vertices left over from upstream digitizing become exact
// coincidences the crossing test can see.
func (d *Detector) detectCrossings(ctx context.Context) ([]staging.IntersectionPoint, error) {
	pairs, err := d.store.CrossingCandidates(ctx, d.cfg.MinTrailLengthMeters, d.cfg.SnapToleranceDegrees)
	if err != nil {
		return nil, err
	}

	var out []staging.IntersectionPoint
	for _, batch := range batches(pairs, d.cfg.BatchSize) {
		d.log.WithField("batch_size", len(batch)).Debug("processing crossing batch")
		for _, pair := range batch {
			a, err := d.store.GetTrail(ctx, pair.TrailIDA)
			if err != nil {
				return nil, fmt.Errorf("crossing candidate %s: %w", pair.TrailIDA, err)
			}
			b, err := d.store.GetTrail(ctx, pair.TrailIDB)
			if err != nil {
				return nil, fmt.Errorf("crossing candidate %s: %w", pair.TrailIDB, err)
			}

			snappedA := geom.SnapDegrees(a.Geometry, b.Geometry, d.cfg.SnapToleranceDegrees)
			snappedB := geom.SnapDegrees(b.Geometry, snappedA, d.cfg.SnapToleranceDegrees)

			result := geom.Intersect(snappedA, snappedB)
			if result.Kind != geom.IntersectionPoints && result.Kind != geom.IntersectionMixed {
				continue
			}
			ids := orderedPair(a.TrailID, b.TrailID)
			for _, p := range result.Points {
				out = append(out, staging.IntersectionPoint{
					Point:    p,
					Kind:     staging.KindCrossing,
					TrailIDs: ids,
				})
			}
		}
	}
	return out, nil
}

// detectTYEndpoints implements the T/Y endpoint regime (spec.md §4.C.2).
// t_endpoint covers an endpoint of one trail landing near a distinct
// trail; y_endpoint covers an endpoint landing near a different segment of
// the *same* trail (a self-near-miss, e.g. a looping or forked trail),
// which the staging candidate query does not surface since it only pairs
// distinct trail ids — so the self case is detected directly here.
func (d *Detector) detectTYEndpoints(ctx context.Context) ([]staging.IntersectionPoint, error) {
	pairs, err := d.store.TEndpointCandidates(ctx, d.cfg.TIntersectionToleranceMeters, d.cfg.MinTrailLengthMeters)
	if err != nil {
		return nil, err
	}

	var out []staging.IntersectionPoint
	for _, batch := range batches(pairs, d.cfg.BatchSize) {
		d.log.WithField("batch_size", len(batch)).Debug("processing t-endpoint batch")
		for _, pair := range batch {
			a, err := d.store.GetTrail(ctx, pair.TrailIDA)
			if err != nil {
				return nil, fmt.Errorf("t-endpoint candidate %s: %w", pair.TrailIDA, err)
			}
			b, err := d.store.GetTrail(ctx, pair.TrailIDB)
			if err != nil {
				return nil, fmt.Errorf("t-endpoint candidate %s: %w", pair.TrailIDB, err)
			}

			for _, ep := range []geom.Point{a.Geometry.Points[0], a.Geometry.Points[len(a.Geometry.Points)-1]} {
				proj, err := geom.ClosestPoint(b.Geometry, ep)
				if err != nil {
					continue
				}
				dist := geom.SegmentLengthMeters(ep, proj)
				if dist > d.cfg.TIntersectionToleranceMeters {
					continue
				}
				out = append(out, staging.IntersectionPoint{
					Point:    proj,
					Kind:     staging.KindTEndpoint,
					TrailIDs: orderedPair(a.TrailID, b.TrailID),
				})
			}
		}
	}

	selfYs, err := d.detectSelfYEndpoints(ctx)
	if err != nil {
		return nil, err
	}
	return append(out, selfYs...), nil
}

// detectSelfYEndpoints checks every trail's endpoints against the trail's
// own interior, excluding the segments immediately adjacent to that
// endpoint, to surface forked/looping shapes where an endpoint nearly
// touches a different arm of the same trail.
func (d *Detector) detectSelfYEndpoints(ctx context.Context) ([]staging.IntersectionPoint, error) {
	trails, err := d.store.AllTrails(ctx)
	if err != nil {
		return nil, err
	}

	var out []staging.IntersectionPoint
	const excludeFractionOfLine = 0.05 // skip the near-endpoint stretch of the trail itself
	for _, tr := range trails {
		if geom.LengthGeodesicMeters(tr.Geometry) < d.cfg.MinTrailLengthMeters {
			continue
		}
		n := len(tr.Geometry.Points)
		if n < 4 {
			continue
		}
		startExclude := int(float64(n) * excludeFractionOfLine)
		if startExclude < 1 {
			startExclude = 1
		}
		interior := tr.Geometry.Points[startExclude : n-startExclude]
		if len(interior) < 2 {
			continue
		}
		interiorLine, err := geom.NewLine(interior)
		if err != nil {
			continue
		}

		for _, ep := range []geom.Point{tr.Geometry.Points[0], tr.Geometry.Points[n-1]} {
			proj, err := geom.ClosestPoint(interiorLine, ep)
			if err != nil {
				continue
			}
			dist := geom.SegmentLengthMeters(ep, proj)
			if dist > d.cfg.TIntersectionToleranceMeters {
				continue
			}
			out = append(out, staging.IntersectionPoint{
				Point:    proj,
				Kind:     staging.KindYEndpoint,
				TrailIDs: []string{tr.TrailID},
			})
		}
	}
	return out, nil
}

func orderedPair(a, b string) []string {
	if a < b {
		return []string{a, b}
	}
	return []string{b, a}
}

func batches(pairs []staging.CandidatePair, size int) [][]staging.CandidatePair {
	if size <= 0 {
		size = len(pairs)
		if size == 0 {
			return nil
		}
	}
	var out [][]staging.CandidatePair
	for i := 0; i < len(pairs); i += size {
		end := i + size
		if end > len(pairs) {
			end = len(pairs)
		}
		out = append(out, pairs[i:end])
	}
	return out
}

func sortPoints(points []staging.IntersectionPoint) {
	sort.Slice(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if a.Point.Lng != b.Point.Lng {
			return a.Point.Lng < b.Point.Lng
		}
		if a.Point.Lat != b.Point.Lat {
			return a.Point.Lat < b.Point.Lat
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return smallerID(a.TrailIDs) < smallerID(b.TrailIDs)
	})
}

func smallerID(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	min := ids[0]
	for _, id := range ids[1:] {
		if id < min {
			min = id
		}
	}
	return min
}
