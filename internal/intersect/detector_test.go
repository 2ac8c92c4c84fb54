package intersect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trailnet/trailnet/internal/geom"
	"github.com/trailnet/trailnet/internal/staging"
)

func mustLine(t *testing.T, pts ...geom.Point) geom.Line {
	t.Helper()
	l, err := geom.NewLine(pts)
	require.NoError(t, err)
	return l
}

func newTestStore(t *testing.T) *staging.SQLiteStore {
	t.Helper()
	store, err := staging.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// TestDetectCrossings_ScenarioS3 mirrors spec.md scenario S3: two trails
// crossing in an X shape must produce exactly one crossing point at the
// intersection.
func TestDetectCrossings_ScenarioS3(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t1 := mustLine(t, geom.NewPoint2D(-105.3, 40.0), geom.NewPoint2D(-105.2, 40.0))
	t2 := mustLine(t, geom.NewPoint2D(-105.25, 39.95), geom.NewPoint2D(-105.25, 40.05))

	require.NoError(t, store.LoadTrails(ctx, []staging.Trail{
		{TrailID: "t1", Name: "T1", Region: "r", Geometry: t1, LengthKm: geom.LengthGeodesicMeters(t1) / 1000},
		{TrailID: "t2", Name: "T2", Region: "r", Geometry: t2, LengthKm: geom.LengthGeodesicMeters(t2) / 1000},
	}))

	d := New(store, DefaultConfig(), nil)
	points, err := d.Run(ctx)
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.Equal(t, staging.KindCrossing, points[0].Kind)
	require.InDelta(t, -105.25, points[0].Point.Lng, 1e-5)
	require.InDelta(t, 40.0, points[0].Point.Lat, 1e-5)
	require.ElementsMatch(t, []string{"t1", "t2"}, points[0].TrailIDs)
}

// TestDetectCrossings_SnapsNearCoincidentVertex exercises the pre-crossing
// snap (spec.md §6 snap_tolerance_degrees): t2's middle vertex sits about
// 3m below t1's line, so t2 never actually reaches y=40.0 and the two
// lines do not mathematically cross. Snapping that vertex onto t1 first
// brings it exactly onto the line, producing a touching crossing point at
// the vertex. With SnapToleranceDegrees at 0 the vertex is left alone and
// no crossing is found.
func TestDetectCrossings_SnapsNearCoincidentVertex(t *testing.T) {
	t1 := mustLine(t, geom.NewPoint2D(-105.3, 40.0), geom.NewPoint2D(-105.2, 40.0))
	t2 := mustLine(t,
		geom.NewPoint2D(-105.25, 39.95),
		geom.NewPoint2D(-105.25, 39.99997),
		geom.NewPoint2D(-105.25, 39.9),
	)
	trails := []staging.Trail{
		{TrailID: "t1", Name: "T1", Region: "r", Geometry: t1, LengthKm: geom.LengthGeodesicMeters(t1) / 1000},
		{TrailID: "t2", Name: "T2", Region: "r", Geometry: t2, LengthKm: geom.LengthGeodesicMeters(t2) / 1000},
	}

	withoutSnap := newTestStore(t)
	require.NoError(t, withoutSnap.LoadTrails(context.Background(), trails))
	cfg := DefaultConfig()
	cfg.SnapToleranceDegrees = 0
	points, err := New(withoutSnap, cfg, nil).Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, points)

	withSnap := newTestStore(t)
	require.NoError(t, withSnap.LoadTrails(context.Background(), trails))
	points, err = New(withSnap, DefaultConfig(), nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.Equal(t, staging.KindCrossing, points[0].Kind)
	require.InDelta(t, -105.25, points[0].Point.Lng, 1e-6)
	require.InDelta(t, 40.0, points[0].Point.Lat, 1e-6)
}

// TestDetectCrossings_ScenarioS1 mirrors spec.md scenario S1: two disjoint
// trails must produce zero intersection points.
func TestDetectCrossings_ScenarioS1(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t1 := mustLine(t, geom.NewPoint2D(-105.25922, 40.08312), geom.NewPoint2D(-105.259, 40.083))
	t2 := mustLine(t, geom.NewPoint2D(-105.2448, 40.08098), geom.NewPoint2D(-105.245, 40.081))

	require.NoError(t, store.LoadTrails(ctx, []staging.Trail{
		{TrailID: "t1", Name: "T1", Region: "r", Geometry: t1, LengthKm: geom.LengthGeodesicMeters(t1) / 1000},
		{TrailID: "t2", Name: "T2", Region: "r", Geometry: t2, LengthKm: geom.LengthGeodesicMeters(t2) / 1000},
	}))

	d := New(store, DefaultConfig(), nil)
	points, err := d.Run(ctx)
	require.NoError(t, err)
	require.Empty(t, points)
}

// TestDetectTEndpoints_ScenarioS4 mirrors spec.md scenario S4: a T1
// endpoint lying a few meters off T2's interior must surface a t_endpoint
// candidate within tolerance.
func TestDetectTEndpoints_ScenarioS4(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t2 := mustLine(t, geom.NewPoint2D(-105.3, 40.0), geom.NewPoint2D(-105.2, 40.0))
	// t1's endpoint sits roughly 2m north of t2's interior.
	t1 := mustLine(t, geom.NewPoint2D(-105.26, 40.05), geom.NewPoint2D(-105.25, 40.0000179))

	require.NoError(t, store.LoadTrails(ctx, []staging.Trail{
		{TrailID: "t1", Name: "T1", Region: "r", Geometry: t1, LengthKm: geom.LengthGeodesicMeters(t1) / 1000},
		{TrailID: "t2", Name: "T2", Region: "r", Geometry: t2, LengthKm: geom.LengthGeodesicMeters(t2) / 1000},
	}))

	cfg := DefaultConfig()
	d := New(store, cfg, nil)
	points, err := d.Run(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, points)
	found := false
	for _, p := range points {
		if p.Kind == staging.KindTEndpoint {
			found = true
		}
	}
	require.True(t, found)
}

func TestCluster_CollapsesNearDuplicates(t *testing.T) {
	points := []staging.IntersectionPoint{
		{Point: geom.NewPoint2D(-105.25, 40.0), Kind: staging.KindCrossing, TrailIDs: []string{"a", "b"}},
		{Point: geom.NewPoint2D(-105.250001, 40.000001), Kind: staging.KindTEndpoint, TrailIDs: []string{"a", "c"}},
	}
	merged := cluster(points, 2.0)
	require.Len(t, merged, 1)
	require.Equal(t, staging.KindCrossing, merged[0].Kind)
	require.ElementsMatch(t, []string{"a", "b", "c"}, merged[0].TrailIDs)
}
