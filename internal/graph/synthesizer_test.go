package graph

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

func newStore(t *testing.T) *staging.SQLiteStore {
	t.Helper()
	store, err := staging.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// TestSynthesize_ScenarioS1 mirrors spec.md scenario S1: two disjoint
// trails with no shared trail id must produce no edge that bridges them.
// §4.G step 4 still emits one edge per trail between its own two endpoint
// nodes regardless of neighbors, so this yields 2 edges (one per trail),
// not 0 — see DESIGN.md's "§4.G vs S1" note. The anti-regression this
// guards is that t1 and t2 never cluster onto a shared node.
func TestSynthesize_ScenarioS1(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	t1 := mustLine(t, geom.NewPoint2D(-105.25922, 40.08312), geom.NewPoint2D(-105.259, 40.083))
	t2 := mustLine(t, geom.NewPoint2D(-105.2448, 40.08098), geom.NewPoint2D(-105.245, 40.081))

	require.NoError(t, store.LoadTrails(ctx, []staging.Trail{
		{TrailID: "t1", Name: "T1", Region: "r", Geometry: t1, LengthKm: geom.LengthGeodesicMeters(t1) / 1000},
		{TrailID: "t2", Name: "T2", Region: "r", Geometry: t2, LengthKm: geom.LengthGeodesicMeters(t2) / 1000},
	}))

	s := New(store, DefaultConfig(), nil)
	nodes, edges, err := s.Run(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 4) // 2 endpoints per trail, no clustering
	require.Len(t, edges, 2) // one edge per disjoint trail, per §4.G step 4

	nodesByID := make(map[int]Node, len(nodes))
	for _, n := range nodes {
		nodesByID[n.NodeID] = n
	}
	for _, e := range edges {
		require.ElementsMatch(t, []string{e.TrailID}, nodesByID[e.SourceNode].ConnectedTrailIDs)
		require.ElementsMatch(t, []string{e.TrailID}, nodesByID[e.TargetNode].ConnectedTrailIDs)
	}
}

// TestSynthesize_ScenarioS2 mirrors spec.md scenario S2: two trails meeting
// at a shared vertex produce two edges, A<->B and B<->C, and no edge A<->C.
func TestSynthesize_ScenarioS2(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	a := geom.NewPoint2D(-105.25922, 40.08312)
	b := geom.NewPoint2D(-105.259, 40.083)
	c := geom.NewPoint2D(-105.2448, 40.08098)

	t1 := mustLine(t, a, b)
	t2 := mustLine(t, b, c)

	require.NoError(t, store.LoadTrails(ctx, []staging.Trail{
		{TrailID: "t1", Name: "T1", Region: "r", Geometry: t1, LengthKm: geom.LengthGeodesicMeters(t1) / 1000},
		{TrailID: "t2", Name: "T2", Region: "r", Geometry: t2, LengthKm: geom.LengthGeodesicMeters(t2) / 1000},
	}))

	s := New(store, DefaultConfig(), nil)
	nodes, edges, err := s.Run(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 3) // A, B (clustered, intersection), C
	require.Len(t, edges, 2)

	var intersectionCount int
	for _, n := range nodes {
		if n.NodeType == NodeIntersection {
			intersectionCount++
			require.ElementsMatch(t, []string{"t1", "t2"}, n.ConnectedTrailIDs)
		}
	}
	require.Equal(t, 1, intersectionCount)
}

// TestSynthesize_ScenarioS3 mirrors spec.md scenario S3 post-split: four
// segments from a crossing X produce four endpoint nodes, one intersection
// node, and four edges.
func TestSynthesize_ScenarioS3(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	center := geom.NewPoint2D(-105.25, 40.0)
	segs := []geom.Line{
		mustLine(t, geom.NewPoint2D(-105.3, 40.0), center),
		mustLine(t, center, geom.NewPoint2D(-105.2, 40.0)),
		mustLine(t, geom.NewPoint2D(-105.25, 39.95), center),
		mustLine(t, center, geom.NewPoint2D(-105.25, 40.05)),
	}

	var trails []staging.Trail
	for i, seg := range segs {
		trails = append(trails, staging.Trail{
			TrailID:         []string{"s1", "s2", "s3", "s4"}[i],
			Name:            "Seg",
			Region:          "r",
			Geometry:        seg,
			LengthKm:        geom.LengthGeodesicMeters(seg) / 1000,
			OriginalTrailID: "orig",
		})
	}
	require.NoError(t, store.LoadTrails(ctx, trails))

	s := New(store, DefaultConfig(), nil)
	nodes, edges, err := s.Run(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 5) // 4 outer endpoints + 1 shared intersection
	require.Len(t, edges, 4)

	var intersectionCount int
	for _, n := range nodes {
		if n.NodeType == NodeIntersection {
			intersectionCount++
			require.Len(t, n.ConnectedTrailIDs, 4)
		}
	}
	require.Equal(t, 1, intersectionCount)
}
