package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trailnet/trailnet/internal/geom"
	"github.com/trailnet/trailnet/internal/graph"
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

func TestValidator_ScenarioS2_NoFindings(t *testing.T) {
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

	s := graph.New(store, graph.DefaultConfig(), nil)
	nodes, edges, err := s.Run(ctx)
	require.NoError(t, err)

	totalKm := geom.LengthGeodesicMeters(t1)/1000 + geom.LengthGeodesicMeters(t2)/1000

	v := New(store, DefaultConfig(), nil)
	report, err := v.Run(ctx, Input{Nodes: nodes, Edges: edges, PreSplitTotalLengthKm: totalKm})
	require.NoError(t, err)
	require.Empty(t, report.Findings)
}

func TestValidator_FlagsOrphanNode(t *testing.T) {
	store := newStore(t)
	nodes := []graph.Node{
		{NodeID: 0, NodeType: graph.NodeEndpoint, ConnectedTrailIDs: []string{"t1"}},
		{NodeID: 1, NodeType: graph.NodeEndpoint, ConnectedTrailIDs: []string{"t1"}},
		{NodeID: 2, NodeType: graph.NodeEndpoint, ConnectedTrailIDs: []string{"t2"}}, // orphan: no edge touches it
	}
	edges := []graph.Edge{
		{EdgeID: "e1", SourceNode: 0, TargetNode: 1, TrailID: "t1", DistanceKm: 1.0},
	}

	v := New(store, DefaultConfig(), nil)
	report, err := v.Run(context.Background(), Input{Nodes: nodes, Edges: edges})
	require.NoError(t, err)

	var found bool
	for _, f := range report.Findings {
		if f.Check == "connectivity" {
			found = true
		}
	}
	require.True(t, found, "expected a connectivity finding for the orphan node")
}

func TestValidator_FlagsSelfLoopAndBadTyping(t *testing.T) {
	store := newStore(t)
	nodes := []graph.Node{
		{NodeID: 0, NodeType: graph.NodeIntersection, ConnectedTrailIDs: []string{"t1"}}, // 1 trail but typed intersection
	}
	edges := []graph.Edge{
		{EdgeID: "e1", SourceNode: 0, TargetNode: 0, TrailID: "t1", DistanceKm: 1.0},
	}

	v := New(store, DefaultConfig(), nil)
	report, err := v.Run(context.Background(), Input{Nodes: nodes, Edges: edges})
	require.NoError(t, err)

	checks := make(map[string]bool)
	for _, f := range report.Findings {
		checks[f.Check] = true
	}
	require.True(t, checks["no-self-loop"])
	require.True(t, checks["node-typing"])
}
