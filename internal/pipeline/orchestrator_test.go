package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trailnet/trailnet/internal/config"
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

func trailFromLine(id, name string, line geom.Line) staging.Trail {
	return staging.Trail{
		TrailID: id, Name: name, Region: "r", Geometry: line,
		LengthKm: geom.LengthGeodesicMeters(line) / 1000,
		BBox:     staging.BoundingBox{MinLng: -180, MinLat: -90, MaxLng: 180, MaxLat: 90},
		Source:   "test",
	}
}

func newRunner(t *testing.T) (*Runner, staging.Store) {
	t.Helper()
	store, err := staging.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewRunner(store, config.DefaultPipelineConfig(), nil), store
}

// TestRun_ScenarioS1_NoSharedTrail mirrors spec.md scenario S1: two disjoint
// trails, no shared vertex or crossing, must produce no splits and no edge
// that bridges the two trails. §4.G step 4 synthesizes one edge per trail
// between that trail's own two endpoint nodes regardless of whether the
// trail has any neighbor, so each disjoint trail here still yields its own
// edge (2 edges total, not 0) — see DESIGN.md's "§4.G vs S1" note for why
// the literal "zero edges" reading of S1 doesn't hold. The real
// anti-regression this scenario guards is that t1 and t2 never end up
// sharing a node (which would wrongly bridge them with a graph-connected
// path neither trail's geometry actually has).
func TestRun_ScenarioS1_NoSharedTrail(t *testing.T) {
	runner, _ := newRunner(t)
	t1 := mustLine(t, geom.NewPoint2D(-105.25922, 40.08312), geom.NewPoint2D(-105.259, 40.083))
	t2 := mustLine(t, geom.NewPoint2D(-105.2448, 40.08098), geom.NewPoint2D(-105.245, 40.081))

	result, err := runner.Run(context.Background(), RunInput{
		Trails: []staging.Trail{trailFromLine("t1", "T1", t1), trailFromLine("t2", "T2", t2)},
	})
	require.NoError(t, err)
	require.Equal(t, 0, result.SplitCounters.Success)
	require.Empty(t, result.Report.Findings)

	require.Len(t, result.Edges, 2, "one edge per disjoint trail, per §4.G step 4")
	nodesByID := make(map[int]graph.Node, len(result.Nodes))
	for _, n := range result.Nodes {
		nodesByID[n.NodeID] = n
	}
	for _, e := range result.Edges {
		source, target := nodesByID[e.SourceNode], nodesByID[e.TargetNode]
		require.ElementsMatch(t, []string{e.TrailID}, source.ConnectedTrailIDs,
			"edge %s's source node must not be shared with the other disjoint trail", e.EdgeID)
		require.ElementsMatch(t, []string{e.TrailID}, target.ConnectedTrailIDs,
			"edge %s's target node must not be shared with the other disjoint trail", e.EdgeID)
	}
}

// TestRun_ScenarioS3_CrossingX mirrors spec.md scenario S3: two trails
// crossing at a single point split into four segments, producing four
// edges and one intersection node.
func TestRun_ScenarioS3_CrossingX(t *testing.T) {
	runner, _ := newRunner(t)
	t1 := mustLine(t, geom.NewPoint2D(-105.3, 40.0), geom.NewPoint2D(-105.2, 40.0))
	t2 := mustLine(t, geom.NewPoint2D(-105.25, 39.95), geom.NewPoint2D(-105.25, 40.05))

	result, err := runner.Run(context.Background(), RunInput{
		Trails: []staging.Trail{trailFromLine("t1", "T1", t1), trailFromLine("t2", "T2", t2)},
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.SplitCounters.Success) // both trails split once
	require.Len(t, result.Edges, 4)

	var intersectionCount int
	for _, n := range result.Nodes {
		if len(n.ConnectedTrailIDs) >= 2 {
			intersectionCount++
		}
	}
	require.Equal(t, 1, intersectionCount)
	require.Empty(t, result.Report.Findings)
}

// TestRun_ExportsSnapshot exercises the full pipeline including the
// snapshot export step.
func TestRun_ExportsSnapshot(t *testing.T) {
	runner, _ := newRunner(t)
	t1 := mustLine(t, geom.NewPoint2D(-105.3, 40.0), geom.NewPoint2D(-105.2, 40.0))

	path := filepath.Join(t.TempDir(), "out.sqlite")
	result, err := runner.Run(context.Background(), RunInput{
		Trails:      []staging.Trail{trailFromLine("t1", "T1", t1)},
		ExportPath:  path,
		RegionLabel: "r",
	})
	require.NoError(t, err)
	require.Equal(t, path, result.SnapshotPath)
}
