package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trailnet/trailnet/internal/geom"
	"github.com/trailnet/trailnet/internal/staging"
)

func sampleTrail(line geom.Line) staging.Trail {
	return staging.Trail{
		TrailID:  "t1",
		Name:     "T1",
		Region:   "r",
		Geometry: line,
		LengthKm: geom.LengthGeodesicMeters(line) / 1000,
		Elevation: staging.ElevationStats{
			Gain: 20, Loss: 0, Min: 1800, Max: 1820, Avg: 1810, HasStats: true,
		},
		BBox:   staging.BoundingBox{MinLng: -105.3, MinLat: 40.0, MaxLng: -105.2, MaxLat: 40.01},
		Source: "test",
	}
}

func mustLine(t *testing.T, pts ...geom.Point) geom.Line {
	t.Helper()
	l, err := geom.NewLine(pts)
	require.NoError(t, err)
	return l
}

func sampleInput(t *testing.T) Input {
	t.Helper()
	line := mustLine(t,
		geom.NewPoint3D(-105.3, 40.0, 1800),
		geom.NewPoint3D(-105.2, 40.01, 1820),
	)
	trailRow, err := FromStagingTrail(sampleTrail(line))
	require.NoError(t, err)

	return Input{
		Trails: []TrailRow{trailRow},
		Nodes: []NodeRow{
			{NodeID: 0, Lng: -105.3, Lat: 40.0, NodeType: "endpoint", ConnectedTrailIDs: `["t1"]`},
			{NodeID: 1, Lng: -105.2, Lat: 40.01, NodeType: "endpoint", ConnectedTrailIDs: `["t1"]`},
		},
		Edges: []EdgeRow{
			mustEdgeRow(t, line),
		},
		Regions: []RegionMetadata{
			{Region: "r", TrailCount: 1, NodeCount: 2, EdgeCount: 1, MinLng: -105.3, MinLat: 40.0, MaxLng: -105.2, MaxLat: 40.01},
		},
	}
}

func mustEdgeRow(t *testing.T, line geom.Line) EdgeRow {
	t.Helper()
	geojsonText, err := EncodeLineStringGeoJSON(line)
	require.NoError(t, err)
	return EdgeRow{
		EdgeID: "e1", SourceNode: 0, TargetNode: 1, TrailID: "t1", TrailName: "T1",
		DistanceKm: 1.2, ElevationGainM: 20, ElevationLossM: 0, GeometryGeoJSON: geojsonText,
	}
}

func TestWriter_WritesAndPassesStructuralCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.sqlite")
	w := NewWriter(DefaultConfig(), nil)

	err := w.Write(context.Background(), path, sampleInput(t))
	require.NoError(t, err)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	version, err := r.SchemaVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, SchemaVersion, version)

	trails, err := r.Trails(context.Background())
	require.NoError(t, err)
	require.Len(t, trails, 1)

	nodes, err := r.Nodes(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	edges, err := r.Edges(context.Background())
	require.NoError(t, err)
	require.Len(t, edges, 1)
}

func TestWriter_RejectsOverSizeBudget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.sqlite")
	cfg := Config{MaxSnapshotSizeMB: 0.0000001}
	w := NewWriter(cfg, nil)

	err := w.Write(context.Background(), path, sampleInput(t))
	require.ErrorIs(t, err, ErrSizeBudgetExceeded)
}

func TestGeoJSONRoundTrip_PreservesZ(t *testing.T) {
	line := mustLine(t,
		geom.NewPoint3D(-105.123456, 40.654321, 1800.5),
		geom.NewPoint3D(-105.223456, 40.754321, 1850.25),
	)
	text, err := EncodeLineStringGeoJSON(line)
	require.NoError(t, err)

	decoded, err := DecodeLineStringGeoJSON(text)
	require.NoError(t, err)
	require.True(t, decoded.Is3D())
	require.Len(t, decoded.Points, 2)
	require.InDelta(t, line.Points[0].Lng, decoded.Points[0].Lng, 1e-6)
	require.InDelta(t, line.Points[0].Elevation, decoded.Points[0].Elevation, 1e-6)
}
