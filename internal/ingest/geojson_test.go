package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTrails_2D(t *testing.T) {
	raw := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"properties": {"trail_id": "t1", "name": "Ridge Loop", "region": "boulder", "source": "osm"},
				"geometry": {"type": "LineString", "coordinates": [[-105.3, 40.0], [-105.2, 40.0]]}
			}
		]
	}`)

	trails, err := ParseTrails(raw)
	require.NoError(t, err)
	require.Len(t, trails, 1)

	tr := trails[0]
	require.Equal(t, "t1", tr.TrailID)
	require.Equal(t, "Ridge Loop", tr.Name)
	require.Equal(t, "boulder", tr.Region)
	require.Equal(t, "osm", tr.Source)
	require.False(t, tr.Elevation.HasStats)
	require.Greater(t, tr.LengthKm, 0.0)
}

func TestParseTrails_3D_ComputesElevationStats(t *testing.T) {
	raw := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"properties": {},
				"geometry": {"type": "LineString", "coordinates": [
					[-105.3, 40.0, 1000],
					[-105.29, 40.0, 1050],
					[-105.28, 40.0, 1020]
				]}
			}
		]
	}`)

	trails, err := ParseTrails(raw)
	require.NoError(t, err)
	require.Len(t, trails, 1)

	tr := trails[0]
	require.Equal(t, "trail-1", tr.TrailID) // defaulted from index
	require.True(t, tr.Elevation.HasStats)
	require.InDelta(t, 50.0, tr.Elevation.Gain, 0.001)
	require.InDelta(t, 30.0, tr.Elevation.Loss, 0.001)
	require.InDelta(t, 1000.0, tr.Elevation.Min, 0.001)
	require.InDelta(t, 1050.0, tr.Elevation.Max, 0.001)
}

func TestParseTrails_RejectsNonFeatureCollection(t *testing.T) {
	_, err := ParseTrails([]byte(`{"type": "Feature"}`))
	require.Error(t, err)
}

func TestParseTrails_RejectsNonLineStringGeometry(t *testing.T) {
	raw := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [-105.3, 40.0]}}
		]
	}`)
	_, err := ParseTrails(raw)
	require.Error(t, err)
}
