package split

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trailnet/trailnet/internal/geom"
	"github.com/trailnet/trailnet/internal/staging"
)

func newTestStore(t *testing.T) *staging.SQLiteStore {
	t.Helper()
	store, err := staging.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func straightLine(t *testing.T) geom.Line {
	t.Helper()
	l, err := geom.NewLine([]geom.Point{
		geom.NewPoint2D(-105.3, 40.0),
		geom.NewPoint2D(-105.2, 40.0),
	})
	require.NoError(t, err)
	return l
}

// TestSplit_ScenarioS3 mirrors spec.md scenario S3: splitting a trail at its
// exact midpoint must produce two segments whose lengths sum to the
// original within tolerance.
func TestSplit_ScenarioS3(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	line := straightLine(t)

	op := TrailSplitOperation{
		OriginalTrailID:   "t1",
		OriginalTrailName: "T1",
		OriginalGeometry:  line,
		OriginalLengthKm:  geom.LengthGeodesicMeters(line) / 1000,
		Region:            "r",
		SplitPoints: []SplitPoint{
			{Lng: -105.25, Lat: 40.0, DistanceAlongM: geom.LengthGeodesicMeters(line) / 2},
		},
	}

	s := NewSplitter(store, DefaultConfig())
	outcome, err := s.Split(ctx, op)
	require.NoError(t, err)
	require.Equal(t, StateOK, outcome.State)
	require.Len(t, outcome.Segments, 2)
	require.InDelta(t, op.OriginalLengthKm, outcome.Result.TotalLengthKm, 0.001)
}

// TestSplit_LengthViolation mirrors spec.md scenario S5: a split whose
// segments do not conserve length must roll back and report the reason.
func TestSplit_LengthViolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// A geometry whose "original length" is overstated relative to its
	// actual coordinates, forcing the length-conservation check to fail.
	line := straightLine(t)
	op := TrailSplitOperation{
		OriginalTrailID:   "t1",
		OriginalTrailName: "T1",
		OriginalGeometry:  line,
		OriginalLengthKm:  1.6, // true length is ~8.5km; this simulates a corrupt baseline
		Region:            "r",
		SplitPoints: []SplitPoint{
			{Lng: -105.25, Lat: 40.0, DistanceAlongM: geom.LengthGeodesicMeters(line) / 2},
		},
	}

	s := NewSplitter(store, DefaultConfig())
	outcome, err := s.Split(ctx, op)
	require.NoError(t, err)
	require.Equal(t, StateFailed, outcome.State)
	require.Contains(t, outcome.Result.Error, "length conservation")
}

func TestManager_SplitTracksIntegrity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	line := straightLine(t)

	require.NoError(t, store.LoadTrails(ctx, []staging.Trail{
		{TrailID: "t1", Name: "T1", Region: "r", Geometry: line, LengthKm: geom.LengthGeodesicMeters(line) / 1000},
	}))

	m := NewManager(store, DefaultConfig(), nil)
	op := TrailSplitOperation{
		OriginalTrailID:   "t1",
		OriginalTrailName: "T1",
		OriginalGeometry:  line,
		OriginalLengthKm:  geom.LengthGeodesicMeters(line) / 1000,
		Region:            "r",
		SplitPoints: []SplitPoint{
			{Lng: -105.25, Lat: 40.0, DistanceAlongM: geom.LengthGeodesicMeters(line) / 2},
		},
	}

	outcome, err := m.Split(ctx, "test-service", op)
	require.NoError(t, err)
	require.Equal(t, StateOK, outcome.State)

	require.NoError(t, m.ValidateGeometryIntegrity(0.1))

	counters := m.Counters()
	require.Equal(t, 1, counters.Total)
	require.Equal(t, 1, counters.Success)
	require.Equal(t, 0, counters.Failed)

	log, err := store.SplitLog(ctx)
	require.NoError(t, err)
	require.Len(t, log, 1)
	require.True(t, log[0].Result.OK)
}
