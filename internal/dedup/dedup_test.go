package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trailnet/trailnet/internal/geom"
	"github.com/trailnet/trailnet/internal/split"
	"github.com/trailnet/trailnet/internal/staging"
)

func mustLine(t *testing.T, pts ...geom.Point) geom.Line {
	t.Helper()
	l, err := geom.NewLine(pts)
	require.NoError(t, err)
	return l
}

func TestDeduplicator_CollapsesNearIdenticalTrails(t *testing.T) {
	store, err := staging.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	// Two GPS traces of the same physical trail, a few meters apart.
	a := mustLine(t, geom.NewPoint2D(-105.30, 40.00), geom.NewPoint2D(-105.20, 40.00))
	b := mustLine(t, geom.NewPoint2D(-105.30, 40.00003), geom.NewPoint2D(-105.20, 40.00003))

	require.NoError(t, store.LoadTrails(ctx, []staging.Trail{
		{TrailID: "a", Name: "Ridge Trail", Region: "r", Geometry: a, LengthKm: geom.LengthGeodesicMeters(a) / 1000},
		{TrailID: "b", Name: "Ridge Trail Alt", Region: "r", Geometry: b, LengthKm: geom.LengthGeodesicMeters(b) / 1000},
	}))

	manager := split.NewManager(store, split.DefaultConfig(), nil)
	d := New(store, manager, DefaultConfig(), nil)

	components, err := d.Run(ctx)
	require.NoError(t, err)
	require.Len(t, components, 1)
	require.ElementsMatch(t, []string{"a", "b"}, components[0].TrailIDs)
	require.Equal(t, "a", components[0].Representative) // longer of the two

	remaining, err := store.AllTrails(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "a", remaining[0].TrailID)
}

func TestDeduplicator_ExcludesContainment(t *testing.T) {
	store, err := staging.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	whole := mustLine(t, geom.NewPoint2D(-105.30, 40.00), geom.NewPoint2D(-105.20, 40.00))
	part := mustLine(t, geom.NewPoint2D(-105.28, 40.00), geom.NewPoint2D(-105.22, 40.00))

	require.NoError(t, store.LoadTrails(ctx, []staging.Trail{
		{TrailID: "whole", Name: "Whole", Region: "r", Geometry: whole, LengthKm: geom.LengthGeodesicMeters(whole) / 1000},
		{TrailID: "part", Name: "Part", Region: "r", Geometry: part, LengthKm: geom.LengthGeodesicMeters(part) / 1000},
	}))

	manager := split.NewManager(store, split.DefaultConfig(), nil)
	d := New(store, manager, DefaultConfig(), nil)

	components, err := d.Run(ctx)
	require.NoError(t, err)
	require.Empty(t, components)

	remaining, err := store.AllTrails(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
}
