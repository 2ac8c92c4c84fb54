package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func straightLine() Line {
	l, _ := NewLine([]Point{
		NewPoint2D(-105.3, 40.0),
		NewPoint2D(-105.2, 40.0),
	})
	return l
}

func TestLengthGeodesicMeters_Positive(t *testing.T) {
	l := straightLine()
	length := LengthGeodesicMeters(l)
	assert.Greater(t, length, 0.0)
	// ~0.1 degree of longitude at the equator-ish latitude 40N is roughly 8.5km.
	assert.InDelta(t, 8540.0, length, 500.0)
}

func TestLineLocate_Midpoint(t *testing.T) {
	l := straightLine()
	mid := NewPoint2D(-105.25, 40.0)
	tt, err := LineLocate(l, mid)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, tt, 0.01)
}

func TestLineLocate_OffLineProjectsPerpendicular(t *testing.T) {
	l := straightLine()
	off := NewPoint2D(-105.25, 40.001) // slightly north of the line
	tt, err := LineLocate(l, off)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, tt, 0.01)
}

func TestClosestPoint(t *testing.T) {
	l := straightLine()
	p, err := ClosestPoint(l, NewPoint2D(-105.25, 40.01))
	require.NoError(t, err)
	assert.InDelta(t, -105.25, p.Lng, 1e-6)
	assert.InDelta(t, 40.0, p.Lat, 1e-6)
}

func TestLineInterpolate_Bounds(t *testing.T) {
	l := straightLine()
	start, err := LineInterpolate(l, 0)
	require.NoError(t, err)
	assert.Equal(t, l.Points[0], start)

	end, err := LineInterpolate(l, 1)
	require.NoError(t, err)
	assert.Equal(t, l.Points[len(l.Points)-1], end)
}

func TestSplitByPoint_Interior(t *testing.T) {
	l := straightLine()
	mid := NewPoint2D(-105.25, 40.0)
	segs, err := SplitByPoint(l, mid)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.InDelta(t, -105.3, segs[0].Points[0].Lng, 1e-9)
	assert.InDelta(t, -105.25, segs[0].Points[len(segs[0].Points)-1].Lng, 1e-6)
	assert.InDelta(t, -105.2, segs[1].Points[len(segs[1].Points)-1].Lng, 1e-9)
}

func TestSplitByPoint_Endpoint(t *testing.T) {
	l := straightLine()
	segs, err := SplitByPoint(l, l.Points[0])
	require.NoError(t, err)
	require.Len(t, segs, 1)
}

func TestSplitByPoint_LengthConservation(t *testing.T) {
	l := straightLine()
	mid := NewPoint2D(-105.25, 40.0)
	segs, err := SplitByPoint(l, mid)
	require.NoError(t, err)

	total := LengthGeodesicMeters(l)
	var sum float64
	for _, s := range segs {
		sum += LengthGeodesicMeters(s)
	}
	assert.InDelta(t, total, sum, 1.0)
}

func TestIntersect_Crossing(t *testing.T) {
	a, _ := NewLine([]Point{NewPoint2D(-105.3, 40.0), NewPoint2D(-105.2, 40.0)})
	b, _ := NewLine([]Point{NewPoint2D(-105.25, 39.95), NewPoint2D(-105.25, 40.05)})

	result := Intersect(a, b)
	require.Equal(t, IntersectionPoints, result.Kind)
	require.Len(t, result.Points, 1)
	assert.InDelta(t, -105.25, result.Points[0].Lng, 1e-6)
	assert.InDelta(t, 40.0, result.Points[0].Lat, 1e-6)
}

func TestIntersect_Disjoint(t *testing.T) {
	a, _ := NewLine([]Point{NewPoint2D(-105.25922, 40.08312), NewPoint2D(-105.259, 40.083)})
	b, _ := NewLine([]Point{NewPoint2D(-105.2448, 40.08098), NewPoint2D(-105.245, 40.081)})

	result := Intersect(a, b)
	assert.Equal(t, IntersectionEmpty, result.Kind)
}

func TestCoordinateRound(t *testing.T) {
	l, _ := NewLine([]Point{NewPoint2D(-105.123456789, 40.000000049), NewPoint2D(-105.2, 40.1)})
	rounded := CoordinateRound(l, 6)
	assert.InDelta(t, -105.123457, rounded.Points[0].Lng, 1e-9)
}

func TestCoverageDifference_FullCoverage(t *testing.T) {
	whole := straightLine()
	mid := NewPoint2D(-105.25, 40.0)
	parts, err := SplitByPoint(whole, mid)
	require.NoError(t, err)

	uncoveredArea, uncoveredLength := CoverageDifference(whole, parts)
	assert.Less(t, uncoveredLength, 0.01)
	assert.Less(t, uncoveredArea, 1e-6)
}

func TestCoverageDifference_PartialCoverage(t *testing.T) {
	whole := straightLine()
	half, _ := NewLine([]Point{NewPoint2D(-105.3, 40.0), NewPoint2D(-105.25, 40.0)})

	_, uncoveredLength := CoverageDifference(whole, []Line{half})
	assert.Greater(t, uncoveredLength, 1000.0)
}
