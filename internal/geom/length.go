package geom

import (
	"github.com/paulmach/orb/geo"
)

// LengthGeodesicMeters returns the haversine (great-circle) length of l on a
// spherical Earth, in meters; it is not an ellipsoidal WGS84 geodesic. The
// result is always positive for a valid Line.
func LengthGeodesicMeters(l Line) float64 {
	return geo.LengthHaversine(l.Planar())
}

// LengthGeodesicKm returns LengthGeodesicMeters converted to kilometers.
func LengthGeodesicKm(l Line) float64 {
	return LengthGeodesicMeters(l) / 1000.0
}

// SegmentLengthMeters returns the haversine (great-circle) distance between
// two points on a spherical Earth.
func SegmentLengthMeters(a, b Point) float64 {
	return geo.DistanceHaversine(a.Planar(), b.Planar())
}
