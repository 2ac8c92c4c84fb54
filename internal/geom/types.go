// Package geom implements the 2D/3D polyline primitives the trail-network
// pipeline is built on: geodesic length, closest-point projection, point
// interpolation, splitting, snapping, and intersection.
//
// All coordinates are geographic (WGS84, longitude/latitude in degrees).
// Elevation, when present, is carried alongside the planar geometry rather
// than folded into it, since the underlying orb.LineString is 2D-only.
// Conversion to and from the 2D orb representation is exported (Planar,
// FromPlanar, Bound) and is used for length and bounding-box computation.
package geom

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// ErrTooFewPoints is returned when a line has fewer than two points.
var ErrTooFewPoints = errors.New("geom: line must have at least two points")

// ErrEmptyLine is returned by operations that require at least one point.
var ErrEmptyLine = errors.New("geom: line has no points")

// ErrPointOutsideLine is returned when a point cannot be located on a line.
var ErrPointOutsideLine = errors.New("geom: point does not project onto line")

// Point is a single WGS84 vertex. Elevation is optional; HasZ reports
// whether Elevation carries a meaningful value.
type Point struct {
	Lng       float64
	Lat       float64
	Elevation float64
	HasZ      bool
}

// NewPoint2D builds a Point with no elevation.
func NewPoint2D(lng, lat float64) Point {
	return Point{Lng: lng, Lat: lat}
}

// NewPoint3D builds a Point with elevation.
func NewPoint3D(lng, lat, elevation float64) Point {
	return Point{Lng: lng, Lat: lat, Elevation: elevation, HasZ: true}
}

// Planar returns the orb.Point projection of p, dropping elevation.
func (p Point) Planar() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// String renders the point as "lng lat" or "lng lat z".
func (p Point) String() string {
	if p.HasZ {
		return fmt.Sprintf("%.7f %.7f %.2f", p.Lng, p.Lat, p.Elevation)
	}
	return fmt.Sprintf("%.7f %.7f", p.Lng, p.Lat)
}

// Line is an ordered, simple (non-self-intersecting) polyline of two or
// more points. A Line is 3D iff every point HasZ.
type Line struct {
	Points []Point
}

// NewLine builds a Line from points, returning ErrTooFewPoints if fewer
// than two points are given.
func NewLine(points []Point) (Line, error) {
	if len(points) < 2 {
		return Line{}, ErrTooFewPoints
	}
	return Line{Points: points}, nil
}

// Is3D reports whether every vertex of l carries elevation.
func (l Line) Is3D() bool {
	if len(l.Points) == 0 {
		return false
	}
	for _, p := range l.Points {
		if !p.HasZ {
			return false
		}
	}
	return true
}

// Planar returns the orb.LineString projection of l, dropping elevation.
func (l Line) Planar() orb.LineString {
	ls := make(orb.LineString, len(l.Points))
	for i, p := range l.Points {
		ls[i] = p.Planar()
	}
	return ls
}

// Elevations returns the parallel elevation slice for l (zero-valued where
// a vertex has no Z).
func (l Line) Elevations() []float64 {
	out := make([]float64, len(l.Points))
	for i, p := range l.Points {
		out[i] = p.Elevation
	}
	return out
}

// Bound returns the 2D bounding box of l.
func (l Line) Bound() orb.Bound {
	return l.Planar().Bound()
}

// FromPlanar rebuilds a Line from an orb.LineString and a parallel
// elevation slice. If elevations is nil, the resulting Line is 2D.
func FromPlanar(ls orb.LineString, elevations []float64) Line {
	pts := make([]Point, len(ls))
	for i, c := range ls {
		if elevations != nil && i < len(elevations) {
			pts[i] = NewPoint3D(c[0], c[1], elevations[i])
		} else {
			pts[i] = NewPoint2D(c[0], c[1])
		}
	}
	return Line{Points: pts}
}

// Clone returns a deep copy of l.
func (l Line) Clone() Line {
	pts := make([]Point, len(l.Points))
	copy(pts, l.Points)
	return Line{Points: pts}
}
