package geom

import "math"

// IntersectionKind classifies the shape of an Intersection result.
type IntersectionKind int

const (
	// IntersectionEmpty means the two lines do not meet.
	IntersectionEmpty IntersectionKind = iota
	// IntersectionPoints means the lines meet only at isolated points.
	IntersectionPoints
	// IntersectionLines means the lines overlap along one or more
	// collinear sub-segments.
	IntersectionLines
	// IntersectionMixed means both isolated points and overlapping
	// sub-segments were found.
	IntersectionMixed
)

// Intersection is the result of intersecting two lines: any combination of
// isolated points and overlapping sub-segments.
type Intersection struct {
	Kind  IntersectionKind
	Points []Point
	Lines  []Line
}

// Intersect computes the geometric intersection of a and b: point(s)
// where they cross or touch, and linestring(s) where they run collinear
// and overlapping. Points are deduplicated within SplitEpsilonDegrees;
// overlapping linestrings are returned per segment pair, without merging.
func Intersect(a, b Line) Intersection {
	var points []Point
	var lines []Line

	for i := 0; i < len(a.Points)-1; i++ {
		for j := 0; j < len(b.Points)-1; j++ {
			kind, p1, p2 := segmentIntersect(a.Points[i], a.Points[i+1], b.Points[j], b.Points[j+1])
			switch kind {
			case segHitPoint:
				points = appendUniquePoint(points, p1)
			case segHitOverlap:
				lines = append(lines, Line{Points: []Point{p1, p2}})
			}
		}
	}

	switch {
	case len(points) == 0 && len(lines) == 0:
		return Intersection{Kind: IntersectionEmpty}
	case len(points) > 0 && len(lines) > 0:
		return Intersection{Kind: IntersectionMixed, Points: points, Lines: lines}
	case len(lines) > 0:
		return Intersection{Kind: IntersectionLines, Lines: lines}
	default:
		return Intersection{Kind: IntersectionPoints, Points: points}
	}
}

type segHitKind int

const (
	segHitNone segHitKind = iota
	segHitPoint
	segHitOverlap
)

// segmentIntersect tests segments p1->p2 and p3->p4 for intersection using
// the standard parametric line-segment formula. Collinear overlaps return
// the two points bounding the shared sub-segment.
func segmentIntersect(p1, p2, p3, p4 Point) (segHitKind, Point, Point) {
	x1, y1 := p1.Lng, p1.Lat
	x2, y2 := p2.Lng, p2.Lat
	x3, y3 := p3.Lng, p3.Lat
	x4, y4 := p4.Lng, p4.Lat

	d1x, d1y := x2-x1, y2-y1
	d2x, d2y := x4-x3, y4-y3

	denom := d1x*d2y - d1y*d2x

	if math.Abs(denom) < 1e-13 {
		// Parallel or collinear; check collinear overlap.
		return collinearOverlap(p1, p2, p3, p4)
	}

	t := ((x3-x1)*d2y - (y3-y1)*d2x) / denom
	u := ((x3-x1)*d1y - (y3-y1)*d1x) / denom

	const eps = 1e-9
	if t < -eps || t > 1+eps || u < -eps || u > 1+eps {
		return segHitNone, Point{}, Point{}
	}

	lng := x1 + t*d1x
	lat := y1 + t*d1y
	return segHitPoint, NewPoint2D(lng, lat), Point{}
}

// collinearOverlap handles the parallel case: if the segments are also
// collinear and their projections onto their shared axis overlap, the
// overlapping sub-segment is returned.
func collinearOverlap(p1, p2, p3, p4 Point) (segHitKind, Point, Point) {
	// Collinearity check: cross product of (p2-p1) and (p3-p1) must be ~0.
	cross := (p2.Lng-p1.Lng)*(p3.Lat-p1.Lat) - (p2.Lat-p1.Lat)*(p3.Lng-p1.Lng)
	if math.Abs(cross) > 1e-9 {
		return segHitNone, Point{}, Point{}
	}

	// Parameterize all four points along the dominant axis of segment a.
	dx, dy := p2.Lng-p1.Lng, p2.Lat-p1.Lat
	project := func(p Point) float64 {
		if math.Abs(dx) >= math.Abs(dy) {
			if dx == 0 {
				return 0
			}
			return (p.Lng - p1.Lng) / dx
		}
		if dy == 0 {
			return 0
		}
		return (p.Lat - p1.Lat) / dy
	}

	ta0, ta1 := 0.0, 1.0
	tb0, tb1 := project(p3), project(p4)
	if tb0 > tb1 {
		tb0, tb1 = tb1, tb0
	}

	lo := math.Max(ta0, tb0)
	hi := math.Min(ta1, tb1)
	if lo > hi+1e-9 {
		return segHitNone, Point{}, Point{}
	}
	if math.Abs(hi-lo) < 1e-9 {
		// Touching at a single point.
		lng := p1.Lng + lo*dx
		lat := p1.Lat + lo*dy
		return segHitPoint, NewPoint2D(lng, lat), Point{}
	}

	start := NewPoint2D(p1.Lng+lo*dx, p1.Lat+lo*dy)
	end := NewPoint2D(p1.Lng+hi*dx, p1.Lat+hi*dy)
	return segHitOverlap, start, end
}

func appendUniquePoint(points []Point, p Point) []Point {
	for _, existing := range points {
		if math.Abs(existing.Lng-p.Lng) < SplitEpsilonDegrees && math.Abs(existing.Lat-p.Lat) < SplitEpsilonDegrees {
			return points
		}
	}
	return append(points, p)
}
