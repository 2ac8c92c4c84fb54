package geom

import "math"

// segmentProjection describes the closest point of a query point onto one
// segment of a line.
type segmentProjection struct {
	segmentIndex int     // index i such that the segment is Points[i]->Points[i+1]
	u            float64 // fractional position along the segment, in [0,1]
	point        Point   // the projected point itself
	distance     float64 // geodesic distance from the query point to point
}

// closestOnSegment projects p onto the segment a->b using a local
// equirectangular approximation (longitude scaled by cos(latitude) at the
// segment midpoint), which is accurate enough at trail-segment scale
// (tens of meters to a few kilometers) without needing a full geodesic
// projection solver.
func closestOnSegment(a, b, p Point) (u float64, proj Point) {
	latRef := (a.Lat + b.Lat) / 2.0
	cosLat := math.Cos(latRef * math.Pi / 180.0)
	if cosLat < 1e-9 {
		cosLat = 1e-9
	}

	ax, ay := a.Lng*cosLat, a.Lat
	bx, by := b.Lng*cosLat, b.Lat
	px, py := p.Lng*cosLat, p.Lat

	dx, dy := bx-ax, by-ay
	segLenSq := dx*dx + dy*dy

	if segLenSq == 0 {
		return 0, a
	}

	t := ((px-ax)*dx + (py-ay)*dy) / segLenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	lng := a.Lng + t*(b.Lng-a.Lng)
	lat := a.Lat + t*(b.Lat-a.Lat)

	if a.HasZ && b.HasZ {
		elev := a.Elevation + t*(b.Elevation-a.Elevation)
		return t, NewPoint3D(lng, lat, elev)
	}
	return t, NewPoint2D(lng, lat)
}

// closestProjection finds the closest projection of p onto any segment of
// l, breaking ties by the earliest segment.
func closestProjection(l Line, p Point) (segmentProjection, error) {
	if len(l.Points) == 0 {
		return segmentProjection{}, ErrEmptyLine
	}
	if len(l.Points) < 2 {
		return segmentProjection{}, ErrTooFewPoints
	}

	best := segmentProjection{distance: math.Inf(1)}
	for i := 0; i < len(l.Points)-1; i++ {
		u, proj := closestOnSegment(l.Points[i], l.Points[i+1], p)
		d := SegmentLengthMeters(proj, p)
		if d < best.distance {
			best = segmentProjection{segmentIndex: i, u: u, point: proj, distance: d}
		}
	}
	return best, nil
}

// cumulativeLengths returns the geodesic distance, in meters, from
// Points[0] to each vertex, and the total length.
func cumulativeLengths(l Line) (cum []float64, total float64) {
	cum = make([]float64, len(l.Points))
	for i := 1; i < len(l.Points); i++ {
		d := SegmentLengthMeters(l.Points[i-1], l.Points[i])
		cum[i] = cum[i-1] + d
	}
	if len(cum) > 0 {
		total = cum[len(cum)-1]
	}
	return cum, total
}

// ClosestPoint returns the closest point on l to p.
func ClosestPoint(l Line, p Point) (Point, error) {
	proj, err := closestProjection(l, p)
	if err != nil {
		return Point{}, err
	}
	return proj.point, nil
}

// LineLocate returns the fractional position t in [0,1] of the closest-point
// projection of p onto l, measured by geodesic distance along l.
func LineLocate(l Line, p Point) (float64, error) {
	proj, err := closestProjection(l, p)
	if err != nil {
		return 0, err
	}
	cum, total := cumulativeLengths(l)
	if total == 0 {
		return 0, nil
	}
	segLen := SegmentLengthMeters(l.Points[proj.segmentIndex], l.Points[proj.segmentIndex+1])
	distAlong := cum[proj.segmentIndex] + proj.u*segLen
	return distAlong / total, nil
}

// DistanceAlongMeters returns the geodesic distance, in meters, from the
// start of l to the closest-point projection of p.
func DistanceAlongMeters(l Line, p Point) (float64, error) {
	t, err := LineLocate(l, p)
	if err != nil {
		return 0, err
	}
	_, total := cumulativeLengths(l)
	return t * total, nil
}

// LineInterpolate returns the point at fractional position t in [0,1] along
// l, measured by geodesic distance.
func LineInterpolate(l Line, t float64) (Point, error) {
	if len(l.Points) == 0 {
		return Point{}, ErrEmptyLine
	}
	if len(l.Points) < 2 {
		return Point{}, ErrTooFewPoints
	}
	if t <= 0 {
		return l.Points[0], nil
	}
	if t >= 1 {
		return l.Points[len(l.Points)-1], nil
	}

	cum, total := cumulativeLengths(l)
	if total == 0 {
		return l.Points[0], nil
	}
	target := t * total

	for i := 1; i < len(cum); i++ {
		if cum[i] >= target {
			segStart, segEnd := cum[i-1], cum[i]
			segLen := segEnd - segStart
			var u float64
			if segLen > 0 {
				u = (target - segStart) / segLen
			}
			a, b := l.Points[i-1], l.Points[i]
			lng := a.Lng + u*(b.Lng-a.Lng)
			lat := a.Lat + u*(b.Lat-a.Lat)
			if a.HasZ && b.HasZ {
				return NewPoint3D(lng, lat, a.Elevation+u*(b.Elevation-a.Elevation)), nil
			}
			return NewPoint2D(lng, lat), nil
		}
	}
	return l.Points[len(l.Points)-1], nil
}
