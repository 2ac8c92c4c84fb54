package geom

import "math"

// SplitEpsilonDegrees is the micro-tolerance under which two adjacent
// vertices count as the same point, used to discard a zero-length output of
// a split.
// 1e-6 degrees is roughly 11cm at the equator, matching CoordinateRound's
// 6-decimal normalization.
const SplitEpsilonDegrees = 1e-6

// SplitByPoint splits l at the closest-point projection of p onto l.
//
// If the projection lands on an interior vertex or segment, two linestrings
// are returned (left, right). If it lands on either endpoint (fractional
// position on the first or last segment within 1e-9 of the line's start or
// end), a single linestring equal to l is returned. Segments
// that would be zero-length after buffering by SplitEpsilonDegrees are
// discarded, so this never returns an empty-length member.
func SplitByPoint(l Line, p Point) ([]Line, error) {
	proj, err := closestProjection(l, p)
	if err != nil {
		return nil, err
	}

	// Endpoint cases: projection lands on the very first or very last vertex.
	if proj.segmentIndex == 0 && nearlyEqual(proj.u, 0) {
		return []Line{l.Clone()}, nil
	}
	last := len(l.Points) - 2
	if proj.segmentIndex == last && nearlyEqual(proj.u, 1) {
		return []Line{l.Clone()}, nil
	}

	splitPoint := proj.point

	// Interior vertex coincidence: the projection lands exactly on an
	// existing interior vertex, so the split point IS that vertex.
	if nearlyEqual(proj.u, 0) {
		left := append(append([]Point{}, l.Points[:proj.segmentIndex+1]...))
		right := append([]Point{}, l.Points[proj.segmentIndex:]...)
		return dropDegenerate(left, right), nil
	}
	if nearlyEqual(proj.u, 1) {
		left := append([]Point{}, l.Points[:proj.segmentIndex+2]...)
		right := append([]Point{}, l.Points[proj.segmentIndex+1:]...)
		return dropDegenerate(left, right), nil
	}

	left := make([]Point, 0, proj.segmentIndex+2)
	left = append(left, l.Points[:proj.segmentIndex+1]...)
	left = append(left, splitPoint)

	right := make([]Point, 0, len(l.Points)-proj.segmentIndex)
	right = append(right, splitPoint)
	right = append(right, l.Points[proj.segmentIndex+1:]...)

	return dropDegenerate(left, right), nil
}

// dropDegenerate discards either side whose length collapses to zero under
// SplitEpsilonDegrees buffering (fewer than two distinct points).
func dropDegenerate(left, right []Point) []Line {
	out := make([]Line, 0, 2)
	if len(dedupeAdjacent(left)) >= 2 {
		out = append(out, Line{Points: left})
	}
	if len(dedupeAdjacent(right)) >= 2 {
		out = append(out, Line{Points: right})
	}
	if len(out) == 0 {
		// Both sides degenerate: fall back to the original line rather than
		// producing nothing.
		out = append(out, Line{Points: append(left, right...)})
	}
	return out
}

// dedupeAdjacent returns pts with consecutive duplicate vertices (within
// SplitEpsilonDegrees) collapsed, required by the Trail geometry-validity
// invariant ("no duplicate consecutive vertices").
func dedupeAdjacent(pts []Point) []Point {
	if len(pts) == 0 {
		return pts
	}
	out := make([]Point, 0, len(pts))
	out = append(out, pts[0])
	for _, p := range pts[1:] {
		prev := out[len(out)-1]
		if math.Abs(p.Lng-prev.Lng) < SplitEpsilonDegrees && math.Abs(p.Lat-prev.Lat) < SplitEpsilonDegrees {
			continue
		}
		out = append(out, p)
	}
	return out
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// CoordinateRound rounds every vertex of l to decimals decimal places,
// normalizing near-equal coordinates prior to Snap. 6 decimals corresponds
// to roughly 11cm of precision at the equator.
func CoordinateRound(l Line, decimals int) Line {
	factor := math.Pow(10, float64(decimals))
	out := make([]Point, len(l.Points))
	for i, p := range l.Points {
		rp := Point{
			Lng:  math.Round(p.Lng*factor) / factor,
			Lat:  math.Round(p.Lat*factor) / factor,
			HasZ: p.HasZ,
		}
		if p.HasZ {
			rp.Elevation = math.Round(p.Elevation*factor) / factor
		}
		out[i] = rp
	}
	return Line{Points: out}
}
