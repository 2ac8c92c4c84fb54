package geom

// metersPerDegreeApprox is used only to convert a degree-based tolerance
// into an approximate meter tolerance for Snap; it is a rough equatorial
// conversion (111,320 m/degree) intentionally not latitude-corrected, since
// it only feeds a tolerance comparison, not a stored coordinate.
const metersPerDegreeApprox = 111320.0

// Snap moves each vertex of a onto its closest-point projection on b
// whenever that projection is within tolMeters, returning the modified
// line. Vertices farther than tolMeters from b are left unchanged.
func Snap(a, b Line, tolMeters float64) Line {
	out := make([]Point, len(a.Points))
	for i, p := range a.Points {
		proj, err := ClosestPoint(b, p)
		if err != nil {
			out[i] = p
			continue
		}
		if SegmentLengthMeters(p, proj) <= tolMeters {
			if p.HasZ && !proj.HasZ {
				proj.Elevation = p.Elevation
				proj.HasZ = true
			}
			out[i] = proj
		} else {
			out[i] = p
		}
	}
	return Line{Points: dedupeAdjacent(out)}
}

// SnapDegrees is Snap with the tolerance expressed in decimal degrees
// (as configured by snap_tolerance_degrees), converted to an approximate
// meter tolerance.
func SnapDegrees(a, b Line, tolDegrees float64) Line {
	return Snap(a, b, tolDegrees*metersPerDegreeApprox)
}
