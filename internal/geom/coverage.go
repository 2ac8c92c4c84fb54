package geom

import "math"

// coverageSampleStepMeters controls how densely whole is sampled when
// checking coverage by parts; fine enough to catch sub-meter gaps without
// the cost of a full polygon-buffer computation.
const coverageSampleStepMeters = 0.5

// CoverageDifference estimates how much of whole is NOT covered by the
// union of parts, used to validate a split's completeness (spec.md 4.D
// "coverage" check). It samples whole at coverageSampleStepMeters
// intervals and, for each sample, finds the minimum distance to any line
// in parts; samples farther than 1 mm from every part are counted as
// uncovered.
//
// uncoveredLength is the fraction of samples that are uncovered times the
// length of whole.
// uncoveredArea is a coarse proxy: uncoveredLength times a 1cm nominal
// "sliver width", adequate for comparing against the ~1e-6 area threshold
// used by the splitter (an exact polygon buffer-difference is not needed
// at that scale).
func CoverageDifference(whole Line, parts []Line) (uncoveredArea, uncoveredLength float64) {
	total := LengthGeodesicMeters(whole)
	if total == 0 || len(whole.Points) < 2 {
		return 0, 0
	}

	const nominalSliverWidthMeters = 0.01
	steps := int(math.Ceil(total / coverageSampleStepMeters))
	if steps < 1 {
		steps = 1
	}

	var uncoveredSamples int
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		p, err := LineInterpolate(whole, t)
		if err != nil {
			continue
		}
		if !coveredByAny(p, parts) {
			uncoveredSamples++
		}
	}

	fraction := float64(uncoveredSamples) / float64(steps+1)
	uncoveredLength = fraction * total
	uncoveredArea = (uncoveredLength / 1000.0) * (nominalSliverWidthMeters / 1000.0)
	return uncoveredArea, uncoveredLength
}

func coveredByAny(p Point, parts []Line) bool {
	const coverTolMeters = 1e-3 // 1mm, matching the splitter's uncovered_length budget
	for _, part := range parts {
		if len(part.Points) < 2 {
			continue
		}
		proj, err := ClosestPoint(part, p)
		if err != nil {
			continue
		}
		if SegmentLengthMeters(p, proj) <= coverTolMeters {
			return true
		}
	}
	return false
}

// CoveredFraction returns the fraction (0..1) of line's length that lies
// within bufferMeters of other, sampled the same way CoverageDifference
// samples whole. Used by the deduplicator's fuzzy overlap_ratio metric
// (spec.md §4.F), where two traces of the same physical trail rarely share
// exact coordinates the way a split's segments do.
func CoveredFraction(line, other Line, bufferMeters float64) float64 {
	total := LengthGeodesicMeters(line)
	if total == 0 || len(line.Points) < 2 {
		return 0
	}
	steps := int(math.Ceil(total / coverageSampleStepMeters))
	if steps < 1 {
		steps = 1
	}

	var coveredSamples int
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		p, err := LineInterpolate(line, t)
		if err != nil {
			continue
		}
		proj, err := ClosestPoint(other, p)
		if err != nil {
			continue
		}
		if SegmentLengthMeters(p, proj) <= bufferMeters {
			coveredSamples++
		}
	}
	return float64(coveredSamples) / float64(steps+1)
}

// OverlapAreaApprox estimates the overlap between two lines for the
// splitter's "continuity" check (pairwise overlap area between segments).
// Two lines overlap when they run collinear over a shared sub-length;
// Intersect already isolates those shared sub-segments, so the overlap
// area is derived the same way CoverageDifference derives uncovered area:
// shared length times the nominal sliver width.
func OverlapAreaApprox(a, b Line) float64 {
	result := Intersect(a, b)
	if result.Kind != IntersectionLines && result.Kind != IntersectionMixed {
		return 0
	}
	const nominalSliverWidthMeters = 0.01
	var sharedLength float64
	for _, overlap := range result.Lines {
		sharedLength += LengthGeodesicMeters(overlap)
	}
	return (sharedLength / 1000.0) * (nominalSliverWidthMeters / 1000.0)
}
