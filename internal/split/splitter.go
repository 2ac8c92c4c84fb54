package split

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/trailnet/trailnet/internal/geom"
	"github.com/trailnet/trailnet/internal/staging"
)

// Splitter runs one TrailSplitOperation to completion inside a single
// staging transaction (spec.md §4.D). It holds no mutable state across
// calls; every Split call is independent.
type Splitter struct {
	store staging.Store
	cfg   Config
}

// NewSplitter builds a Splitter against store with cfg tunables.
func NewSplitter(store staging.Store, cfg Config) *Splitter {
	return &Splitter{store: store, cfg: cfg}
}

// Split executes op's state machine: pending -> splitting -> validating ->
// {committing | rolling_back} -> {ok | failed}. On success, new segment
// rows are inserted and the original row deleted, both inside one
// transaction. On failure, nothing is written except the failure's
// SplitOperationLog (appended by the caller, typically the manager).
func (s *Splitter) Split(ctx context.Context, op TrailSplitOperation) (Outcome, error) {
	state := StatePending

	state = StateSplitting
	segments, err := s.splitGeometry(op)
	if err != nil {
		return s.fail(op, state, err), nil
	}
	if len(segments) == 0 {
		return s.fail(op, state, ErrNoSegments), nil
	}

	state = StateValidating
	if err := s.validate(op, segments); err != nil {
		return s.fail(op, state, err), nil
	}

	state = StateCommitting
	trails := s.buildSegmentTrails(op, segments)
	if err := s.commit(ctx, op.OriginalTrailID, trails); err != nil {
		state = StateRollingBack
		return s.fail(op, state, fmt.Errorf("commit: %w", err)), err
	}

	var totalKm float64
	for _, t := range trails {
		totalKm += t.LengthKm
	}
	result := staging.SplitOperationResult{
		OK:               true,
		SegmentsCreated:  len(trails),
		OriginalLengthKm: op.OriginalLengthKm,
		TotalLengthKm:    totalKm,
		LengthDiffKm:     totalKm - op.OriginalLengthKm,
	}
	if op.OriginalLengthKm > 0 {
		result.LengthDiffPct = math.Abs(result.LengthDiffKm) / op.OriginalLengthKm * 100
	}
	return Outcome{State: StateOK, Result: result, Segments: trails}, nil
}

func (s *Splitter) fail(op TrailSplitOperation, state State, cause error) Outcome {
	return Outcome{
		State: StateFailed,
		Result: staging.SplitOperationResult{
			OK:    false,
			Error: cause.Error(),
		},
		FailureReason: fmt.Sprintf("%s: %s", state, cause.Error()),
	}
}

// splitGeometry implements steps 1-3 of spec.md §4.D: sort/dedupe points,
// iteratively split the current right-hand geometry, discard
// sub-minimum-length segments, and redistribute their elevation gain/loss
// proportionally across the surviving segments by length share.
func (s *Splitter) splitGeometry(op TrailSplitOperation) ([]geom.Line, error) {
	points := dedupeSplitPoints(sortedSplitPoints(op.SplitPoints), s.cfg.SplitEpsilonDegrees)

	current := op.OriginalGeometry
	var raw []geom.Line
	for _, sp := range points {
		target := geom.NewPoint2D(sp.Lng, sp.Lat)
		proj, err := geom.ClosestPoint(current, target)
		if err != nil {
			return nil, fmt.Errorf("locate split point: %w", err)
		}
		parts, err := geom.SplitByPoint(current, proj)
		if err != nil {
			return nil, fmt.Errorf("split by point: %w", err)
		}
		if len(parts) == 1 {
			// Point coincides with current's start or end; nothing new to
			// emit from this step.
			current = parts[0]
			continue
		}
		raw = append(raw, parts[0])
		current = parts[1]
	}
	raw = append(raw, current)

	return s.discardAndRedistribute(raw, op), nil
}

func sortedSplitPoints(points []SplitPoint) []SplitPoint {
	out := make([]SplitPoint, len(points))
	copy(out, points)
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceAlongM < out[j].DistanceAlongM })
	return out
}

func dedupeSplitPoints(points []SplitPoint, epsDegrees float64) []SplitPoint {
	var out []SplitPoint
	for _, p := range points {
		if len(out) > 0 {
			last := out[len(out)-1]
			if math.Abs(last.Lng-p.Lng) < epsDegrees && math.Abs(last.Lat-p.Lat) < epsDegrees {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// discardAndRedistribute drops segments shorter than MinSegmentLengthMeters.
// It does not touch elevation: buildSegmentTrails later shares the original
// gain/loss among the surviving segments in proportion to their length, so
// total gain/loss is conserved.
func (s *Splitter) discardAndRedistribute(raw []geom.Line, op TrailSplitOperation) []geom.Line {
	var kept []geom.Line
	for _, l := range raw {
		if geom.LengthGeodesicMeters(l) >= s.cfg.MinSegmentLengthMeters {
			kept = append(kept, l)
		}
	}
	return kept
}

// validate runs the three checks spec.md §4.D requires before any write.
func (s *Splitter) validate(op TrailSplitOperation, segments []geom.Line) error {
	var sumMeters float64
	for _, seg := range segments {
		sumMeters += geom.LengthGeodesicMeters(seg)
	}
	originalMeters := op.OriginalLengthKm * 1000
	if originalMeters == 0 {
		originalMeters = geom.LengthGeodesicMeters(op.OriginalGeometry)
	}
	tolerance := math.Max(s.cfg.ValidationToleranceMeters, s.cfg.ValidationTolerancePercentage/100*originalMeters)
	if math.Abs(sumMeters-originalMeters) > tolerance {
		return fmt.Errorf("%w: sum=%.3fm original=%.3fm tolerance=%.3fm", ErrLengthViolation, sumMeters, originalMeters, tolerance)
	}

	uncoveredArea, uncoveredLength := geom.CoverageDifference(op.OriginalGeometry, segments)
	if uncoveredLength > 0.001 || uncoveredArea > 1e-6 {
		return fmt.Errorf("%w: uncovered_length=%.6fm uncovered_area=%.9f", ErrCoverageViolation, uncoveredLength, uncoveredArea)
	}

	for i := 0; i < len(segments); i++ {
		for j := i + 1; j < len(segments); j++ {
			overlap := geom.OverlapAreaApprox(segments[i], segments[j])
			if overlap > 1e-6 {
				return fmt.Errorf("%w: segments %d,%d overlap=%.9f", ErrContinuityViolation, i, j, overlap)
			}
		}
	}
	return nil
}

// buildSegmentTrails assigns fresh ids, inherited metadata, and
// proportionally-redistributed elevation to each surviving segment
// (spec.md §4.D step 6).
func (s *Splitter) buildSegmentTrails(op TrailSplitOperation, segments []geom.Line) []staging.Trail {
	var totalMeters float64
	for _, seg := range segments {
		totalMeters += geom.LengthGeodesicMeters(seg)
	}

	rounded := make([]geom.Line, len(segments))
	for i, seg := range segments {
		rounded[i] = geom.CoordinateRound(seg, s.cfg.CoordinateRoundDecimals)
	}

	out := make([]staging.Trail, len(rounded))
	for i, seg := range rounded {
		lengthMeters := geom.LengthGeodesicMeters(seg)
		share := 0.0
		if totalMeters > 0 {
			share = lengthMeters / totalMeters
		}
		name := op.OriginalTrailName
		if len(rounded) >= 2 {
			name = fmt.Sprintf("%s Segment %d", op.OriginalTrailName, i+1)
		}
		bound := seg.Bound()
		out[i] = staging.Trail{
			TrailID:         newTrailID(),
			Name:            name,
			Region:          op.Region,
			TrailType:       op.TrailType,
			Surface:         op.Surface,
			Difficulty:      op.Difficulty,
			Geometry:        seg,
			LengthKm:        lengthMeters / 1000,
			Elevation: staging.ElevationStats{
				Gain:     op.OriginalElevationGain * share,
				Loss:     op.OriginalElevationLoss * share,
				HasStats: seg.Is3D(),
			},
			BBox: staging.BoundingBox{
				MinLng: bound.Min[0], MinLat: bound.Min[1],
				MaxLng: bound.Max[0], MaxLat: bound.Max[1],
			},
			Source:          op.Source,
			OriginalTrailID: op.OriginalTrailID,
		}
	}
	return out
}

func (s *Splitter) commit(ctx context.Context, originalTrailID string, trails []staging.Trail) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := tx.InsertTrails(ctx, trails); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert segments: %w", err)
	}
	if err := tx.DeleteTrail(ctx, originalTrailID); err != nil {
		tx.Rollback()
		return fmt.Errorf("delete original: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
