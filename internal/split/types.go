// Package split implements the atomic trail splitter (spec.md §4.D) and the
// central split manager that mediates every mutation to the trail set
// (spec.md §4.E).
package split

import (
	"errors"

	"github.com/google/uuid"

	"github.com/trailnet/trailnet/internal/geom"
	"github.com/trailnet/trailnet/internal/staging"
)

// ErrLengthViolation is returned when the post-split total length diverges
// from the original by more than the configured tolerance.
var ErrLengthViolation = errors.New("split: length conservation violated")

// ErrCoverageViolation is returned when the split segments fail to cover
// the original geometry within tolerance.
var ErrCoverageViolation = errors.New("split: coverage violated")

// ErrContinuityViolation is returned when adjacent segments overlap beyond
// precision tolerance.
var ErrContinuityViolation = errors.New("split: continuity violated")

// ErrNoSegments is returned when every candidate segment was discarded as
// sub-minimum-length, leaving nothing to commit.
var ErrNoSegments = errors.New("split: no segments survived minimum-length filtering")

// State is one state of the per-operation state machine (spec.md §4.D).
type State string

const (
	StatePending     State = "pending"
	StateSplitting   State = "splitting"
	StateValidating  State = "validating"
	StateCommitting  State = "committing"
	StateRollingBack State = "rolling_back"
	StateOK          State = "ok"
	StateFailed      State = "failed"
)

// SplitPoint is one point a trail is to be split at.
type SplitPoint struct {
	Lng             float64
	Lat             float64
	DistanceAlongM  float64
}

// TrailSplitOperation describes one atomic split (spec.md §4.D).
type TrailSplitOperation struct {
	OriginalTrailID       string
	OriginalTrailName     string
	OriginalGeometry      geom.Line
	OriginalLengthKm      float64
	OriginalElevationGain float64
	OriginalElevationLoss float64
	Region                string
	TrailType             string
	Surface               string
	Difficulty            string
	Source                string
	SplitPoints           []SplitPoint
}

// Config holds the splitter's tunables (spec.md §6).
type Config struct {
	MinSegmentLengthMeters        float64 // default 5.0
	ValidationToleranceMeters     float64 // default 1.0
	ValidationTolerancePercentage float64 // default 0.1 (percent, not fraction)
	SplitEpsilonDegrees           float64 // default geom.SplitEpsilonDegrees
	CoordinateRoundDecimals       int     // default 6
}

// DefaultConfig returns spec.md §6's documented default tunables.
func DefaultConfig() Config {
	return Config{
		MinSegmentLengthMeters:        5.0,
		ValidationToleranceMeters:     1.0,
		ValidationTolerancePercentage: 0.1,
		SplitEpsilonDegrees:           geom.SplitEpsilonDegrees,
		CoordinateRoundDecimals:       6,
	}
}

// Outcome is the result of one split attempt.
type Outcome struct {
	State     State
	Result    staging.SplitOperationResult
	Segments  []staging.Trail
	FailureReason string
}

func newTrailID() string {
	return uuid.NewString()
}
