package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/trailnet/trailnet/internal/config"
	"github.com/trailnet/trailnet/internal/dedup"
	"github.com/trailnet/trailnet/internal/geom"
	"github.com/trailnet/trailnet/internal/graph"
	"github.com/trailnet/trailnet/internal/intersect"
	"github.com/trailnet/trailnet/internal/snapshot"
	"github.com/trailnet/trailnet/internal/split"
	"github.com/trailnet/trailnet/internal/staging"
	"github.com/trailnet/trailnet/internal/validate"
)

// RunInput is what a single pipeline run consumes: the ingested trail
// corpus plus an optional snapshot export destination.
type RunInput struct {
	Trails       []staging.Trail
	ExportPath   string // empty skips the snapshot export step
	RegionLabel  string // used for the single region_metadata row when exporting
}

// RunResult is everything a caller (the CLI, a test) inspects after a run.
type RunResult struct {
	SplitCounters  split.Counters
	DedupComponents []dedup.Component
	Nodes          []graph.Node
	Edges          []graph.Edge
	Report         *validate.Report
	SnapshotPath   string
}

// Runner ties components A-I together into the linear, single-threaded
// sequence spec.md §2's data-flow diagram specifies: load -> detect ->
// split -> dedup -> synthesize -> export -> validate.
type Runner struct {
	store staging.Store
	cfg   config.PipelineConfig
	log   *logrus.Entry
}

// NewRunner builds a Runner bound to store for the duration of one run
// (spec.md §5 "the working namespace is exclusively owned by the current
// run").
func NewRunner(store staging.Store, cfg config.PipelineConfig, log *logrus.Entry) *Runner {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Runner{store: store, cfg: cfg, log: log}
}

// Run executes one full pipeline pass over in.Trails.
func (r *Runner) Run(ctx context.Context, in RunInput) (RunResult, error) {
	if err := r.store.CreateNamespace(ctx); err != nil {
		return RunResult{}, NewRunError(KindSystemFault, fmt.Errorf("create namespace: %w", err))
	}

	var preSplitTotalKm float64
	for _, t := range in.Trails {
		preSplitTotalKm += t.LengthKm
	}
	if err := r.store.LoadTrails(ctx, in.Trails); err != nil {
		return RunResult{}, NewRunError(KindSystemFault, fmt.Errorf("load trails: %w", err))
	}
	r.log.WithFields(logrus.Fields{"trails": len(in.Trails), "total_km": preSplitTotalKm}).Info("trails loaded")

	detector := intersect.New(r.store, intersect.Config{
		IntersectionToleranceMeters:  r.cfg.IntersectionToleranceMeters,
		TIntersectionToleranceMeters: r.cfg.TIntersectionToleranceMeters,
		MinTrailLengthMeters:         r.cfg.MinSegmentLengthMeters,
		ClusterRadiusMeters:          r.cfg.IntersectionToleranceMeters / 2,
		SnapToleranceDegrees:         r.cfg.SnapToleranceDegrees,
		BatchSize:                    500,
	}, r.log)
	points, err := detector.Run(ctx)
	if err != nil {
		return RunResult{}, NewRunError(KindSystemFault, fmt.Errorf("detect intersections: %w", err))
	}
	r.log.WithField("points", len(points)).Info("intersections detected")

	manager := split.NewManager(r.store, split.Config{
		MinSegmentLengthMeters:        r.cfg.MinSegmentLengthMeters,
		ValidationToleranceMeters:     r.cfg.ValidationToleranceMeters,
		ValidationTolerancePercentage: r.cfg.ValidationTolerancePercentage,
		SplitEpsilonDegrees:           geom.SplitEpsilonDegrees,
		CoordinateRoundDecimals:       r.cfg.CoordinateRoundDecimals,
	}, r.log)

	if err := r.runSplits(ctx, manager, in.Trails, points); err != nil {
		return RunResult{}, err
	}

	if err := manager.ValidateGeometryIntegrity(r.cfg.ValidationTolerancePercentage); err != nil {
		return RunResult{}, NewRunError(KindIntegrityViolation, fmt.Errorf("%s: %w", manager.Summary(), err))
	}

	deduplicator := dedup.New(r.store, manager, dedup.DefaultConfig(), r.log)
	components, err := deduplicator.Run(ctx)
	if err != nil {
		return RunResult{}, NewRunError(KindSystemFault, fmt.Errorf("deduplicate: %w", err))
	}
	r.log.WithField("components", len(components)).Info("deduplication complete")

	synthesizer := graph.New(r.store, graph.Config{IntersectionToleranceMeters: r.cfg.IntersectionToleranceMeters}, r.log)
	nodes, edges, err := synthesizer.Run(ctx)
	if err != nil {
		return RunResult{}, NewRunError(KindSystemFault, fmt.Errorf("synthesize graph: %w", err))
	}

	result := RunResult{
		SplitCounters:   manager.Counters(),
		DedupComponents: components,
		Nodes:           nodes,
		Edges:           edges,
	}

	if in.ExportPath != "" {
		path, err := r.export(ctx, in, nodes, edges)
		if err != nil {
			return result, err
		}
		result.SnapshotPath = path
	}

	validator := validate.New(r.store, validate.Config{
		ValidationToleranceMeters:     r.cfg.ValidationToleranceMeters,
		ValidationTolerancePercentage: r.cfg.ValidationTolerancePercentage,
	}, r.log)
	report, err := validator.Run(ctx, validate.Input{Nodes: nodes, Edges: edges, PreSplitTotalLengthKm: preSplitTotalKm})
	if err != nil {
		return result, NewRunError(KindSystemFault, fmt.Errorf("validate: %w", err))
	}
	result.Report = report
	return result, nil
}

// runSplits groups detected intersection points by the trail they fall
// strictly interior to, and routes every resulting split through the
// central manager (spec.md §4.E "all mutations funnel through it").
func (r *Runner) runSplits(ctx context.Context, manager *split.Manager, trails []staging.Trail, points []staging.IntersectionPoint) error {
	opsByTrail := buildSplitOperations(trails, points, r.cfg.MinSegmentLengthMeters)
	for trailID, op := range opsByTrail {
		outcome, err := manager.Split(ctx, "pipeline", op)
		if err != nil {
			return NewRunError(KindSystemFault, fmt.Errorf("split %s: %w", trailID, err))
		}
		if outcome.State != split.StateOK {
			if errors.Is(err, split.ErrLengthViolation) ||
				errors.Is(err, split.ErrCoverageViolation) ||
				errors.Is(err, split.ErrContinuityViolation) ||
				errors.Is(err, split.ErrNoSegments) {
				// Operation-local failure: already rolled back and logged
				// by the manager. The run continues (spec.md §7).
				continue
			}
			r.log.WithFields(logrus.Fields{"trail_id": trailID, "reason": outcome.FailureReason}).Warn("split failed, continuing run")
		}
	}
	return nil
}

// buildSplitOperations computes, per trail, the set of split points that
// fall strictly interior to that trail's own geometry (excluding points
// within half a minimum-segment-length of either of the trail's own
// endpoints, since a point that coincides with a trail's own endpoint
// needs no split there — spec.md §4.C's t_endpoint/y_endpoint cases mark
// the *other*, interior trail for splitting).
func buildSplitOperations(trails []staging.Trail, points []staging.IntersectionPoint, minSegmentLengthMeters float64) map[string]split.TrailSplitOperation {
	byID := make(map[string]staging.Trail, len(trails))
	for _, t := range trails {
		byID[t.TrailID] = t
	}

	splitPoints := make(map[string][]split.SplitPoint)
	for _, pt := range points {
		for _, trailID := range pt.TrailIDs {
			trail, ok := byID[trailID]
			if !ok {
				continue
			}
			lengthM := geom.LengthGeodesicMeters(trail.Geometry)
			distAlongM, err := geom.DistanceAlongMeters(trail.Geometry, pt.Point)
			if err != nil {
				continue
			}
			margin := minSegmentLengthMeters / 2
			if distAlongM < margin || distAlongM > lengthM-margin {
				continue // coincides with this trail's own endpoint
			}
			splitPoints[trailID] = append(splitPoints[trailID], split.SplitPoint{
				Lng: pt.Point.Lng, Lat: pt.Point.Lat, DistanceAlongM: distAlongM,
			})
		}
	}

	ops := make(map[string]split.TrailSplitOperation, len(splitPoints))
	for trailID, pts := range splitPoints {
		t := byID[trailID]
		ops[trailID] = split.TrailSplitOperation{
			OriginalTrailID:       t.TrailID,
			OriginalTrailName:     t.Name,
			OriginalGeometry:      t.Geometry,
			OriginalLengthKm:      t.LengthKm,
			OriginalElevationGain: t.Elevation.Gain,
			OriginalElevationLoss: t.Elevation.Loss,
			Region:                t.Region,
			TrailType:             t.TrailType,
			Surface:               t.Surface,
			Difficulty:            t.Difficulty,
			Source:                t.Source,
			SplitPoints:           pts,
		}
	}
	return ops
}

// export builds a snapshot.Input from the current trail set plus the
// synthesized graph and writes it to in.ExportPath.
func (r *Runner) export(ctx context.Context, in RunInput, nodes []graph.Node, edges []graph.Edge) (string, error) {
	trails, err := r.store.AllTrails(ctx)
	if err != nil {
		return "", NewRunError(KindSystemFault, fmt.Errorf("load trails for export: %w", err))
	}

	snapInput := snapshot.Input{}
	var minLng, minLat, maxLng, maxLat float64
	first := true
	for _, t := range trails {
		row, err := snapshot.FromStagingTrail(t)
		if err != nil {
			return "", NewRunError(KindInputInvalid, err)
		}
		snapInput.Trails = append(snapInput.Trails, row)
		if first || t.BBox.MinLng < minLng {
			minLng = t.BBox.MinLng
		}
		if first || t.BBox.MinLat < minLat {
			minLat = t.BBox.MinLat
		}
		if first || t.BBox.MaxLng > maxLng {
			maxLng = t.BBox.MaxLng
		}
		if first || t.BBox.MaxLat > maxLat {
			maxLat = t.BBox.MaxLat
		}
		first = false
	}
	for _, n := range nodes {
		row, err := snapshot.FromGraphNode(n)
		if err != nil {
			return "", NewRunError(KindInputInvalid, err)
		}
		snapInput.Nodes = append(snapInput.Nodes, row)
	}
	for _, e := range edges {
		row, err := snapshot.FromGraphEdge(e)
		if err != nil {
			return "", NewRunError(KindInputInvalid, err)
		}
		snapInput.Edges = append(snapInput.Edges, row)
	}
	snapInput.Regions = []snapshot.RegionMetadata{{
		Region: in.RegionLabel, TrailCount: len(snapInput.Trails), NodeCount: len(nodes), EdgeCount: len(edges),
		MinLng: minLng, MinLat: minLat, MaxLng: maxLng, MaxLat: maxLat,
	}}

	writer := snapshot.NewWriter(snapshot.Config{MaxSnapshotSizeMB: r.cfg.MaxSnapshotSizeMB}, r.log)
	if err := writer.Write(ctx, in.ExportPath, snapInput); err != nil {
		if errors.Is(err, snapshot.ErrSizeBudgetExceeded) {
			return "", NewRunError(KindResourceLimit, err)
		}
		return "", NewRunError(KindSystemFault, err)
	}
	return in.ExportPath, nil
}
