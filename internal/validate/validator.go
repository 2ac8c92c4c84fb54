package validate

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/trailnet/trailnet/internal/graph"
	"github.com/trailnet/trailnet/internal/staging"
)

// Input bundles everything a validation pass needs: the post-pipeline trail
// set (read from the staging store), the synthesized graph, and the
// pre-split baseline length recorded before any split ran (spec.md §4.I
// "whole-set length conservation against the pre-split input").
type Input struct {
	Nodes                 []graph.Node
	Edges                 []graph.Edge
	PreSplitTotalLengthKm float64
}

// Validator runs the read-only post-hoc checks of spec.md §4.I.
type Validator struct {
	store staging.Store
	cfg   Config
	log   *logrus.Entry
}

// New builds a Validator.
func New(store staging.Store, cfg Config, log *logrus.Entry) *Validator {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Validator{store: store, cfg: cfg, log: log}
}

// Run executes every check and returns the accumulated Report. A non-empty
// Report is not itself an error — callers decide whether findings are
// fatal (spec.md §7 classifies integrity-check failures as propagating to
// the run boundary; the validator itself only reports).
func (v *Validator) Run(ctx context.Context, in Input) (*Report, error) {
	report := NewReport()

	trails, err := v.store.AllTrails(ctx)
	if err != nil {
		return nil, fmt.Errorf("validate: load trails: %w", err)
	}

	nodeByID := make(map[int]graph.Node, len(in.Nodes))
	for _, n := range in.Nodes {
		nodeByID[n.NodeID] = n
	}

	v.checkReferentialAndLength(report, in.Edges, nodeByID)
	v.checkConnectivity(report, in.Nodes, in.Edges)
	v.checkNodeTyping(report, in.Nodes)
	v.checkElevationPresence(report, trails)
	v.checkLengthConservation(report, trails, in.PreSplitTotalLengthKm)

	v.log.WithField("findings", len(report.Findings)).Info("validation pass complete")
	return report, nil
}

// checkReferentialAndLength verifies every edge references existing nodes,
// has distinct source/target (no self-loops), and distance_km > 0.
func (v *Validator) checkReferentialAndLength(report *Report, edges []graph.Edge, nodeByID map[int]graph.Node) {
	for _, e := range edges {
		if _, ok := nodeByID[e.SourceNode]; !ok {
			report.Add("referential", e.EdgeID, fmt.Sprintf("source_node %d does not exist", e.SourceNode))
		}
		if _, ok := nodeByID[e.TargetNode]; !ok {
			report.Add("referential", e.EdgeID, fmt.Sprintf("target_node %d does not exist", e.TargetNode))
		}
		if e.SourceNode == e.TargetNode {
			report.Add("no-self-loop", e.EdgeID, "source_node equals target_node")
		}
		if e.DistanceKm <= 0 {
			report.Add("length", e.EdgeID, fmt.Sprintf("distance_km %.6f is not > 0", e.DistanceKm))
		}
		source, target := nodeByID[e.SourceNode], nodeByID[e.TargetNode]
		if !sharesTrail(source, e.TrailID) || !sharesTrail(target, e.TrailID) {
			report.Add("shared-trail-invariant", e.EdgeID,
				fmt.Sprintf("trail_id %s not present in both endpoint nodes' connected_trail_ids", e.TrailID))
		}
	}
}

func sharesTrail(n graph.Node, trailID string) bool {
	for _, id := range n.ConnectedTrailIDs {
		if id == trailID {
			return true
		}
	}
	return false
}

// checkConnectivity flags any node touched by zero edges (an orphan).
func (v *Validator) checkConnectivity(report *Report, nodes []graph.Node, edges []graph.Edge) {
	touched := make(map[int]bool, len(nodes))
	for _, e := range edges {
		touched[e.SourceNode] = true
		touched[e.TargetNode] = true
	}
	for _, n := range nodes {
		if !touched[n.NodeID] {
			report.Add("connectivity", fmt.Sprintf("node %d", n.NodeID), "node has no incident edges")
		}
	}
}

// checkNodeTyping verifies nodes with >=2 distinct connected_trail_ids are
// typed intersection, and all others endpoint, with at least one trail id.
func (v *Validator) checkNodeTyping(report *Report, nodes []graph.Node) {
	for _, n := range nodes {
		subject := fmt.Sprintf("node %d", n.NodeID)
		if len(n.ConnectedTrailIDs) == 0 {
			report.Add("node-typing", subject, "node has no connected_trail_ids")
			continue
		}
		wantType := graph.NodeEndpoint
		if len(n.ConnectedTrailIDs) >= 2 {
			wantType = graph.NodeIntersection
		}
		if n.NodeType != wantType {
			report.Add("node-typing", subject,
				fmt.Sprintf("has %d connected trails but is typed %q, want %q",
					len(n.ConnectedTrailIDs), n.NodeType, wantType))
		}
	}
}

// checkElevationPresence verifies every 3D trail has all of
// gain/loss/min/max/avg populated (spec.md §4.H, enforced here against the
// working set as well as the export).
func (v *Validator) checkElevationPresence(report *Report, trails []staging.Trail) {
	for _, t := range trails {
		if !t.Geometry.Is3D() {
			continue
		}
		if !t.Elevation.HasStats {
			report.Add("elevation-presence", t.TrailID, "3D trail missing elevation stats")
			continue
		}
		if t.Elevation.Min > t.Elevation.Avg || t.Elevation.Avg > t.Elevation.Max {
			report.Add("elevation-presence", t.TrailID,
				fmt.Sprintf("elevation stats out of order: min=%.2f avg=%.2f max=%.2f",
					t.Elevation.Min, t.Elevation.Avg, t.Elevation.Max))
		}
	}
}

// checkLengthConservation verifies the whole-set post-split total length is
// within the configured aggregate tolerance of the pre-split baseline
// (spec.md §4.I, §8 Testable property 1 generalized to the whole run).
func (v *Validator) checkLengthConservation(report *Report, trails []staging.Trail, preSplitTotalKm float64) {
	if preSplitTotalKm <= 0 {
		return // no baseline recorded (e.g. validator invoked standalone)
	}
	var total float64
	for _, t := range trails {
		total += t.LengthKm
	}
	diffKm := math.Abs(total - preSplitTotalKm)
	toleranceKm := math.Max(
		v.cfg.ValidationToleranceMeters/1000,
		preSplitTotalKm*v.cfg.ValidationTolerancePercentage/100,
	)
	if diffKm > toleranceKm {
		report.Add("length-conservation", "whole-set",
			fmt.Sprintf("post-split total %.6f km vs pre-split %.6f km, diff %.6f km exceeds tolerance %.6f km",
				total, preSplitTotalKm, diffKm, toleranceKm))
	}
}
