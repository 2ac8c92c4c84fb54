package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/trailnet/trailnet/internal/geom"
	"github.com/trailnet/trailnet/internal/staging"
)

// Config holds the synthesizer's tunables (spec.md §6).
type Config struct {
	IntersectionToleranceMeters float64 // default 2.0
}

// DefaultConfig returns spec.md §6's documented default.
func DefaultConfig() Config {
	return Config{IntersectionToleranceMeters: 2.0}
}

// Synthesizer produces the routing graph from the post-split trail set.
type Synthesizer struct {
	store staging.Store
	cfg   Config
	log   *logrus.Entry
}

// New builds a Synthesizer.
func New(store staging.Store, cfg Config, log *logrus.Entry) *Synthesizer {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Synthesizer{store: store, cfg: cfg, log: log}
}

// endpointCandidate is one (trail, which-end) observation prior to
// clustering.
type endpointCandidate struct {
	trailID string
	isStart bool
	point   geom.Point
}

// Run executes spec.md §4.G's four steps: emit endpoint candidates, cluster
// them into nodes, assign dense node ids in deterministic order, and
// synthesize one edge per trail between its two endpoint nodes.
func (s *Synthesizer) Run(ctx context.Context) ([]Node, []Edge, error) {
	trails, err := s.store.AllTrails(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("graph: load trails: %w", err)
	}

	candidates := make([]endpointCandidate, 0, len(trails)*2)
	for _, t := range trails {
		if len(t.Geometry.Points) < 2 {
			continue
		}
		candidates = append(candidates,
			endpointCandidate{trailID: t.TrailID, isStart: true, point: t.Geometry.Points[0]},
			endpointCandidate{trailID: t.TrailID, isStart: false, point: t.Geometry.Points[len(t.Geometry.Points)-1]},
		)
	}

	clusterOf := clusterEndpoints(candidates, s.cfg.IntersectionToleranceMeters)
	nodes, nodeIndexByCluster := buildNodes(candidates, clusterOf)

	// endpointNode[trailID][0]=start node id, [1]=end node id.
	endpointNode := make(map[string][2]int, len(trails))
	for i, c := range candidates {
		nodeID := nodeIndexByCluster[clusterOf[i]]
		entry := endpointNode[c.trailID]
		if c.isStart {
			entry[0] = nodeID
		} else {
			entry[1] = nodeID
		}
		endpointNode[c.trailID] = entry
	}

	nodeByID := make(map[int]Node, len(nodes))
	for _, n := range nodes {
		nodeByID[n.NodeID] = n
	}

	var edges []Edge
	var rejectedSelfLoops int
	for _, t := range trails {
		ids, ok := endpointNode[t.TrailID]
		if !ok {
			continue
		}
		source, target := ids[0], ids[1]
		if source == target {
			rejectedSelfLoops++
			continue
		}
		if !sharesTrail(nodeByID[source], t.TrailID) || !sharesTrail(nodeByID[target], t.TrailID) {
			// Invariant guard (spec.md §4.G step 5): should be unreachable
			// given construction above, but never silently emit an edge
			// that violates the shared-trail invariant.
			continue
		}
		edges = append(edges, Edge{
			EdgeID:         uuid.NewString(),
			SourceNode:     source,
			TargetNode:     target,
			TrailID:        t.TrailID,
			TrailName:      t.Name,
			DistanceKm:     t.LengthKm,
			ElevationGainM: t.Elevation.Gain,
			ElevationLossM: t.Elevation.Loss,
			Geometry:       t.Geometry,
		})
	}

	sortEdges(edges)
	s.log.WithFields(logrus.Fields{
		"nodes":              len(nodes),
		"edges":              len(edges),
		"rejected_self_loops": rejectedSelfLoops,
	}).Info("graph synthesis complete")
	return nodes, edges, nil
}

func sharesTrail(n Node, trailID string) bool {
	for _, id := range n.ConnectedTrailIDs {
		if id == trailID {
			return true
		}
	}
	return false
}

// clusterEndpoints groups candidate indices within toleranceMeters of each
// other via union-find, returning each candidate's cluster root index.
func clusterEndpoints(candidates []endpointCandidate, toleranceMeters float64) []int {
	parent := make([]int, len(candidates))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			d := geom.SegmentLengthMeters(candidates[i].point, candidates[j].point)
			if d <= toleranceMeters {
				union(i, j)
			}
		}
	}

	out := make([]int, len(candidates))
	for i := range candidates {
		out[i] = find(i)
	}
	return out
}

// buildNodes materializes one Node per distinct cluster root, assigns dense
// ids by (lat ASC, lng ASC) (spec.md §4.G step 3), and returns a map from
// cluster root to assigned node id.
func buildNodes(candidates []endpointCandidate, clusterOf []int) ([]Node, map[int]int) {
	members := make(map[int][]int) // cluster root -> candidate indices
	for i, root := range clusterOf {
		members[root] = append(members[root], i)
	}

	type unordered struct {
		root  int
		point geom.Point
		ids   []string
	}
	var unorderedNodes []unordered
	for root, idxs := range members {
		var lngSum, latSum float64
		idSet := make(map[string]bool)
		for _, idx := range idxs {
			lngSum += candidates[idx].point.Lng
			latSum += candidates[idx].point.Lat
			idSet[candidates[idx].trailID] = true
		}
		n := float64(len(idxs))
		var ids []string
		for id := range idSet {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		unorderedNodes = append(unorderedNodes, unordered{
			root:  root,
			point: geom.NewPoint2D(lngSum/n, latSum/n),
			ids:   ids,
		})
	}

	sort.Slice(unorderedNodes, func(i, j int) bool {
		a, b := unorderedNodes[i], unorderedNodes[j]
		if a.point.Lat != b.point.Lat {
			return a.point.Lat < b.point.Lat
		}
		return a.point.Lng < b.point.Lng
	})

	nodes := make([]Node, len(unorderedNodes))
	indexByCluster := make(map[int]int, len(unorderedNodes))
	for i, u := range unorderedNodes {
		nodeType := NodeEndpoint
		if len(u.ids) >= 2 {
			nodeType = NodeIntersection
		}
		nodes[i] = Node{
			NodeID:            i,
			Point:             u.point,
			NodeType:          nodeType,
			ConnectedTrailIDs: u.ids,
		}
		indexByCluster[u.root] = i
	}
	return nodes, indexByCluster
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SourceNode != edges[j].SourceNode {
			return edges[i].SourceNode < edges[j].SourceNode
		}
		if edges[i].TargetNode != edges[j].TargetNode {
			return edges[i].TargetNode < edges[j].TargetNode
		}
		return edges[i].TrailID < edges[j].TrailID
	})
}
