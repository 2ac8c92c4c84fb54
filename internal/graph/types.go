// Package graph implements the node/edge synthesizer (spec.md §4.G):
// producing a routable graph where nodes are clustered endpoints and edges
// only join nodes that share a trail identity.
package graph

import "github.com/trailnet/trailnet/internal/geom"

// NodeType is a closed enumeration (spec.md §3 "Node").
type NodeType string

const (
	NodeIntersection NodeType = "intersection"
	NodeEndpoint     NodeType = "endpoint"
)

// Node is one vertex of the routing graph.
type Node struct {
	NodeID            int
	Point             geom.Point
	NodeType          NodeType
	ConnectedTrailIDs []string
}

// Edge is one routable link, derived from exactly one (post-split) trail
// row (spec.md §4.G step 4 — this repository's resolution of the open
// question in spec.md §9: one edge per trail segment, since after
// splitting every trail's own two endpoints are themselves nodes, a shared
// trail_id never needs to be chosen among competing candidates).
type Edge struct {
	EdgeID           string
	SourceNode       int
	TargetNode       int
	TrailID          string
	TrailName        string
	DistanceKm       float64
	ElevationGainM   float64
	ElevationLossM   float64
	Geometry         geom.Line
}
