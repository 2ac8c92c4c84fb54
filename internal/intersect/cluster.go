package intersect

import (
	"sort"

	"github.com/trailnet/trailnet/internal/geom"
	"github.com/trailnet/trailnet/internal/staging"
)

// cluster collapses intersection points within radiusMeters of one another
// into a single point (spec.md §4.C "near-duplicate intersection points
// within a clustering radius ... collapse to one"), unioning their
// trail_ids and keeping the most specific kind.
func cluster(points []staging.IntersectionPoint, radiusMeters float64) []staging.IntersectionPoint {
	if len(points) == 0 {
		return nil
	}

	parent := make([]int, len(points))
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

	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			d := geom.SegmentLengthMeters(points[i].Point, points[j].Point)
			if d <= radiusMeters {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	for i := range points {
		root := find(i)
		groups[root] = append(groups[root], i)
	}

	var out []staging.IntersectionPoint
	for _, members := range groups {
		out = append(out, mergeCluster(points, members))
	}
	return out
}

// kindRank orders kinds from most to least specific when a cluster mixes
// regimes; crossing dominates since it reflects an exact geometric
// intersection rather than a within-tolerance approximation.
func kindRank(k staging.IntersectionKind) int {
	switch k {
	case staging.KindCrossing:
		return 0
	case staging.KindTEndpoint:
		return 1
	default:
		return 2
	}
}

func mergeCluster(points []staging.IntersectionPoint, members []int) staging.IntersectionPoint {
	sort.Slice(members, func(i, j int) bool {
		return kindRank(points[members[i]].Kind) < kindRank(points[members[j]].Kind)
	})
	best := points[members[0]]

	idSet := make(map[string]bool)
	for _, m := range members {
		for _, id := range points[m].TrailIDs {
			idSet[id] = true
		}
	}
	var ids []string
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return staging.IntersectionPoint{
		Point:    best.Point,
		Kind:     best.Kind,
		TrailIDs: ids,
	}
}
