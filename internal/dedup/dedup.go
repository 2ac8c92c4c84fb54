// Package dedup implements the deduplicator (spec.md §4.F): finding pairs
// of trails that are geometrically "the same" and collapsing each group to
// one representative.
package dedup

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/trailnet/trailnet/internal/geom"
	"github.com/trailnet/trailnet/internal/split"
	"github.com/trailnet/trailnet/internal/staging"
)

// Config holds the deduplicator's tunables (spec.md §4.F).
type Config struct {
	WithinMeters            float64 // candidate ST_DWithin threshold, default 100
	MinLengthMeters         float64 // default 10
	OverlapRatioThreshold   float64 // default 0.8
	CloseDistanceMeters     float64 // default 5
	CloseOverlapThreshold   float64 // default 0.5
	OverlapBufferMeters     float64 // buffer used by geom.CoveredFraction, default 5
}

// DefaultConfig returns spec.md §4.F's documented defaults.
func DefaultConfig() Config {
	return Config{
		WithinMeters:          100,
		MinLengthMeters:       10,
		OverlapRatioThreshold: 0.8,
		CloseDistanceMeters:   5,
		CloseOverlapThreshold: 0.5,
		OverlapBufferMeters:   5,
	}
}

// Component is a connected group of duplicate trails and the representative
// chosen to survive.
type Component struct {
	TrailIDs       []string
	Representative string
	MaxOverlap     float64
}

// Deduplicator runs the dedup pass against a staging.Store, deleting
// non-representatives and notifying a split.Manager so every deletion is
// logged and counted.
type Deduplicator struct {
	store   staging.Store
	manager *split.Manager
	cfg     Config
	log     *logrus.Entry
}

// New builds a Deduplicator.
func New(store staging.Store, manager *split.Manager, cfg Config, log *logrus.Entry) *Deduplicator {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Deduplicator{store: store, manager: manager, cfg: cfg, log: log}
}

// pairVerdict is one candidate pair's dedup evaluation.
type pairVerdict struct {
	a, b    string
	overlap float64
	isDup   bool
}

// Run executes one dedup pass: find candidate pairs, evaluate the overlap
// metric, build connected components over duplicate pairs, and delete every
// non-representative member of each component (spec.md §4.F).
func (d *Deduplicator) Run(ctx context.Context) ([]Component, error) {
	pairs, err := d.store.DedupCandidates(ctx, d.cfg.WithinMeters, d.cfg.MinLengthMeters)
	if err != nil {
		return nil, fmt.Errorf("dedup: candidates: %w", err)
	}

	trails, err := d.store.AllTrails(ctx)
	if err != nil {
		return nil, fmt.Errorf("dedup: load trails: %w", err)
	}
	byID := make(map[string]staging.Trail, len(trails))
	for _, t := range trails {
		byID[t.TrailID] = t
	}

	var verdicts []pairVerdict
	for _, pair := range pairs {
		a, okA := byID[pair.TrailIDA]
		b, okB := byID[pair.TrailIDB]
		if !okA || !okB {
			continue
		}
		if containedEither(a.Geometry, b.Geometry) {
			continue // containment is preserved, not dedup'd
		}

		overlap := d.overlapRatio(a.Geometry, b.Geometry)
		isDup := overlap > d.cfg.OverlapRatioThreshold ||
			(pair.DistanceMeters < d.cfg.CloseDistanceMeters && overlap > d.cfg.CloseOverlapThreshold)
		verdicts = append(verdicts, pairVerdict{a: pair.TrailIDA, b: pair.TrailIDB, overlap: overlap, isDup: isDup})
	}

	components := buildComponents(verdicts, byID)

	// Spec.md §5: "Dedup components are processed in order of descending
	// max overlap ratio."
	sort.Slice(components, func(i, j int) bool { return components[i].MaxOverlap > components[j].MaxOverlap })

	for _, comp := range components {
		if err := d.collapse(ctx, comp, byID); err != nil {
			return nil, fmt.Errorf("dedup: collapse component %v: %w", comp.TrailIDs, err)
		}
	}

	d.log.WithField("components", len(components)).Info("deduplication complete")
	return components, nil
}

func (d *Deduplicator) overlapRatio(a, b geom.Line) float64 {
	fracAInB := geom.CoveredFraction(a, b, d.cfg.OverlapBufferMeters)
	fracBInA := geom.CoveredFraction(b, a, d.cfg.OverlapBufferMeters)
	if fracAInB < fracBInA {
		return fracAInB
	}
	return fracBInA
}

// containedEither reports whether either line is topologically contained
// in the other (spec.md §4.F "exclude when one strictly contains the
// other").
func containedEither(a, b geom.Line) bool {
	return contains(a, b) || contains(b, a)
}

func contains(outer, inner geom.Line) bool {
	if geom.LengthGeodesicMeters(outer) <= geom.LengthGeodesicMeters(inner) {
		return false
	}
	for _, p := range []geom.Point{inner.Points[0], inner.Points[len(inner.Points)-1]} {
		proj, err := geom.ClosestPoint(outer, p)
		if err != nil || geom.SegmentLengthMeters(p, proj) > 1.0 {
			return false
		}
	}
	return true
}

// buildComponents groups duplicate pairs into connected components via
// union-find, and picks each component's representative: longest, ties
// broken by lexicographic name, then lexicographic id (spec.md §4.F).
func buildComponents(verdicts []pairVerdict, byID map[string]staging.Trail) []Component {
	parent := make(map[string]string)
	var findFull func(string) string
	findFull = func(id string) string {
		if _, ok := parent[id]; !ok {
			parent[id] = id
		}
		if parent[id] != id {
			parent[id] = findFull(parent[id])
		}
		return parent[id]
	}
	union := func(a, b string) {
		ra, rb := findFull(a), findFull(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for _, v := range verdicts {
		if v.isDup {
			union(v.a, v.b)
		}
	}
	maxOverlap := make(map[string]float64)
	for _, v := range verdicts {
		if !v.isDup {
			continue
		}
		key := findFull(v.a)
		if v.overlap > maxOverlap[key] {
			maxOverlap[key] = v.overlap
		}
	}

	groups := make(map[string][]string)
	for id := range parent {
		root := findFull(id)
		groups[root] = append(groups[root], id)
	}

	var out []Component
	for root, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		out = append(out, Component{
			TrailIDs:       members,
			Representative: pickRepresentative(members, byID),
			MaxOverlap:     maxOverlap[root],
		})
	}
	return out
}

func pickRepresentative(ids []string, byID map[string]staging.Trail) string {
	best := ids[0]
	for _, id := range ids[1:] {
		if betterRepresentative(byID[id], byID[best]) {
			best = id
		}
	}
	return best
}

func betterRepresentative(a, b staging.Trail) bool {
	if a.LengthKm != b.LengthKm {
		return a.LengthKm > b.LengthKm
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.TrailID < b.TrailID
}

// collapse deletes every non-representative member of comp, one store
// transaction per trail, and notifies the split manager so each deletion is
// logged with op_kind=delete. The split log entry carries no metadata; the
// surviving representative is named only in the logrus line.
func (d *Deduplicator) collapse(ctx context.Context, comp Component, byID map[string]staging.Trail) error {
	for _, id := range comp.TrailIDs {
		if id == comp.Representative {
			continue
		}
		trail, ok := byID[id]
		if !ok {
			continue
		}
		tx, err := d.store.BeginTx(ctx)
		if err != nil {
			return err
		}
		if err := tx.DeleteTrail(ctx, id); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}

		if err := d.manager.Notify(ctx, "dedup", staging.OpDelete, id, trail.Name, staging.SplitOperationResult{
			OK:    true,
			Error: "",
		}); err != nil {
			return err
		}
		d.log.WithFields(logrus.Fields{
			"trail_id":       id,
			"representative": comp.Representative,
		}).Info("deduplicated trail")
	}
	return nil
}
