// Package ingest loads a trail corpus from a GeoJSON FeatureCollection on
// disk into the staging.Trail shape the pipeline consumes. It is the thin,
// out-of-core collaborator spec.md §1 calls "downstream route-recommendation
// or similarity scoring engine... consume the core's outputs but do not
// shape its invariants" turned around for the input side: the core never
// reads files itself, so something ahead of it must.
//
// orb/geojson is deliberately not used here, for the same reason
// snapshot.EncodeLineStringGeoJSON avoids it: orb.Point is a strict 2-element
// [lng, lat] pair and cannot round-trip the third (elevation) coordinate a
// 3D trail input carries.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/trailnet/trailnet/internal/geom"
	"github.com/trailnet/trailnet/internal/staging"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Geometry   struct {
		Type        string      `json:"type"`
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"geometry"`
}

// LoadTrailsFile reads path (a GeoJSON FeatureCollection of LineString
// features, one per trail) and returns the corresponding staging.Trail
// corpus. Recognized properties per feature: trail_id, name, region,
// trail_type, surface, difficulty, source. trail_id defaults to
// "trail-<n>", n being the feature's 1-based index within the file, when
// absent.
func LoadTrailsFile(path string) ([]staging.Trail, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read %s: %w", path, err)
	}
	return ParseTrails(raw)
}

// ParseTrails parses a GeoJSON FeatureCollection byte payload into
// staging.Trail rows.
func ParseTrails(raw []byte) ([]staging.Trail, error) {
	var fc featureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("ingest: decode feature collection: %w", err)
	}
	if !strings.EqualFold(fc.Type, "FeatureCollection") {
		return nil, fmt.Errorf("ingest: expected a FeatureCollection, got %q", fc.Type)
	}

	trails := make([]staging.Trail, 0, len(fc.Features))
	for i, f := range fc.Features {
		if !strings.EqualFold(f.Geometry.Type, "LineString") {
			return nil, fmt.Errorf("ingest: feature %d: unsupported geometry type %q", i, f.Geometry.Type)
		}
		line, err := coordinatesToLine(f.Geometry.Coordinates)
		if err != nil {
			return nil, fmt.Errorf("ingest: feature %d: %w", i, err)
		}

		trailID := stringProp(f.Properties, "trail_id")
		if trailID == "" {
			trailID = fmt.Sprintf("trail-%d", i+1)
		}

		bound := line.Bound()
		trails = append(trails, staging.Trail{
			TrailID:    trailID,
			Name:       stringProp(f.Properties, "name"),
			Region:     stringProp(f.Properties, "region"),
			TrailType:  stringProp(f.Properties, "trail_type"),
			Surface:    stringProp(f.Properties, "surface"),
			Difficulty: stringProp(f.Properties, "difficulty"),
			Geometry:   line,
			LengthKm:   geom.LengthGeodesicMeters(line) / 1000,
			Elevation:  elevationStats(line),
			BBox: staging.BoundingBox{
				MinLng: bound.Min[0], MinLat: bound.Min[1],
				MaxLng: bound.Max[0], MaxLat: bound.Max[1],
			},
			Source: stringProp(f.Properties, "source"),
		})
	}
	return trails, nil
}

func coordinatesToLine(coords [][]float64) (geom.Line, error) {
	pts := make([]geom.Point, len(coords))
	for i, c := range coords {
		switch len(c) {
		case 2:
			pts[i] = geom.NewPoint2D(c[0], c[1])
		case 3:
			pts[i] = geom.NewPoint3D(c[0], c[1], c[2])
		default:
			return geom.Line{}, fmt.Errorf("coordinate %d has %d components", i, len(c))
		}
	}
	return geom.NewLine(pts)
}

// elevationStats computes the non-negative gain/loss summary and
// min/max/avg over a (possibly 2D) line's vertices, mirroring the
// cumulative-gain/loss convention split.Splitter's segment builder assumes
// its input trails already carry.
func elevationStats(l geom.Line) staging.ElevationStats {
	if !l.Is3D() {
		return staging.ElevationStats{}
	}
	elevations := l.Elevations()
	stats := staging.ElevationStats{
		Min:      elevations[0],
		Max:      elevations[0],
		HasStats: true,
	}
	var sum float64
	for i, e := range elevations {
		sum += e
		if e < stats.Min {
			stats.Min = e
		}
		if e > stats.Max {
			stats.Max = e
		}
		if i > 0 {
			delta := e - elevations[i-1]
			if delta > 0 {
				stats.Gain += delta
			} else {
				stats.Loss += -delta
			}
		}
	}
	stats.Avg = sum / float64(len(elevations))
	return stats
}

func stringProp(props map[string]interface{}, key string) string {
	v, ok := props[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
