package snapshot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/trailnet/trailnet/internal/geom"
	"github.com/trailnet/trailnet/internal/graph"
	"github.com/trailnet/trailnet/internal/staging"
)

// TrailRow is one row of the snapshot's trails table.
type TrailRow struct {
	TrailID         string  `db:"trail_id"`
	Name            string  `db:"name"`
	Region          string  `db:"region"`
	TrailType       string  `db:"trail_type"`
	Surface         string  `db:"surface"`
	Difficulty      string  `db:"difficulty"`
	GeometryGeoJSON string  `db:"geometry_geojson"`
	LengthKm        float64 `db:"length_km"`
	ElevationGain   float64 `db:"elevation_gain"`
	ElevationLoss   float64 `db:"elevation_loss"`
	ElevationMin    float64 `db:"elevation_min"`
	ElevationMax    float64 `db:"elevation_max"`
	ElevationAvg    float64 `db:"elevation_avg"`
	HasElevation    bool    `db:"has_elevation"`
	MinLng          float64 `db:"min_lng"`
	MinLat          float64 `db:"min_lat"`
	MaxLng          float64 `db:"max_lng"`
	MaxLat          float64 `db:"max_lat"`
	Source          string  `db:"source"`
	OriginalTrailID string  `db:"original_trail_id"`
}

// NodeRow is one row of the snapshot's routing_nodes table.
type NodeRow struct {
	NodeID            int     `db:"node_id"`
	Lng               float64 `db:"lng"`
	Lat               float64 `db:"lat"`
	NodeType          string  `db:"node_type"`
	ConnectedTrailIDs string  `db:"connected_trail_ids"` // JSON array text
}

// EdgeRow is one row of the snapshot's routing_edges table.
type EdgeRow struct {
	EdgeID          string  `db:"edge_id"`
	SourceNode      int     `db:"source_node"`
	TargetNode      int     `db:"target_node"`
	TrailID         string  `db:"trail_id"`
	TrailName       string  `db:"trail_name"`
	DistanceKm      float64 `db:"distance_km"`
	ElevationGainM  float64 `db:"elevation_gain_m"`
	ElevationLossM  float64 `db:"elevation_loss_m"`
	GeometryGeoJSON string  `db:"geometry_geojson"`
}

// FromStagingTrail converts a staging.Trail into its snapshot row, encoding
// the geometry as GeoJSON preserving Z (spec.md §4.H).
func FromStagingTrail(t staging.Trail) (TrailRow, error) {
	geojsonText, err := EncodeLineStringGeoJSON(t.Geometry)
	if err != nil {
		return TrailRow{}, fmt.Errorf("snapshot: encode trail %s geometry: %w", t.TrailID, err)
	}
	return TrailRow{
		TrailID:         t.TrailID,
		Name:            t.Name,
		Region:          t.Region,
		TrailType:       t.TrailType,
		Surface:         t.Surface,
		Difficulty:      t.Difficulty,
		GeometryGeoJSON: geojsonText,
		LengthKm:        t.LengthKm,
		ElevationGain:   t.Elevation.Gain,
		ElevationLoss:   t.Elevation.Loss,
		ElevationMin:    t.Elevation.Min,
		ElevationMax:    t.Elevation.Max,
		ElevationAvg:    t.Elevation.Avg,
		HasElevation:    t.Elevation.HasStats,
		MinLng:          t.BBox.MinLng,
		MinLat:          t.BBox.MinLat,
		MaxLng:          t.BBox.MaxLng,
		MaxLat:          t.BBox.MaxLat,
		Source:          t.Source,
		OriginalTrailID: t.OriginalTrailID,
	}, nil
}

// FromGraphNode converts a graph.Node into its snapshot row.
func FromGraphNode(n graph.Node) (NodeRow, error) {
	idsJSON, err := json.Marshal(n.ConnectedTrailIDs)
	if err != nil {
		return NodeRow{}, fmt.Errorf("snapshot: encode node %d trail ids: %w", n.NodeID, err)
	}
	return NodeRow{
		NodeID:            n.NodeID,
		Lng:               n.Point.Lng,
		Lat:               n.Point.Lat,
		NodeType:          string(n.NodeType),
		ConnectedTrailIDs: string(idsJSON),
	}, nil
}

// FromGraphEdge converts a graph.Edge into its snapshot row.
func FromGraphEdge(e graph.Edge) (EdgeRow, error) {
	geojsonText, err := EncodeLineStringGeoJSON(e.Geometry)
	if err != nil {
		return EdgeRow{}, fmt.Errorf("snapshot: encode edge %s geometry: %w", e.EdgeID, err)
	}
	return EdgeRow{
		EdgeID:          e.EdgeID,
		SourceNode:      e.SourceNode,
		TargetNode:      e.TargetNode,
		TrailID:         e.TrailID,
		TrailName:       e.TrailName,
		DistanceKm:      e.DistanceKm,
		ElevationGainM:  e.ElevationGainM,
		ElevationLossM:  e.ElevationLossM,
		GeometryGeoJSON: geojsonText,
	}, nil
}

// geoJSONLineString is a hand-rolled minimal GeoJSON LineString geometry.
// orb/geojson's Geometry wrapper marshals orb.Point as a strict 2-element
// [lng, lat] array (orb.Point has no third coordinate), so it cannot carry
// elevation; this type is deliberately narrow — only what trails/edges need
// — and writes a 3-element [lng, lat, elevation] array per vertex when the
// line is 3D, satisfying the Z round-trip requirement (Testable property 6)
// that orb's own GeoJSON codec cannot meet.
type geoJSONLineString struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

// EncodeLineStringGeoJSON serializes l as GeoJSON text, including a Z
// coordinate per vertex when l.Is3D().
func EncodeLineStringGeoJSON(l geom.Line) (string, error) {
	is3D := l.Is3D()
	coords := make([][]float64, len(l.Points))
	for i, p := range l.Points {
		if is3D {
			coords[i] = []float64{p.Lng, p.Lat, p.Elevation}
		} else {
			coords[i] = []float64{p.Lng, p.Lat}
		}
	}
	b, err := json.Marshal(geoJSONLineString{Type: "LineString", Coordinates: coords})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeLineStringGeoJSON parses GeoJSON text produced by
// EncodeLineStringGeoJSON back into a geom.Line, preserving Z when present.
func DecodeLineStringGeoJSON(text string) (geom.Line, error) {
	var raw geoJSONLineString
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return geom.Line{}, fmt.Errorf("snapshot: decode geojson: %w", err)
	}
	if !strings.EqualFold(raw.Type, "LineString") {
		return geom.Line{}, fmt.Errorf("snapshot: decode geojson: unexpected type %q", raw.Type)
	}
	pts := make([]geom.Point, len(raw.Coordinates))
	for i, c := range raw.Coordinates {
		switch len(c) {
		case 2:
			pts[i] = geom.NewPoint2D(c[0], c[1])
		case 3:
			pts[i] = geom.NewPoint3D(c[0], c[1], c[2])
		default:
			return geom.Line{}, fmt.Errorf("snapshot: decode geojson: coordinate %d has %d components", i, len(c))
		}
	}
	return geom.NewLine(pts)
}
