package staging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/trailnet/trailnet/internal/geom"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Config holds the Postgres/PostGIS connection parameters, mirrored on
// services/postgis_service.go's NewPostGISService constructor.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	// Namespace is the schema name this Store exclusively owns.
	Namespace string
}

// PostgresStore is the production Store implementation, backed by a
// Postgres database with PostGIS installed. All SQL below runs inside the
// namespace's own schema, quoted once at construction time and never
// interpolated elsewhere.
type PostgresStore struct {
	db        *sql.DB
	namespace string
	log       *logrus.Entry
}

// NewPostgresStore opens a PostGIS connection and validates the namespace,
// following services/postgis_service.go's connection-string-from-config,
// SetMaxIdleConns/SetMaxOpenConns, Ping-on-construct pattern.
func NewPostgresStore(cfg Config, log *logrus.Logger) (*PostgresStore, error) {
	if err := ValidateNamespace(cfg.Namespace); err != nil {
		return nil, err
	}

	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostGIS: %w", err)
	}

	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(30)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostGIS: %w", err)
	}

	return &PostgresStore{
		db:        db,
		namespace: cfg.Namespace,
		log:       log.WithField("component", "staging.postgres"),
	}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) qualify(table string) string {
	return fmt.Sprintf(`"%s".%s`, s.namespace, table)
}

// CreateNamespace provisions the schema and its tables (spec.md §4.B).
func (s *PostgresStore) CreateNamespace(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, s.namespace),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			trail_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			region TEXT NOT NULL,
			trail_type TEXT,
			surface TEXT,
			difficulty TEXT,
			geom geometry(LineStringZM, 4326) NOT NULL,
			length_km DOUBLE PRECISION NOT NULL,
			elevation_gain DOUBLE PRECISION,
			elevation_loss DOUBLE PRECISION,
			elevation_min DOUBLE PRECISION,
			elevation_max DOUBLE PRECISION,
			elevation_avg DOUBLE PRECISION,
			bbox_min_lng DOUBLE PRECISION,
			bbox_min_lat DOUBLE PRECISION,
			bbox_max_lng DOUBLE PRECISION,
			bbox_max_lat DOUBLE PRECISION,
			source TEXT,
			original_trail_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.qualify("trails")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS trails_geom_idx ON %s USING GIST (geom)`, s.qualify("trails")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS trails_bbox_idx ON %s (bbox_min_lng, bbox_min_lat, bbox_max_lng, bbox_max_lat)`, s.qualify("trails")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			lng DOUBLE PRECISION NOT NULL,
			lat DOUBLE PRECISION NOT NULL,
			elevation DOUBLE PRECISION,
			kind TEXT NOT NULL,
			trail_ids TEXT NOT NULL
		)`, s.qualify("intersection_points")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			op_id TEXT PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			service_name TEXT NOT NULL,
			op_kind TEXT NOT NULL,
			original_trail_id TEXT,
			original_trail_name TEXT,
			ok BOOLEAN NOT NULL,
			segments_created INTEGER,
			original_length_km DOUBLE PRECISION,
			total_length_km DOUBLE PRECISION,
			length_diff_km DOUBLE PRECISION,
			length_diff_pct DOUBLE PRECISION,
			error TEXT,
			metadata JSONB
		)`, s.qualify("split_operation_log")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			node_id SERIAL PRIMARY KEY,
			lat DOUBLE PRECISION NOT NULL,
			lng DOUBLE PRECISION NOT NULL,
			elevation DOUBLE PRECISION,
			node_type TEXT NOT NULL,
			connected_trail_ids TEXT NOT NULL
		)`, s.qualify("routing_nodes")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			edge_id TEXT PRIMARY KEY,
			source_node INTEGER NOT NULL,
			target_node INTEGER NOT NULL,
			trail_id TEXT NOT NULL,
			trail_name TEXT,
			distance_km DOUBLE PRECISION NOT NULL,
			elevation_gain DOUBLE PRECISION,
			elevation_loss DOUBLE PRECISION,
			geom_geojson TEXT
		)`, s.qualify("routing_edges")),
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("staging: create namespace %q: %w", s.namespace, err)
		}
	}
	return nil
}

// DropNamespace cascades the schema drop.
func (s *PostgresStore) DropNamespace(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP SCHEMA IF EXISTS "%s" CASCADE`, s.namespace))
	if err != nil {
		return fmt.Errorf("staging: drop namespace %q: %w", s.namespace, err)
	}
	return nil
}

type pgTx struct {
	tx    *sql.Tx
	store *PostgresStore
}

func (s *PostgresStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("staging: begin tx: %w", err)
	}
	return &pgTx{tx: tx, store: s}, nil
}

func (t *pgTx) InsertTrails(ctx context.Context, trails []Trail) error {
	for _, tr := range trails {
		if err := insertTrailRow(ctx, t.tx, t.store.qualify("trails"), tr); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) DeleteTrail(ctx context.Context, trailID string) error {
	_, err := t.tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE trail_id = $1`, t.store.qualify("trails")), trailID)
	if err != nil {
		return fmt.Errorf("staging: delete trail %s: %w", trailID, err)
	}
	return nil
}

func (t *pgTx) AppendSplitLog(ctx context.Context, entry SplitOperationLog) error {
	return appendSplitLogRow(ctx, t.tx, t.store.qualify("split_operation_log"), entry)
}

func (t *pgTx) Commit() error   { return t.tx.Commit() }
func (t *pgTx) Rollback() error { return t.tx.Rollback() }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertTrailRow(ctx context.Context, ex execer, table string, tr Trail) error {
	geojson, err := trailGeometryGeoJSON(tr.Geometry)
	if err != nil {
		return fmt.Errorf("staging: encode geometry for %s: %w", tr.TrailID, err)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (
			trail_id, name, region, trail_type, surface, difficulty, geom,
			length_km, elevation_gain, elevation_loss, elevation_min, elevation_max, elevation_avg,
			bbox_min_lng, bbox_min_lat, bbox_max_lng, bbox_max_lat, source, original_trail_id, created_at
		) VALUES ($1,$2,$3,$4,$5,$6, ST_GeomFromGeoJSON($7),
			$8,$9,$10,$11,$12,$13, $14,$15,$16,$17,$18,$19,$20)
		ON CONFLICT (trail_id) DO UPDATE SET
			name = EXCLUDED.name, geom = EXCLUDED.geom, length_km = EXCLUDED.length_km`, table)

	createdAt := tr.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = ex.ExecContext(ctx, query,
		tr.TrailID, tr.Name, tr.Region, tr.TrailType, tr.Surface, tr.Difficulty, geojson,
		tr.LengthKm, tr.Elevation.Gain, tr.Elevation.Loss, tr.Elevation.Min, tr.Elevation.Max, tr.Elevation.Avg,
		tr.BBox.MinLng, tr.BBox.MinLat, tr.BBox.MaxLng, tr.BBox.MaxLat, tr.Source, tr.OriginalTrailID, createdAt,
	)
	if err != nil {
		return fmt.Errorf("staging: insert trail %s: %w", tr.TrailID, err)
	}
	return nil
}

func appendSplitLogRow(ctx context.Context, ex execer, table string, entry SplitOperationLog) error {
	metaJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("staging: encode split log metadata: %w", err)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (
			op_id, ts, service_name, op_kind, original_trail_id, original_trail_name,
			ok, segments_created, original_length_km, total_length_km, length_diff_km, length_diff_pct, error, metadata
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`, table)

	_, err = ex.ExecContext(ctx, query,
		entry.OpID, entry.Timestamp, entry.ServiceName, string(entry.OpKind),
		entry.OriginalTrailID, entry.OriginalTrailName,
		entry.Result.OK, entry.Result.SegmentsCreated, entry.Result.OriginalLengthKm,
		entry.Result.TotalLengthKm, entry.Result.LengthDiffKm, entry.Result.LengthDiffPct,
		entry.Result.Error, metaJSON,
	)
	if err != nil {
		return fmt.Errorf("staging: append split log %s: %w", entry.OpID, err)
	}
	return nil
}

// trailGeometryGeoJSON renders a geom.Line as a GeoJSON LineString,
// embedding elevation as the third coordinate when present (spec.md §4.A
// "preserve Z-coordinates when present").
func trailGeometryGeoJSON(l geom.Line) (string, error) {
	coords := make([][]float64, len(l.Points))
	for i, p := range l.Points {
		if p.HasZ {
			coords[i] = []float64{p.Lng, p.Lat, p.Elevation}
		} else {
			coords[i] = []float64{p.Lng, p.Lat}
		}
	}
	out := map[string]interface{}{
		"type":        "LineString",
		"coordinates": coords,
	}
	b, err := json.Marshal(out)
	return string(b), err
}

// AppendSplitLog records entry directly against the namespace's log table,
// outside of any split's own transaction (used by the central split
// manager to log both its own outcomes and other services' notifications).
func (s *PostgresStore) AppendSplitLog(ctx context.Context, entry SplitOperationLog) error {
	return appendSplitLogRow(ctx, s.db, s.qualify("split_operation_log"), entry)
}

func (s *PostgresStore) LoadTrails(ctx context.Context, trails []Trail) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("staging: begin load tx: %w", err)
	}
	for _, tr := range trails {
		if err := insertTrailRow(ctx, tx, s.qualify("trails"), tr); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) GetTrail(ctx context.Context, trailID string) (Trail, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT trail_id, name, region, trail_type, surface, difficulty,
			ST_AsGeoJSON(geom), length_km, elevation_gain, elevation_loss, elevation_min, elevation_max, elevation_avg,
			bbox_min_lng, bbox_min_lat, bbox_max_lng, bbox_max_lat, source, original_trail_id, created_at
		FROM %s WHERE trail_id = $1`, s.qualify("trails")), trailID)
	tr, err := scanTrailRow(row.Scan)
	if err == sql.ErrNoRows {
		return Trail{}, ErrNotFound
	}
	if err != nil {
		return Trail{}, fmt.Errorf("staging: get trail %s: %w", trailID, err)
	}
	return tr, nil
}

// scanner abstracts sql.Row.Scan / sql.Rows.Scan.
type scanner func(dest ...interface{}) error

func scanTrailRow(scan scanner) (Trail, error) {
	var tr Trail
	var geojsonStr string
	var gain, loss, min_, max_, avg sql.NullFloat64
	var trailType, surface, difficulty, source, originalID sql.NullString

	err := scan(
		&tr.TrailID, &tr.Name, &tr.Region, &trailType, &surface, &difficulty,
		&geojsonStr, &tr.LengthKm, &gain, &loss, &min_, &max_, &avg,
		&tr.BBox.MinLng, &tr.BBox.MinLat, &tr.BBox.MaxLng, &tr.BBox.MaxLat,
		&source, &originalID, &tr.CreatedAt,
	)
	if err != nil {
		return Trail{}, err
	}
	tr.TrailType = trailType.String
	tr.Surface = surface.String
	tr.Difficulty = difficulty.String
	tr.Source = source.String
	tr.OriginalTrailID = originalID.String
	tr.Elevation = ElevationStats{Gain: gain.Float64, Loss: loss.Float64, Min: min_.Float64, Max: max_.Float64, Avg: avg.Float64, HasStats: gain.Valid}

	line, decodeErr := lineFromGeoJSON(geojsonStr)
	if decodeErr != nil {
		return Trail{}, fmt.Errorf("staging: decode geometry: %w", decodeErr)
	}
	tr.Geometry = line
	return tr, nil
}

func lineFromGeoJSON(s string) (geom.Line, error) {
	var parsed struct {
		Coordinates [][]float64 `json:"coordinates"`
	}
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return geom.Line{}, err
	}
	points := make([]geom.Point, len(parsed.Coordinates))
	for i, c := range parsed.Coordinates {
		switch len(c) {
		case 3:
			points[i] = geom.NewPoint3D(c[0], c[1], c[2])
		default:
			points[i] = geom.NewPoint2D(c[0], c[1])
		}
	}
	return geom.NewLine(points)
}

func (s *PostgresStore) ListTrails(ctx context.Context, region, source string, bbox *BoundingBox, cursor string, limit int) (Page, error) {
	var conds []string
	var args []interface{}
	argN := 1

	if region != "" {
		conds = append(conds, fmt.Sprintf("region = $%d", argN))
		args = append(args, region)
		argN++
	}
	if source != "" {
		conds = append(conds, fmt.Sprintf("source = $%d", argN))
		args = append(args, source)
		argN++
	}
	if bbox != nil {
		conds = append(conds, fmt.Sprintf(
			"bbox_min_lng >= $%d AND bbox_min_lat >= $%d AND bbox_max_lng <= $%d AND bbox_max_lat <= $%d",
			argN, argN+1, argN+2, argN+3))
		args = append(args, bbox.MinLng, bbox.MinLat, bbox.MaxLng, bbox.MaxLat)
		argN += 4
	}
	if cursor != "" {
		conds = append(conds, fmt.Sprintf("trail_id > $%d", argN))
		args = append(args, cursor)
		argN++
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	query := fmt.Sprintf(`SELECT trail_id, name, region, trail_type, surface, difficulty,
		ST_AsGeoJSON(geom), length_km, elevation_gain, elevation_loss, elevation_min, elevation_max, elevation_avg,
		bbox_min_lng, bbox_min_lat, bbox_max_lng, bbox_max_lat, source, original_trail_id, created_at
		FROM %s %s ORDER BY trail_id ASC LIMIT $%d`, s.qualify("trails"), where, argN)
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("staging: list trails: %w", err)
	}
	defer rows.Close()

	var page Page
	for rows.Next() {
		tr, err := scanTrailRow(rows.Scan)
		if err != nil {
			return Page{}, fmt.Errorf("staging: scan trail row: %w", err)
		}
		page.Trails = append(page.Trails, tr)
	}
	if len(page.Trails) > limit {
		page.HasMore = true
		page.Trails = page.Trails[:limit]
		page.NextCursor = page.Trails[limit-1].TrailID
	}
	return page, rows.Err()
}

func (s *PostgresStore) AllTrails(ctx context.Context) ([]Trail, error) {
	var all []Trail
	cursor := ""
	for {
		page, err := s.ListTrails(ctx, "", "", nil, cursor, 1000)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Trails...)
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}
	return all, nil
}

// CrossingCandidates finds unordered trail pairs whose geometries
// ST_Intersects in a point-like way (spec.md §4.C regime 1), ordered by
// proximity ascending via ST_Distance (which is ~0 for true crossings;
// this mainly orders ties deterministically by trail id).
// crossingSnapMetersPerDegreeApprox mirrors geom.SnapDegrees' rough,
// non-latitude-corrected degree-to-meter conversion, used only to widen
// this query's candidacy gate to the same near-miss pairs the Go-side
// pre-crossing snap would pull in (spec.md §6 snap_tolerance_degrees).
const crossingSnapMetersPerDegreeApprox = 111320.0

func (s *PostgresStore) CrossingCandidates(ctx context.Context, minTrailLengthMeters, snapToleranceDegrees float64) ([]CandidatePair, error) {
	query := fmt.Sprintf(`
		SELECT a.trail_id, b.trail_id, ST_Distance(a.geom, b.geom)
		FROM %[1]s a
		JOIN %[1]s b ON a.trail_id < b.trail_id
		WHERE (
			(ST_Intersects(a.geom, b.geom) AND GeometryType(ST_Intersection(a.geom, b.geom)) IN ('POINT', 'MULTIPOINT'))
			OR ST_DWithin(a.geom, b.geom, $2)
		)
			AND a.length_km * 1000 >= $1 AND b.length_km * 1000 >= $1
			AND NOT ST_Contains(a.geom, b.geom) AND NOT ST_Contains(b.geom, a.geom)
			AND a.original_trail_id IS NULL AND b.original_trail_id IS NULL
		ORDER BY ST_Distance(a.geom, b.geom) ASC, a.trail_id ASC, b.trail_id ASC
	`, s.qualify("trails"))

	return s.queryCandidatePairs(ctx, query, minTrailLengthMeters, snapToleranceDegrees*crossingSnapMetersPerDegreeApprox)
}

// TEndpointCandidates finds, for each trail endpoint, nearby trails within
// tolMeters (spec.md §4.C regime 2).
func (s *PostgresStore) TEndpointCandidates(ctx context.Context, tolMeters, minTrailLengthMeters float64) ([]CandidatePair, error) {
	query := fmt.Sprintf(`
		SELECT a.trail_id, b.trail_id, ST_Distance(ST_StartPoint(a.geom), b.geom)
		FROM %[1]s a
		JOIN %[1]s b ON a.trail_id != b.trail_id
		WHERE ST_DWithin(ST_StartPoint(a.geom), b.geom, $1)
			AND NOT ST_Intersects(ST_StartPoint(a.geom), b.geom)
			AND NOT ST_Contains(a.geom, b.geom) AND NOT ST_Contains(b.geom, a.geom)
			AND a.length_km * 1000 >= $2 AND b.length_km * 1000 >= $2
			AND a.original_trail_id IS NULL AND b.original_trail_id IS NULL
		UNION ALL
		SELECT a.trail_id, b.trail_id, ST_Distance(ST_EndPoint(a.geom), b.geom)
		FROM %[1]s a
		JOIN %[1]s b ON a.trail_id != b.trail_id
		WHERE ST_DWithin(ST_EndPoint(a.geom), b.geom, $1)
			AND NOT ST_Intersects(ST_EndPoint(a.geom), b.geom)
			AND NOT ST_Contains(a.geom, b.geom) AND NOT ST_Contains(b.geom, a.geom)
			AND a.length_km * 1000 >= $2 AND b.length_km * 1000 >= $2
			AND a.original_trail_id IS NULL AND b.original_trail_id IS NULL
		ORDER BY 3 ASC
	`, s.qualify("trails"))

	rows, err := s.db.QueryContext(ctx, query, tolMeters, minTrailLengthMeters)
	if err != nil {
		return nil, fmt.Errorf("staging: t-endpoint candidates: %w", err)
	}
	defer rows.Close()

	var out []CandidatePair
	for rows.Next() {
		var p CandidatePair
		if err := rows.Scan(&p.TrailIDA, &p.TrailIDB, &p.DistanceMeters); err != nil {
			return nil, fmt.Errorf("staging: scan t-endpoint candidate: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DedupCandidates finds pairs with bounding-box overlap and
// ST_DWithin <= withinMeters (spec.md §4.F).
func (s *PostgresStore) DedupCandidates(ctx context.Context, withinMeters, minLengthMeters float64) ([]CandidatePair, error) {
	query := fmt.Sprintf(`
		SELECT a.trail_id, b.trail_id, ST_Distance(a.geom, b.geom)
		FROM %[1]s a
		JOIN %[1]s b ON a.trail_id < b.trail_id
		WHERE a.geom && ST_Expand(b.geom, $1 / 111320.0)
			AND ST_DWithin(a.geom, b.geom, $1)
			AND a.length_km * 1000 >= $2 AND b.length_km * 1000 >= $2
			AND NOT ST_Contains(a.geom, b.geom) AND NOT ST_Contains(b.geom, a.geom)
		ORDER BY ST_Distance(a.geom, b.geom) ASC
	`, s.qualify("trails"))

	return s.queryCandidatePairs(ctx, query, withinMeters, minLengthMeters)
}

func (s *PostgresStore) queryCandidatePairs(ctx context.Context, query string, args ...interface{}) ([]CandidatePair, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("staging: candidate pairs: %w", err)
	}
	defer rows.Close()

	var out []CandidatePair
	for rows.Next() {
		var p CandidatePair
		if err := rows.Scan(&p.TrailIDA, &p.TrailIDB, &p.DistanceMeters); err != nil {
			return nil, fmt.Errorf("staging: scan candidate pair: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertIntersectionPoints(ctx context.Context, points []IntersectionPoint) error {
	for _, p := range points {
		_, err := s.db.ExecContext(ctx, fmt.Sprintf(
			`INSERT INTO %s (lng, lat, elevation, kind, trail_ids) VALUES ($1,$2,$3,$4,$5)`,
			s.qualify("intersection_points")),
			p.Point.Lng, p.Point.Lat, nullableElevation(p.Point), string(p.Kind), strings.Join(p.TrailIDs, ","))
		if err != nil {
			return fmt.Errorf("staging: insert intersection point: %w", err)
		}
	}
	return nil
}

func nullableElevation(p geom.Point) interface{} {
	if !p.HasZ {
		return nil
	}
	return p.Elevation
}

func (s *PostgresStore) IntersectionPoints(ctx context.Context) ([]IntersectionPoint, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT lng, lat, elevation, kind, trail_ids FROM %s
		 ORDER BY lng ASC, lat ASC, kind ASC, trail_ids ASC`, s.qualify("intersection_points")))
	if err != nil {
		return nil, fmt.Errorf("staging: list intersection points: %w", err)
	}
	defer rows.Close()

	var out []IntersectionPoint
	for rows.Next() {
		var lng, lat float64
		var elev sql.NullFloat64
		var kind, trailIDs string
		if err := rows.Scan(&lng, &lat, &elev, &kind, &trailIDs); err != nil {
			return nil, fmt.Errorf("staging: scan intersection point: %w", err)
		}
		pt := geom.NewPoint2D(lng, lat)
		if elev.Valid {
			pt = geom.NewPoint3D(lng, lat, elev.Float64)
		}
		out = append(out, IntersectionPoint{Point: pt, Kind: IntersectionKind(kind), TrailIDs: strings.Split(trailIDs, ",")})
	}
	return out, rows.Err()
}

func (s *PostgresStore) SplitLog(ctx context.Context) ([]SplitOperationLog, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT op_id, ts, service_name, op_kind, original_trail_id, original_trail_name,
			ok, segments_created, original_length_km, total_length_km, length_diff_km, length_diff_pct, error, metadata
		 FROM %s ORDER BY ts ASC`, s.qualify("split_operation_log")))
	if err != nil {
		return nil, fmt.Errorf("staging: list split log: %w", err)
	}
	defer rows.Close()

	var out []SplitOperationLog
	for rows.Next() {
		var e SplitOperationLog
		var metaJSON []byte
		var errStr sql.NullString
		var opKind string
		if err := rows.Scan(&e.OpID, &e.Timestamp, &e.ServiceName, &opKind, &e.OriginalTrailID, &e.OriginalTrailName,
			&e.Result.OK, &e.Result.SegmentsCreated, &e.Result.OriginalLengthKm, &e.Result.TotalLengthKm,
			&e.Result.LengthDiffKm, &e.Result.LengthDiffPct, &errStr, &metaJSON); err != nil {
			return nil, fmt.Errorf("staging: scan split log row: %w", err)
		}
		e.OpKind = SplitOpKind(opKind)
		e.Result.Error = errStr.String
		if len(metaJSON) > 0 {
			json.Unmarshal(metaJSON, &e.Metadata)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
