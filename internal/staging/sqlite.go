package staging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tidwall/rtree"

	"github.com/trailnet/trailnet/internal/geom"
)

// SQLiteStore is a single-file Store implementation used by pipeline tests
// (SPEC_FULL.md §8) and by small/offline runs that do not have a Postgres
// instance available. It implements the same Store interface as
// PostgresStore but evaluates geometric candidate queries in Go (via
// internal/geom and an in-memory tidwall/rtree index) instead of PostGIS
// SQL functions, since SQLite has no spatial extension loaded here.
//
// Grounded on rohankatakam-coderisk's internal/storage/sqlite.go
// (sqlx.Connect("sqlite3", path) + PRAGMA + initSchema pattern).
type SQLiteStore struct {
	db  *sqlx.DB
	mu  sync.Mutex // serializes writes; matches §5's single-threaded mutation model
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed staging store
// at path. Use ":memory:" for ephemeral test stores.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("staging: create sqlite directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("staging: connect sqlite: %w", err)
	}
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	s := &SQLiteStore{db: db}
	if err := s.CreateNamespace(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) CreateNamespace(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS trails (
		trail_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		region TEXT NOT NULL,
		trail_type TEXT,
		surface TEXT,
		difficulty TEXT,
		geojson TEXT NOT NULL,
		length_km REAL NOT NULL,
		elevation_gain REAL,
		elevation_loss REAL,
		elevation_min REAL,
		elevation_max REAL,
		elevation_avg REAL,
		has_elevation_stats INTEGER NOT NULL DEFAULT 0,
		bbox_min_lng REAL, bbox_min_lat REAL, bbox_max_lng REAL, bbox_max_lat REAL,
		source TEXT,
		original_trail_id TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS intersection_points (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		lng REAL NOT NULL, lat REAL NOT NULL, elevation REAL, has_elevation INTEGER NOT NULL DEFAULT 0,
		kind TEXT NOT NULL, trail_ids TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS split_operation_log (
		op_id TEXT PRIMARY KEY,
		ts DATETIME NOT NULL,
		service_name TEXT NOT NULL,
		op_kind TEXT NOT NULL,
		original_trail_id TEXT,
		original_trail_name TEXT,
		ok INTEGER NOT NULL,
		segments_created INTEGER,
		original_length_km REAL,
		total_length_km REAL,
		length_diff_km REAL,
		length_diff_pct REAL,
		error TEXT,
		metadata TEXT
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("staging: init sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DropNamespace(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DROP TABLE IF EXISTS trails;
		DROP TABLE IF EXISTS intersection_points;
		DROP TABLE IF EXISTS split_operation_log;
	`)
	return err
}

type sqliteTx struct {
	tx    *sqlx.Tx
	store *SQLiteStore
}

func (s *SQLiteStore) BeginTx(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("staging: begin sqlite tx: %w", err)
	}
	return &sqliteTx{tx: tx, store: s}, nil
}

func (t *sqliteTx) InsertTrails(ctx context.Context, trails []Trail) error {
	for _, tr := range trails {
		if err := sqliteInsertTrail(ctx, t.tx, tr); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqliteTx) DeleteTrail(ctx context.Context, trailID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM trails WHERE trail_id = ?`, trailID)
	if err != nil {
		return fmt.Errorf("staging: delete trail %s: %w", trailID, err)
	}
	return nil
}

func (t *sqliteTx) AppendSplitLog(ctx context.Context, entry SplitOperationLog) error {
	return sqliteAppendSplitLog(ctx, t.tx, entry)
}

func (t *sqliteTx) Commit() error {
	defer t.store.mu.Unlock()
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	defer t.store.mu.Unlock()
	return t.tx.Rollback()
}

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func sqliteInsertTrail(ctx context.Context, ex sqlExecer, tr Trail) error {
	geojsonStr, err := trailGeometryGeoJSON(tr.Geometry)
	if err != nil {
		return fmt.Errorf("staging: encode geometry for %s: %w", tr.TrailID, err)
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO trails (
			trail_id, name, region, trail_type, surface, difficulty, geojson, length_km,
			elevation_gain, elevation_loss, elevation_min, elevation_max, elevation_avg, has_elevation_stats,
			bbox_min_lng, bbox_min_lat, bbox_max_lng, bbox_max_lat, source, original_trail_id, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(trail_id) DO UPDATE SET
			name=excluded.name, geojson=excluded.geojson, length_km=excluded.length_km`,
		tr.TrailID, tr.Name, tr.Region, tr.TrailType, tr.Surface, tr.Difficulty, geojsonStr, tr.LengthKm,
		tr.Elevation.Gain, tr.Elevation.Loss, tr.Elevation.Min, tr.Elevation.Max, tr.Elevation.Avg, boolToInt(tr.Elevation.HasStats),
		tr.BBox.MinLng, tr.BBox.MinLat, tr.BBox.MaxLng, tr.BBox.MaxLat, tr.Source, nullIfEmpty(tr.OriginalTrailID), nowOrProvided(tr.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("staging: insert trail %s: %w", tr.TrailID, err)
	}
	return nil
}

func sqliteAppendSplitLog(ctx context.Context, ex sqlExecer, entry SplitOperationLog) error {
	metaJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("staging: encode split log metadata: %w", err)
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO split_operation_log (
			op_id, ts, service_name, op_kind, original_trail_id, original_trail_name,
			ok, segments_created, original_length_km, total_length_km, length_diff_km, length_diff_pct, error, metadata
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		entry.OpID, entry.Timestamp, entry.ServiceName, string(entry.OpKind),
		entry.OriginalTrailID, entry.OriginalTrailName,
		boolToInt(entry.Result.OK), entry.Result.SegmentsCreated, entry.Result.OriginalLengthKm,
		entry.Result.TotalLengthKm, entry.Result.LengthDiffKm, entry.Result.LengthDiffPct,
		entry.Result.Error, string(metaJSON),
	)
	if err != nil {
		return fmt.Errorf("staging: append split log %s: %w", entry.OpID, err)
	}
	return nil
}

// AppendSplitLog records entry directly, outside of any split's own
// transaction.
func (s *SQLiteStore) AppendSplitLog(ctx context.Context, entry SplitOperationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sqliteAppendSplitLog(ctx, s.db, entry)
}

func (s *SQLiteStore) LoadTrails(ctx context.Context, trails []Trail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("staging: begin sqlite load tx: %w", err)
	}
	for _, tr := range trails {
		if err := sqliteInsertTrail(ctx, tx, tr); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetTrail(ctx context.Context, trailID string) (Trail, error) {
	row := s.db.QueryRowxContext(ctx, `SELECT * FROM trails WHERE trail_id = ?`, trailID)
	tr, err := scanSqliteTrailRow(row)
	if err == sql.ErrNoRows {
		return Trail{}, ErrNotFound
	}
	return tr, err
}

type sqliteTrailRow struct {
	TrailID           string  `db:"trail_id"`
	Name              string  `db:"name"`
	Region            string  `db:"region"`
	TrailType         sql.NullString `db:"trail_type"`
	Surface           sql.NullString `db:"surface"`
	Difficulty        sql.NullString `db:"difficulty"`
	GeoJSON           string  `db:"geojson"`
	LengthKm          float64 `db:"length_km"`
	ElevationGain     sql.NullFloat64 `db:"elevation_gain"`
	ElevationLoss     sql.NullFloat64 `db:"elevation_loss"`
	ElevationMin      sql.NullFloat64 `db:"elevation_min"`
	ElevationMax      sql.NullFloat64 `db:"elevation_max"`
	ElevationAvg      sql.NullFloat64 `db:"elevation_avg"`
	HasElevationStats int     `db:"has_elevation_stats"`
	BBoxMinLng        sql.NullFloat64 `db:"bbox_min_lng"`
	BBoxMinLat        sql.NullFloat64 `db:"bbox_min_lat"`
	BBoxMaxLng        sql.NullFloat64 `db:"bbox_max_lng"`
	BBoxMaxLat        sql.NullFloat64 `db:"bbox_max_lat"`
	Source            sql.NullString `db:"source"`
	OriginalTrailID   sql.NullString `db:"original_trail_id"`
	CreatedAt         interface{}    `db:"created_at"`
}

type rowScanner interface {
	StructScan(dest interface{}) error
}

func scanSqliteTrailRow(row rowScanner) (Trail, error) {
	var r sqliteTrailRow
	if err := row.StructScan(&r); err != nil {
		return Trail{}, err
	}
	line, err := lineFromGeoJSON(r.GeoJSON)
	if err != nil {
		return Trail{}, fmt.Errorf("staging: decode geometry: %w", err)
	}
	return Trail{
		TrailID:   r.TrailID,
		Name:      r.Name,
		Region:    r.Region,
		TrailType: r.TrailType.String,
		Surface:   r.Surface.String,
		Difficulty: r.Difficulty.String,
		Geometry:  line,
		LengthKm:  r.LengthKm,
		Elevation: ElevationStats{
			Gain: r.ElevationGain.Float64, Loss: r.ElevationLoss.Float64,
			Min: r.ElevationMin.Float64, Max: r.ElevationMax.Float64, Avg: r.ElevationAvg.Float64,
			HasStats: r.HasElevationStats != 0,
		},
		BBox: BoundingBox{
			MinLng: r.BBoxMinLng.Float64, MinLat: r.BBoxMinLat.Float64,
			MaxLng: r.BBoxMaxLng.Float64, MaxLat: r.BBoxMaxLat.Float64,
		},
		Source:          r.Source.String,
		OriginalTrailID: r.OriginalTrailID.String,
	}, nil
}

func (s *SQLiteStore) ListTrails(ctx context.Context, region, source string, bbox *BoundingBox, cursor string, limit int) (Page, error) {
	var conds []string
	var args []interface{}

	if region != "" {
		conds = append(conds, "region = ?")
		args = append(args, region)
	}
	if source != "" {
		conds = append(conds, "source = ?")
		args = append(args, source)
	}
	if bbox != nil {
		conds = append(conds, "bbox_min_lng >= ? AND bbox_min_lat >= ? AND bbox_max_lng <= ? AND bbox_max_lat <= ?")
		args = append(args, bbox.MinLng, bbox.MinLat, bbox.MaxLng, bbox.MaxLat)
	}
	if cursor != "" {
		conds = append(conds, "trail_id > ?")
		args = append(args, cursor)
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit+1)

	rows, err := s.db.QueryxContext(ctx, fmt.Sprintf(
		`SELECT * FROM trails %s ORDER BY trail_id ASC LIMIT ?`, where), args...)
	if err != nil {
		return Page{}, fmt.Errorf("staging: list trails: %w", err)
	}
	defer rows.Close()

	var page Page
	for rows.Next() {
		tr, err := scanSqliteTrailRow(rows)
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

func (s *SQLiteStore) AllTrails(ctx context.Context) ([]Trail, error) {
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

// buildIndex constructs an in-memory bounding-box index over the current
// trail set, used to narrow O(n^2) candidate search the way
// tidwall/rtree narrows it for azybler-map_router's road network.
func (s *SQLiteStore) buildIndex(ctx context.Context) ([]Trail, *rtree.RTreeG[string], error) {
	trails, err := s.AllTrails(ctx)
	if err != nil {
		return nil, nil, err
	}
	var tr rtree.RTreeG[string]
	for _, t := range trails {
		b := t.Geometry.Bound()
		tr.Insert([2]float64{b.Min[0], b.Min[1]}, [2]float64{b.Max[0], b.Max[1]}, t.TrailID)
	}
	return trails, &tr, nil
}

func (s *SQLiteStore) CrossingCandidates(ctx context.Context, minTrailLengthMeters, snapToleranceDegrees float64) ([]CandidatePair, error) {
	trails, index, err := s.buildIndex(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Trail, len(trails))
	for _, t := range trails {
		byID[t.TrailID] = t
	}

	seen := make(map[[2]string]bool)
	var out []CandidatePair
	for _, a := range trails {
		if geom.LengthGeodesicMeters(a.Geometry) < minTrailLengthMeters || a.IsSegment() {
			continue
		}
		b := a.Geometry.Bound()
		index.Search([2]float64{b.Min[0], b.Min[1]}, [2]float64{b.Max[0], b.Max[1]}, func(_, _ [2]float64, otherID string) bool {
			if otherID == a.TrailID {
				return true
			}
			other, ok := byID[otherID]
			if !ok || other.IsSegment() || geom.LengthGeodesicMeters(other.Geometry) < minTrailLengthMeters {
				return true
			}
			key := pairKey(a.TrailID, otherID)
			if seen[key] {
				return true
			}
			snappedA := geom.SnapDegrees(a.Geometry, other.Geometry, snapToleranceDegrees)
			snappedOther := geom.SnapDegrees(other.Geometry, snappedA, snapToleranceDegrees)
			result := geom.Intersect(snappedA, snappedOther)
			if result.Kind != geom.IntersectionPoints && result.Kind != geom.IntersectionMixed {
				return true
			}
			if containsOther(a.Geometry, other.Geometry) {
				return true
			}
			seen[key] = true
			out = append(out, CandidatePair{TrailIDA: key[0], TrailIDB: key[1], DistanceMeters: 0})
			return true
		})
	}
	sortCandidatePairs(out)
	return out, nil
}

func (s *SQLiteStore) TEndpointCandidates(ctx context.Context, tolMeters, minTrailLengthMeters float64) ([]CandidatePair, error) {
	trails, index, err := s.buildIndex(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Trail, len(trails))
	for _, t := range trails {
		byID[t.TrailID] = t
	}

	const degreePad = 0.001 // generous pad for the bbox pre-filter, exact distance checked after
	var out []CandidatePair
	for _, a := range trails {
		if a.IsSegment() || geom.LengthGeodesicMeters(a.Geometry) < minTrailLengthMeters {
			continue
		}
		endpoints := []geom.Point{a.Geometry.Points[0], a.Geometry.Points[len(a.Geometry.Points)-1]}
		for _, ep := range endpoints {
			minB := [2]float64{ep.Lng - degreePad, ep.Lat - degreePad}
			maxB := [2]float64{ep.Lng + degreePad, ep.Lat + degreePad}
			index.Search(minB, maxB, func(_, _ [2]float64, otherID string) bool {
				if otherID == a.TrailID {
					return true
				}
				other, ok := byID[otherID]
				if !ok || geom.LengthGeodesicMeters(other.Geometry) < minTrailLengthMeters {
					return true
				}
				if containsOther(a.Geometry, other.Geometry) || containsOther(other.Geometry, a.Geometry) {
					return true
				}
				proj, err := geom.ClosestPoint(other.Geometry, ep)
				if err != nil {
					return true
				}
				d := geom.SegmentLengthMeters(ep, proj)
				if d > tolMeters || d < 1e-6 {
					return true
				}
				out = append(out, CandidatePair{TrailIDA: a.TrailID, TrailIDB: otherID, DistanceMeters: d})
				return true
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	return out, nil
}

func (s *SQLiteStore) DedupCandidates(ctx context.Context, withinMeters, minLengthMeters float64) ([]CandidatePair, error) {
	trails, index, err := s.buildIndex(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Trail, len(trails))
	for _, t := range trails {
		byID[t.TrailID] = t
	}

	degreePad := (withinMeters / 111320.0) + 0.0005
	seen := make(map[[2]string]bool)
	var out []CandidatePair
	for _, a := range trails {
		if geom.LengthGeodesicMeters(a.Geometry) < minLengthMeters {
			continue
		}
		b := a.Geometry.Bound()
		minB := [2]float64{b.Min[0] - degreePad, b.Min[1] - degreePad}
		maxB := [2]float64{b.Max[0] + degreePad, b.Max[1] + degreePad}
		index.Search(minB, maxB, func(_, _ [2]float64, otherID string) bool {
			if otherID == a.TrailID {
				return true
			}
			other, ok := byID[otherID]
			if !ok || geom.LengthGeodesicMeters(other.Geometry) < minLengthMeters {
				return true
			}
			key := pairKey(a.TrailID, otherID)
			if seen[key] {
				return true
			}
			if containsOther(a.Geometry, other.Geometry) {
				return true
			}
			d := minLineDistanceMeters(a.Geometry, other.Geometry)
			if d > withinMeters {
				return true
			}
			seen[key] = true
			out = append(out, CandidatePair{TrailIDA: key[0], TrailIDB: key[1], DistanceMeters: d})
			return true
		})
	}
	sortCandidatePairs(out)
	return out, nil
}

func (s *SQLiteStore) InsertIntersectionPoints(ctx context.Context, points []IntersectionPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		var elev interface{}
		hasElev := 0
		if p.Point.HasZ {
			elev = p.Point.Elevation
			hasElev = 1
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO intersection_points (lng, lat, elevation, has_elevation, kind, trail_ids) VALUES (?,?,?,?,?,?)`,
			p.Point.Lng, p.Point.Lat, elev, hasElev, string(p.Kind), strings.Join(p.TrailIDs, ","))
		if err != nil {
			return fmt.Errorf("staging: insert intersection point: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) IntersectionPoints(ctx context.Context) ([]IntersectionPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lng, lat, elevation, has_elevation, kind, trail_ids FROM intersection_points
		 ORDER BY lng ASC, lat ASC, kind ASC, trail_ids ASC`)
	if err != nil {
		return nil, fmt.Errorf("staging: list intersection points: %w", err)
	}
	defer rows.Close()

	var out []IntersectionPoint
	for rows.Next() {
		var lng, lat float64
		var elev sql.NullFloat64
		var hasElev int
		var kind, trailIDs string
		if err := rows.Scan(&lng, &lat, &elev, &hasElev, &kind, &trailIDs); err != nil {
			return nil, fmt.Errorf("staging: scan intersection point: %w", err)
		}
		pt := geom.NewPoint2D(lng, lat)
		if hasElev != 0 {
			pt = geom.NewPoint3D(lng, lat, elev.Float64)
		}
		out = append(out, IntersectionPoint{Point: pt, Kind: IntersectionKind(kind), TrailIDs: strings.Split(trailIDs, ",")})
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SplitLog(ctx context.Context) ([]SplitOperationLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT op_id, ts, service_name, op_kind, original_trail_id, original_trail_name,
			ok, segments_created, original_length_km, total_length_km, length_diff_km, length_diff_pct, error, metadata
		 FROM split_operation_log ORDER BY ts ASC`)
	if err != nil {
		return nil, fmt.Errorf("staging: list split log: %w", err)
	}
	defer rows.Close()

	var out []SplitOperationLog
	for rows.Next() {
		var e SplitOperationLog
		var metaJSON sql.NullString
		var errStr sql.NullString
		var opKind string
		var ok int
		if err := rows.Scan(&e.OpID, &e.Timestamp, &e.ServiceName, &opKind, &e.OriginalTrailID, &e.OriginalTrailName,
			&ok, &e.Result.SegmentsCreated, &e.Result.OriginalLengthKm, &e.Result.TotalLengthKm,
			&e.Result.LengthDiffKm, &e.Result.LengthDiffPct, &errStr, &metaJSON); err != nil {
			return nil, fmt.Errorf("staging: scan split log row: %w", err)
		}
		e.OpKind = SplitOpKind(opKind)
		e.Result.OK = ok != 0
		e.Result.Error = errStr.String
		if metaJSON.Valid && metaJSON.String != "" {
			json.Unmarshal([]byte(metaJSON.String), &e.Metadata)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func pairKey(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

func sortCandidatePairs(pairs []CandidatePair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].DistanceMeters != pairs[j].DistanceMeters {
			return pairs[i].DistanceMeters < pairs[j].DistanceMeters
		}
		if pairs[i].TrailIDA != pairs[j].TrailIDA {
			return pairs[i].TrailIDA < pairs[j].TrailIDA
		}
		return pairs[i].TrailIDB < pairs[j].TrailIDB
	})
}

// containsOther reports whether b's endpoints all lie on a and a is
// materially longer, a coarse stand-in for ST_Contains used to exclude
// topologically-contained pairs from candidate sets.
func containsOther(a, b geom.Line) bool {
	if geom.LengthGeodesicMeters(a) <= geom.LengthGeodesicMeters(b) {
		return false
	}
	for _, p := range []geom.Point{b.Points[0], b.Points[len(b.Points)-1]} {
		proj, err := geom.ClosestPoint(a, p)
		if err != nil || geom.SegmentLengthMeters(p, proj) > 1.0 {
			return false
		}
	}
	return true
}

func minLineDistanceMeters(a, b geom.Line) float64 {
	best := geom.SegmentLengthMeters(a.Points[0], b.Points[0])
	sample := func(l1, l2 geom.Line) {
		steps := 20
		for i := 0; i <= steps; i++ {
			p, err := geom.LineInterpolate(l1, float64(i)/float64(steps))
			if err != nil {
				continue
			}
			proj, err := geom.ClosestPoint(l2, p)
			if err != nil {
				continue
			}
			d := geom.SegmentLengthMeters(p, proj)
			if d < best {
				best = d
			}
		}
	}
	sample(a, b)
	sample(b, a)
	return best
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nowOrProvided(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
