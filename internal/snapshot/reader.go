package snapshot

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// requiredColumns enumerates, per table, the columns a conforming snapshot
// must declare and their expected SQLite logical storage class (spec.md
// §4.H "required columns exist with expected logical types").
var requiredColumns = map[string]map[string]string{
	"schema_version": {"version": "INTEGER", "description": "TEXT", "written_at": "DATETIME"},
	"trails": {
		"trail_id": "TEXT", "name": "TEXT", "region": "TEXT",
		"geometry_geojson": "TEXT", "length_km": "REAL",
		"elevation_gain": "REAL", "elevation_loss": "REAL",
		"elevation_min": "REAL", "elevation_max": "REAL", "elevation_avg": "REAL",
		"min_lng": "REAL", "min_lat": "REAL", "max_lng": "REAL", "max_lat": "REAL",
	},
	"routing_nodes": {
		"node_id": "INTEGER", "lng": "REAL", "lat": "REAL",
		"node_type": "TEXT", "connected_trail_ids": "TEXT",
	},
	"routing_edges": {
		"edge_id": "TEXT", "source_node": "INTEGER", "target_node": "INTEGER",
		"trail_id": "TEXT", "distance_km": "REAL", "geometry_geojson": "TEXT",
	},
	"region_metadata": {
		"region": "TEXT", "trail_count": "INTEGER", "node_count": "INTEGER",
		"edge_count": "INTEGER",
	},
}

// StructuralCheck opens path and verifies it conforms to spec.md §4.H's
// post-write structural check: every required table and column exists with
// its expected logical type, and sample coordinate/elevation values fall
// within the documented ranges (lat in [-90,90], lng in [-180,180],
// elevation in [-500,9000]).
func StructuralCheck(ctx context.Context, path string) error {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrStructuralCheck, path, err)
	}
	defer db.Close()

	for table, cols := range requiredColumns {
		actual, err := tableColumns(ctx, db, table)
		if err != nil {
			return fmt.Errorf("%w: table %s: %v", ErrStructuralCheck, table, err)
		}
		for col, wantType := range cols {
			gotType, ok := actual[col]
			if !ok {
				return fmt.Errorf("%w: table %s missing column %s", ErrStructuralCheck, table, col)
			}
			if gotType != wantType {
				return fmt.Errorf("%w: table %s column %s has type %s, want %s",
					ErrStructuralCheck, table, col, gotType, wantType)
			}
		}
	}

	if err := checkRanges(ctx, db); err != nil {
		return err
	}
	return nil
}

func tableColumns(ctx context.Context, db *sqlx.DB, table string) (map[string]string, error) {
	var exists int
	if err := db.GetContext(ctx, &exists,
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, table); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("table does not exist")
	}

	rows, err := db.QueryxContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]string)
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = ctype
	}
	return cols, rows.Err()
}

func checkRanges(ctx context.Context, db *sqlx.DB) error {
	type bound struct {
		min, max sql.NullFloat64
	}
	queries := map[string]string{
		"trails.min_lng":    `SELECT min(min_lng), max(min_lng) FROM trails`,
		"trails.min_lat":    `SELECT min(min_lat), max(min_lat) FROM trails`,
		"trails.elevation":  `SELECT min(elevation_min), max(elevation_max) FROM trails WHERE has_elevation = 1`,
		"routing_nodes.lng": `SELECT min(lng), max(lng) FROM routing_nodes`,
		"routing_nodes.lat": `SELECT min(lat), max(lat) FROM routing_nodes`,
	}
	limits := map[string][2]float64{
		"trails.min_lng":    {-180, 180},
		"trails.min_lat":    {-90, 90},
		"trails.elevation":  {-500, 9000},
		"routing_nodes.lng": {-180, 180},
		"routing_nodes.lat": {-90, 90},
	}

	for key, q := range queries {
		var b bound
		row := db.QueryRowxContext(ctx, q)
		if err := row.Scan(&b.min, &b.max); err != nil {
			return fmt.Errorf("%w: range query %s: %v", ErrStructuralCheck, key, err)
		}
		if !b.min.Valid {
			continue // empty table: nothing to range-check
		}
		lim := limits[key]
		if b.min.Float64 < lim[0] || b.max.Float64 > lim[1] {
			return fmt.Errorf("%w: %s out of range [%.1f, %.1f]: got [%.6f, %.6f]",
				ErrStructuralCheck, key, lim[0], lim[1], b.min.Float64, b.max.Float64)
		}
	}
	return nil
}

// Reader reopens a previously written snapshot for the validator (component
// I) to run post-export checks against.
type Reader struct {
	db *sqlx.DB
}

// Open reopens path read-only-in-spirit (no writes are issued).
func Open(path string) (*Reader, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	return &Reader{db: db}, nil
}

// Close releases the underlying connection.
func (r *Reader) Close() error { return r.db.Close() }

// Trails returns every row of the trails table.
func (r *Reader) Trails(ctx context.Context) ([]TrailRow, error) {
	var rows []TrailRow
	err := r.db.SelectContext(ctx, &rows, `SELECT * FROM trails`)
	return rows, err
}

// Nodes returns every row of the routing_nodes table.
func (r *Reader) Nodes(ctx context.Context) ([]NodeRow, error) {
	var rows []NodeRow
	err := r.db.SelectContext(ctx, &rows, `SELECT * FROM routing_nodes`)
	return rows, err
}

// Edges returns every row of the routing_edges table.
func (r *Reader) Edges(ctx context.Context) ([]EdgeRow, error) {
	var rows []EdgeRow
	err := r.db.SelectContext(ctx, &rows, `SELECT * FROM routing_edges`)
	return rows, err
}

// SchemaVersion returns the version stamped in the opened snapshot.
func (r *Reader) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := r.db.GetContext(ctx, &v, `SELECT version FROM schema_version LIMIT 1`)
	return v, err
}
