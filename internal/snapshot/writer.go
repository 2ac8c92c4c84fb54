package snapshot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

const schemaDDL = `
CREATE TABLE schema_version (
	version     INTEGER NOT NULL,
	description TEXT NOT NULL,
	written_at  DATETIME NOT NULL
);

CREATE TABLE trails (
	trail_id          TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	region            TEXT NOT NULL,
	trail_type        TEXT,
	surface           TEXT,
	difficulty        TEXT,
	geometry_geojson  TEXT NOT NULL,
	length_km         REAL NOT NULL,
	elevation_gain    REAL NOT NULL,
	elevation_loss    REAL NOT NULL,
	elevation_min     REAL NOT NULL,
	elevation_max     REAL NOT NULL,
	elevation_avg     REAL NOT NULL,
	has_elevation     INTEGER NOT NULL,
	min_lng           REAL NOT NULL,
	min_lat           REAL NOT NULL,
	max_lng           REAL NOT NULL,
	max_lat           REAL NOT NULL,
	source            TEXT,
	original_trail_id TEXT
);

CREATE TABLE routing_nodes (
	node_id             INTEGER PRIMARY KEY,
	lng                 REAL NOT NULL,
	lat                 REAL NOT NULL,
	node_type           TEXT NOT NULL,
	connected_trail_ids TEXT NOT NULL
);

CREATE TABLE routing_edges (
	edge_id            TEXT PRIMARY KEY,
	source_node        INTEGER NOT NULL,
	target_node        INTEGER NOT NULL,
	trail_id           TEXT NOT NULL,
	trail_name         TEXT,
	distance_km        REAL NOT NULL,
	elevation_gain_m   REAL NOT NULL,
	elevation_loss_m   REAL NOT NULL,
	geometry_geojson   TEXT NOT NULL,
	FOREIGN KEY (source_node) REFERENCES routing_nodes(node_id),
	FOREIGN KEY (target_node) REFERENCES routing_nodes(node_id)
);

CREATE TABLE region_metadata (
	region      TEXT PRIMARY KEY,
	trail_count INTEGER NOT NULL,
	node_count  INTEGER NOT NULL,
	edge_count  INTEGER NOT NULL,
	min_lng     REAL NOT NULL,
	min_lat     REAL NOT NULL,
	max_lng     REAL NOT NULL,
	max_lat     REAL NOT NULL
);
`

// Writer serializes pipeline output into a schema-versioned SQLite file
// (spec.md §4.H), grounded on the embedded-store construction pattern of
// rohankatakam-coderisk/internal/storage/sqlite.go (sqlx.Connect("sqlite3",
// path), PRAGMA foreign_keys=ON, explicit initSchema step).
type Writer struct {
	cfg Config
	log *logrus.Entry
}

// NewWriter builds a Writer.
func NewWriter(cfg Config, log *logrus.Entry) *Writer {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Writer{cfg: cfg, log: log}
}

// Write creates path as a fresh SQLite file containing in.Trails, in.Nodes,
// in.Edges, and in.Regions, stamps schema_version, and enforces the
// configured size budget once the file is complete. On budget violation the
// file is removed and ErrSizeBudgetExceeded is returned (spec.md §7
// ResourceLimit).
func (w *Writer) Write(ctx context.Context, path string, in Input) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("snapshot: remove stale file: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("snapshot: enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("snapshot: init schema: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("snapshot: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, description, written_at) VALUES (?, ?, ?)`,
		SchemaVersion, SchemaDescription, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("snapshot: write schema_version: %w", err)
	}

	for _, t := range in.Trails {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO trails
			(trail_id, name, region, trail_type, surface, difficulty, geometry_geojson,
			 length_km, elevation_gain, elevation_loss, elevation_min, elevation_max,
			 elevation_avg, has_elevation, min_lng, min_lat, max_lng, max_lat, source,
			 original_trail_id)
			VALUES
			(:trail_id, :name, :region, :trail_type, :surface, :difficulty, :geometry_geojson,
			 :length_km, :elevation_gain, :elevation_loss, :elevation_min, :elevation_max,
			 :elevation_avg, :has_elevation, :min_lng, :min_lat, :max_lng, :max_lat, :source,
			 :original_trail_id)`, t); err != nil {
			return fmt.Errorf("snapshot: insert trail %s: %w", t.TrailID, err)
		}
	}

	for _, n := range in.Nodes {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO routing_nodes (node_id, lng, lat, node_type, connected_trail_ids)
			VALUES (:node_id, :lng, :lat, :node_type, :connected_trail_ids)`, n); err != nil {
			return fmt.Errorf("snapshot: insert node %d: %w", n.NodeID, err)
		}
	}

	for _, e := range in.Edges {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO routing_edges
			(edge_id, source_node, target_node, trail_id, trail_name, distance_km,
			 elevation_gain_m, elevation_loss_m, geometry_geojson)
			VALUES
			(:edge_id, :source_node, :target_node, :trail_id, :trail_name, :distance_km,
			 :elevation_gain_m, :elevation_loss_m, :geometry_geojson)`, e); err != nil {
			return fmt.Errorf("snapshot: insert edge %s: %w", e.EdgeID, err)
		}
	}

	for _, r := range in.Regions {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO region_metadata
			(region, trail_count, node_count, edge_count, min_lng, min_lat, max_lng, max_lat)
			VALUES
			(:region, :trail_count, :node_count, :edge_count, :min_lng, :min_lat, :max_lng, :max_lat)`, r); err != nil {
			return fmt.Errorf("snapshot: insert region %s: %w", r.Region, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("snapshot: commit: %w", err)
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("snapshot: close before size check: %w", err)
	}
	// Reopen a fresh handle for the structural check below; the deferred
	// db.Close() above is now a harmless no-op on an already-closed *sql.DB.

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("snapshot: stat %s: %w", path, err)
	}
	sizeMB := float64(info.Size()) / (1024 * 1024)
	if w.cfg.MaxSnapshotSizeMB > 0 && sizeMB > w.cfg.MaxSnapshotSizeMB {
		os.Remove(path)
		return fmt.Errorf("%w: %.2f MB exceeds %.2f MB budget", ErrSizeBudgetExceeded, sizeMB, w.cfg.MaxSnapshotSizeMB)
	}

	if err := StructuralCheck(ctx, path); err != nil {
		os.Remove(path)
		return err
	}

	w.log.WithFields(logrus.Fields{
		"path":    path,
		"trails":  len(in.Trails),
		"nodes":   len(in.Nodes),
		"edges":   len(in.Edges),
		"size_mb": sizeMB,
	}).Info("snapshot written")
	return nil
}
