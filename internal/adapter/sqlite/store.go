// Package sqlite stores converted site points in a local SQLite database.
// It is the pipeline's alternative sink to Kafka and the backing store for
// offline analysis with gridconv.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/grid-geo-etl/internal/domain"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

const schema = `
CREATE TABLE IF NOT EXISTS site_points (
	id                TEXT PRIMARY KEY,
	source_id         TEXT,
	layer             TEXT NOT NULL,
	count             INTEGER NOT NULL DEFAULT 0,
	easting           REAL NOT NULL,
	northing          REAL NOT NULL,
	lat               REAL NOT NULL,
	lon               REAL NOT NULL,
	formatted_address TEXT,
	place_name        TEXT,
	geo_confidence    REAL,
	geo_source        TEXT,
	processed_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_site_points_layer ON site_points(layer);
`

const upsert = `
INSERT INTO site_points (
	id, source_id, layer, count, easting, northing, lat, lon,
	formatted_address, place_name, geo_confidence, geo_source, processed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	source_id = excluded.source_id,
	layer = excluded.layer,
	count = excluded.count,
	easting = excluded.easting,
	northing = excluded.northing,
	lat = excluded.lat,
	lon = excluded.lon,
	formatted_address = excluded.formatted_address,
	place_name = excluded.place_name,
	geo_confidence = excluded.geo_confidence,
	geo_source = excluded.geo_source,
	processed_at = excluded.processed_at`

const selectPoints = `
SELECT id, source_id, layer, count, easting, northing, lat, lon,
	formatted_address, place_name, geo_confidence, geo_source, processed_at
FROM site_points`

// Store persists SitePoints. It implements pipeline.BatchLoader.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory %q: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %q: %w", path, err)
	}
	// SQLite allows a single writer; serializing here avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("verify sqlite connection to %q: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// LoadBatch upserts points by ID in a single transaction.
func (s *Store) LoadBatch(ctx context.Context, points []domain.SitePoint) (err error) {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range points {
		if _, err = stmt.ExecContext(ctx,
			p.ID, nullString(p.SourceID), p.Layer, p.Count,
			p.Grid.Easting, p.Grid.Northing, p.Geo.Lat, p.Geo.Lon,
			nullString(p.FormattedAddress), nullString(p.PlaceName), p.GeoConfidence, nullString(p.GeoSource),
			p.ProcessedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("upsert point %s: %w", p.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Points returns stored points in first-insert order. An empty layer
// returns every layer.
func (s *Store) Points(ctx context.Context, layer string) ([]domain.SitePoint, error) {
	query := selectPoints + " ORDER BY rowid"
	var args []any
	if layer != "" {
		query = selectPoints + " WHERE layer = ? ORDER BY rowid"
		args = append(args, layer)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var points []domain.SitePoint
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate points: %w", err)
	}
	return points, nil
}

// Ping checks the database connection. The pipeline calls it from its
// readiness check when the store is the sink.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func scanPoint(rows *sql.Rows) (domain.SitePoint, error) {
	var (
		p                                   domain.SitePoint
		sourceID, address, place, geoSource sql.NullString
		confidence                          sql.NullFloat64
		processedAt                         string
	)
	if err := rows.Scan(
		&p.ID, &sourceID, &p.Layer, &p.Count,
		&p.Grid.Easting, &p.Grid.Northing, &p.Geo.Lat, &p.Geo.Lon,
		&address, &place, &confidence, &geoSource, &processedAt,
	); err != nil {
		return domain.SitePoint{}, fmt.Errorf("scan point: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, processedAt)
	if err != nil {
		return domain.SitePoint{}, fmt.Errorf("point %s: parse processed_at: %w", p.ID, err)
	}

	p.SourceID = sourceID.String
	p.FormattedAddress = address.String
	p.PlaceName = place.String
	p.GeoConfidence = confidence.Float64
	p.GeoSource = geoSource.String
	p.ProcessedAt = ts
	return p, nil
}

// nullString returns a sql.NullString for optional string fields.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
