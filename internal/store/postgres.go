// Package store persists acquisition results for later retrieval and audit.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Woomou/anysiteonearth-backend/model"
)

// PostgresStore writes acquisition results to PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to the database described by dsn.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS acquisitions (
	id          BIGSERIAL PRIMARY KEY,
	created_at  TIMESTAMPTZ NOT NULL,
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	tier        TEXT NOT NULL,
	buffer_m    DOUBLE PRECISION NOT NULL,
	zoom        INTEGER NOT NULL,
	start_date  DATE NOT NULL,
	end_date    DATE NOT NULL,
	tile_count  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS acquisition_images (
	id              BIGSERIAL PRIMARY KEY,
	acquisition_id  BIGINT NOT NULL REFERENCES acquisitions(id) ON DELETE CASCADE,
	dataset         TEXT NOT NULL,
	image_ref       TEXT NOT NULL,
	resolution      TEXT NOT NULL,
	acquired_at     TIMESTAMPTZ,
	cloud_cover_pct DOUBLE PRECISION NOT NULL,
	collection_size INTEGER NOT NULL,
	next_pass       TIMESTAMPTZ
);
`

// EnsureSchema creates the result tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveResult persists one acquisition result and its per-dataset images in a
// single transaction. It returns the new acquisition row ID.
func (s *PostgresStore) SaveResult(ctx context.Context, res *model.AcquisitionResult) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO acquisitions
			(created_at, latitude, longitude, tier, buffer_m, zoom, start_date, end_date, tile_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		res.Timestamp,
		res.Location.Latitude, res.Location.Longitude,
		string(res.Tier), res.BufferM, res.Zoom,
		res.Dates.Start, res.Dates.End,
		res.TileInfo.Count,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert acquisition: %w", err)
	}

	for _, img := range res.Datasets {
		var acquiredAt, nextPass *time.Time
		if !img.AcquiredAt.IsZero() {
			t := img.AcquiredAt
			acquiredAt = &t
		}
		if img.NextPass != nil {
			nextPass = img.NextPass
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO acquisition_images
				(acquisition_id, dataset, image_ref, resolution, acquired_at, cloud_cover_pct, collection_size, next_pass)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id, img.Dataset, img.ImageRef, img.ResolutionLabel,
			acquiredAt, img.CloudCoverPct, img.CollectionSize, nextPass,
		)
		if err != nil {
			return 0, fmt.Errorf("insert image for %s: %w", img.Dataset, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
