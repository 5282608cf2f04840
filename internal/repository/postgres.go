package repository

import (
	"context"
	"fmt"

	"github.com/UnknownOlympus/tract/internal/models"
)

const createLookupsTable = `
	CREATE TABLE IF NOT EXISTS tract_lookups (
		id          BIGSERIAL PRIMARY KEY,
		street      TEXT NOT NULL,
		city        TEXT NOT NULL,
		state       TEXT NOT NULL,
		latitude    DOUBLE PRECISION,
		longitude   DOUBLE PRECISION,
		block_fips  TEXT,
		tract       INTEGER,
		outcome     TEXT NOT NULL,
		error       TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

// EnsureSchema creates the lookup journal table if it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createLookupsTable); err != nil {
		return fmt.Errorf("failed to create tract_lookups table: %w", err)
	}

	return nil
}

// RecordLookup appends a lookup to the journal. Coordinates, block FIPS, tract and
// error are stored as NULL when absent.
func (r *Repository) RecordLookup(ctx context.Context, lookup models.Lookup) error {
	query := `
		INSERT INTO tract_lookups
			(street, city, state, latitude, longitude, block_fips, tract, outcome, error)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`

	var lat, lng *float64
	if lookup.Coordinates != nil {
		lat, lng = &lookup.Coordinates.Latitude, &lookup.Coordinates.Longitude
	}

	var tract *int
	if lookup.Tract != nil {
		code := int(*lookup.Tract)
		tract = &code
	}

	_, err := r.db.Exec(ctx, query,
		lookup.Address.Street, lookup.Address.City, lookup.Address.State,
		lat, lng, nullable(lookup.BlockFIPS), tract, lookup.Outcome, nullable(lookup.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record lookup: %w", err)
	}

	return nil
}

// ListLookups returns the most recent journal entries, newest first.
func (r *Repository) ListLookups(ctx context.Context, limit int) ([]models.Lookup, error) {
	lookups := []models.Lookup{}
	query := `
		SELECT id, street, city, state, latitude, longitude, block_fips, tract, outcome, error, created_at
		FROM tract_lookups
		ORDER BY created_at DESC, id DESC
		LIMIT $1;
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			lookup    models.Lookup
			lat, lng  *float64
			blockFIPS *string
			tract     *int
			errMsg    *string
		)

		if errScan := rows.Scan(
			&lookup.ID, &lookup.Address.Street, &lookup.Address.City, &lookup.Address.State,
			&lat, &lng, &blockFIPS, &tract, &lookup.Outcome, &errMsg, &lookup.CreatedAt,
		); errScan != nil {
			return nil, fmt.Errorf("failed to scan lookup: %w", errScan)
		}

		if lat != nil && lng != nil {
			lookup.Coordinates = &models.Coordinates{Latitude: *lat, Longitude: *lng}
		}
		if blockFIPS != nil {
			lookup.BlockFIPS = *blockFIPS
		}
		if tract != nil {
			code := models.Tract(*tract)
			lookup.Tract = &code
		}
		if errMsg != nil {
			lookup.Error = *errMsg
		}

		lookups = append(lookups, lookup)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	r.log.DebugContext(ctx, "Lookups fetched from journal", "count", len(lookups))

	return lookups, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
