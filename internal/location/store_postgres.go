package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
)

// PostgresStore persists locations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, loc *Location) error {
	query := `
		INSERT INTO locations (id, label, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude
	`
	_, err := s.db.ExecContext(ctx, query, loc.ID.String(), loc.Label, loc.Latitude, loc.Longitude, loc.CreatedAt)
	if err != nil {
		return fmt.Errorf("save location: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, locationID id.LocationID) (*Location, error) {
	query := `
		SELECT id, label, latitude, longitude, created_at
		FROM locations
		WHERE id = $1
	`
	var loc Location
	var rawID string
	err := s.db.QueryRowContext(ctx, query, locationID.String()).
		Scan(&rawID, &loc.Label, &loc.Latitude, &loc.Longitude, &loc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find location: %w", err)
	}
	parsed, err := id.ParseLocationID(rawID)
	if err != nil {
		return nil, fmt.Errorf("find location: %w", err)
	}
	loc.ID = parsed
	return &loc, nil
}

func (s *PostgresStore) Exists(ctx context.Context, locationID id.LocationID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM locations WHERE id = $1)`, locationID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("location exists: %w", err)
	}
	return exists, nil
}
