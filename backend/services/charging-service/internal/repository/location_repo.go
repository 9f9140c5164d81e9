package repository

import (
	"context"
	"database/sql"

	"campusev/backend/services/charging-service/internal/models"
)

// LocationRepository reads charging areas from the campus location registry.
type LocationRepository struct {
	db *sql.DB
}

// NewLocationRepository returns repository.
func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// ListChargingAreas returns locations that host charging piles.
func (r *LocationRepository) ListChargingAreas(ctx context.Context) ([]models.Location, error) {
	const query = `
		SELECT id, name, latitude, longitude, location_type, COALESCE(description, ''), created_at
		FROM campus_locations
		WHERE location_type = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, models.LocationTypeCharging)
	if err != nil {
		return nil, mapErr(err, "charging areas")
	}
	defer rows.Close()

	areas := make([]models.Location, 0)
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Latitude, &l.Longitude, &l.LocationType, &l.Description, &l.CreatedAt); err != nil {
			return nil, mapErr(err, "charging areas")
		}
		areas = append(areas, l)
	}
	return areas, mapErr(rows.Err(), "charging areas")
}

// GetLocation returns a location by id.
func (r *LocationRepository) GetLocation(ctx context.Context, id int64) (*models.Location, error) {
	const query = `
		SELECT id, name, latitude, longitude, location_type, COALESCE(description, ''), created_at
		FROM campus_locations
		WHERE id = $1
	`
	var l models.Location
	err := r.db.QueryRowContext(ctx, query, id).Scan(&l.ID, &l.Name, &l.Latitude, &l.Longitude, &l.LocationType, &l.Description, &l.CreatedAt)
	if err != nil {
		return nil, mapErr(err, "location")
	}
	return &l, nil
}
