package repository

import (
	"context"
	"database/sql"

	"campusev/backend/services/charging-service/internal/models"
)

// VehicleRepository reads the vehicle registry.
type VehicleRepository struct {
	db *sql.DB
}

// NewVehicleRepository returns repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// GetVehicle returns vehicle by id.
func (r *VehicleRepository) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	const query = `
		SELECT id, owner_id, plate_number, brand, model, status
		FROM electric_vehicles
		WHERE id = $1
	`
	var v models.Vehicle
	err := r.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.OwnerID, &v.PlateNumber, &v.Brand, &v.Model, &v.Status)
	if err != nil {
		return nil, mapErr(err, "vehicle")
	}
	return &v, nil
}
