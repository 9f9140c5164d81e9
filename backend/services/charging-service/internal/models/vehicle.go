package models

// VehicleActive is the registry status of a usable vehicle.
const VehicleActive = "active"

// Vehicle is an electric vehicle from the vehicle registry.
type Vehicle struct {
	ID          int64  `db:"id" json:"id"`
	OwnerID     int64  `db:"owner_id" json:"owner_id"`
	PlateNumber string `db:"plate_number" json:"plate_number"`
	Brand       string `db:"brand" json:"brand"`
	Model       string `db:"model" json:"model"`
	Status      string `db:"status" json:"status"`
}
