package models

import "time"

// LocationTypeCharging marks campus locations that host charging piles.
const LocationTypeCharging = "charging"

// Location is a campus place, owned by the location registry.
type Location struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Latitude     float64   `db:"latitude" json:"latitude"`
	Longitude    float64   `db:"longitude" json:"longitude"`
	LocationType string    `db:"location_type" json:"location_type"`
	Description  string    `db:"description" json:"description,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
