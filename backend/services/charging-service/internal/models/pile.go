package models

import "time"

// PileStatus is the cached state of a charging pile.
type PileStatus string

const (
	PileAvailable PileStatus = "available"
	PileReserved  PileStatus = "reserved"
	PileCharging  PileStatus = "charging"
	PileFinished  PileStatus = "finished"
	PileOffline   PileStatus = "offline"
)

// Valid reports whether s is a known pile status.
func (s PileStatus) Valid() bool {
	switch s {
	case PileAvailable, PileReserved, PileCharging, PileFinished, PileOffline:
		return true
	}
	return false
}

// Pile is a physical charging point inside a charging area.
type Pile struct {
	ID         int64      `db:"id" json:"id"`
	LocationID int64      `db:"location_id" json:"location_id"`
	Name       string     `db:"name" json:"name"`
	Connector  string     `db:"connector" json:"connector"`
	PowerKW    float64    `db:"power_kw" json:"power_kw"`
	FeeRate    float64    `db:"fee_rate" json:"fee_rate"`
	Status     PileStatus `db:"status" json:"status"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// DerivePileStatus computes the status implied by the pile's active sessions.
// An administratively offline pile stays offline.
func DerivePileStatus(current PileStatus, active []Session) PileStatus {
	if current == PileOffline {
		return PileOffline
	}
	status := PileAvailable
	for i := range active {
		switch active[i].Status {
		case SessionOngoing:
			return PileCharging
		case SessionReserved:
			status = PileReserved
		}
	}
	return status
}
