package models

import (
	"slices"
	"time"
)

// SessionStatus is the lifecycle state of a charging session.
type SessionStatus string

const (
	SessionReserved  SessionStatus = "reserved"
	SessionOngoing   SessionStatus = "ongoing"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// ActiveStatuses are the states that hold a pile's timeline.
var ActiveStatuses = []SessionStatus{SessionReserved, SessionOngoing}

// Active reports whether the session still claims its window.
func (s SessionStatus) Active() bool {
	return s == SessionReserved || s == SessionOngoing
}

// Terminal reports whether no further transition is possible.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// Cancellation reasons.
const (
	CancelReasonUser    = "user"
	CancelReasonAdmin   = "admin"
	CancelReasonExpired = "expired"
)

// Session is a reservation on a pile and, once started, its charging record.
type Session struct {
	ID              int64         `db:"id" json:"id"`
	UserID          int64         `db:"user_id" json:"user_id"`
	PileID          int64         `db:"pile_id" json:"pile_id"`
	VehicleID       int64         `db:"vehicle_id" json:"vehicle_id"`
	ReservationDate string        `db:"reservation_date" json:"date"`
	StartTime       string        `db:"start_time" json:"start_time"`
	EndTime         string        `db:"end_time" json:"end_time"`
	ReservedFrom    time.Time     `db:"reserved_from" json:"reserved_from"`
	ReservedUntil   time.Time     `db:"reserved_until" json:"reserved_until"`
	Status          SessionStatus `db:"status" json:"status"`
	StartedAt       *time.Time    `db:"started_at" json:"started_at,omitempty"`
	EndedAt         *time.Time    `db:"ended_at" json:"ended_at,omitempty"`
	EnergyKWh       *float64      `db:"energy_kwh" json:"energy_kwh"`
	FeeAmount       *float64      `db:"fee_amount" json:"fee_amount"`
	CancelReason    string        `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`

	// PileName is joined in for listings.
	PileName string `db:"-" json:"pile_name,omitempty"`
}

// Overlaps applies the half-open interval test against [from, until).
func (s *Session) Overlaps(from, until time.Time) bool {
	return s.ReservedFrom.Before(until) && s.ReservedUntil.After(from)
}

// SessionFilter narrows ListSessions. Zero values are ignored.
type SessionFilter struct {
	UserID        int64
	PileID        int64
	Statuses      []SessionStatus
	OverlapFrom   time.Time
	OverlapUntil  time.Time
	CreatedBefore time.Time
	Limit         int
	NewestFirst   bool
}

// Matches evaluates the filter in memory.
func (f SessionFilter) Matches(s *Session) bool {
	if f.UserID != 0 && s.UserID != f.UserID {
		return false
	}
	if f.PileID != 0 && s.PileID != f.PileID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, s.Status) {
		return false
	}
	if !f.OverlapFrom.IsZero() && !f.OverlapUntil.IsZero() && !s.Overlaps(f.OverlapFrom, f.OverlapUntil) {
		return false
	}
	if !f.CreatedBefore.IsZero() && !s.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	return true
}
