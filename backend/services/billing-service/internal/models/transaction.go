package models

import "time"

// TransactionSettled marks a ledger entry for a completed charging session.
const TransactionSettled = "settled"

// Transaction is the ledger entry for one completed charging session.
type Transaction struct {
	ID          int64     `db:"id" json:"id"`
	SessionID   int64     `db:"session_id" json:"session_id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	PileID      int64     `db:"pile_id" json:"pile_id"`
	EnergyKWh   float64   `db:"energy_kwh" json:"energy_kwh"`
	PricePerKWh float64   `db:"price_per_kwh" json:"price_per_kwh"`
	Amount      float64   `db:"amount" json:"amount"`
	Status      string    `db:"status" json:"status"`
	EventID     string    `db:"event_id" json:"event_id"`
	ChargedAt   time.Time `db:"charged_at" json:"charged_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
