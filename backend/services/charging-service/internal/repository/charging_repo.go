package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"campusev/backend/libs/db"
	"campusev/backend/services/charging-service/internal/models"
)

const dateLayout = "2006-01-02"

// ChargingRepository is the Postgres Store.
type ChargingRepository struct {
	db   *sql.DB
	q    querier
	inTx bool
}

// NewChargingRepository returns repository.
func NewChargingRepository(conn *sql.DB) *ChargingRepository {
	return &ChargingRepository{db: conn, q: conn}
}

// Atomic runs fn inside a single transaction.
func (r *ChargingRepository) Atomic(ctx context.Context, fn func(tx Store) error) error {
	if r.inTx {
		return fn(r)
	}
	err := db.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		return fn(&ChargingRepository{db: r.db, q: tx, inTx: true})
	})
	return mapErr(err, "transaction")
}

const pileColumns = `id, location_id, name, connector, power_kw, fee_rate, status, updated_at`

func scanPile(row interface{ Scan(...any) error }) (*models.Pile, error) {
	var p models.Pile
	if err := row.Scan(&p.ID, &p.LocationID, &p.Name, &p.Connector, &p.PowerKW, &p.FeeRate, &p.Status, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPile returns pile by id.
func (r *ChargingRepository) GetPile(ctx context.Context, id int64) (*models.Pile, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+pileColumns+` FROM charging_piles WHERE id = $1`, id)
	p, err := scanPile(row)
	return p, mapErr(err, "charging pile")
}

// LockPile returns pile by id holding FOR UPDATE until the tx ends.
func (r *ChargingRepository) LockPile(ctx context.Context, id int64) (*models.Pile, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+pileColumns+` FROM charging_piles WHERE id = $1 FOR UPDATE`, id)
	p, err := scanPile(row)
	return p, mapErr(err, "charging pile")
}

// ListPiles returns piles of a location, or all piles when locationID is 0.
func (r *ChargingRepository) ListPiles(ctx context.Context, locationID int64) ([]models.Pile, error) {
	query := `SELECT ` + pileColumns + ` FROM charging_piles`
	var args []any
	if locationID != 0 {
		query += ` WHERE location_id = $1`
		args = append(args, locationID)
	}
	query += ` ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, "charging piles")
	}
	defer rows.Close()

	piles := make([]models.Pile, 0)
	for rows.Next() {
		p, err := scanPile(rows)
		if err != nil {
			return nil, mapErr(err, "charging piles")
		}
		piles = append(piles, *p)
	}
	return piles, mapErr(rows.Err(), "charging piles")
}

// CreatePile inserts a pile and fills generated fields.
func (r *ChargingRepository) CreatePile(ctx context.Context, pile *models.Pile) error {
	const query = `
		INSERT INTO charging_piles (location_id, name, connector, power_kw, fee_rate, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, updated_at
	`
	err := r.q.QueryRowContext(ctx, query,
		pile.LocationID,
		pile.Name,
		pile.Connector,
		pile.PowerKW,
		pile.FeeRate,
		pile.Status,
	).Scan(&pile.ID, &pile.UpdatedAt)
	return mapErr(err, "charging pile")
}

// UpdatePile persists the mutable pile attributes.
func (r *ChargingRepository) UpdatePile(ctx context.Context, pile *models.Pile) error {
	const query = `
		UPDATE charging_piles
		SET name = $2,
		    connector = $3,
		    power_kw = $4,
		    fee_rate = $5,
		    status = $6,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.q.QueryRowContext(ctx, query,
		pile.ID,
		pile.Name,
		pile.Connector,
		pile.PowerKW,
		pile.FeeRate,
		pile.Status,
	).Scan(&pile.UpdatedAt)
	return mapErr(err, "charging pile")
}

// SetPileStatus writes the cached status only.
func (r *ChargingRepository) SetPileStatus(ctx context.Context, id int64, status models.PileStatus) error {
	res, err := r.q.ExecContext(ctx, `UPDATE charging_piles SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return mapErr(err, "charging pile")
	}
	return affectedOne(res, "charging pile")
}

// DeletePile removes a pile; its sessions go with it.
func (r *ChargingRepository) DeletePile(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM charging_piles WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, "charging pile")
	}
	return affectedOne(res, "charging pile")
}

const sessionColumns = `
	s.id, s.user_id, s.pile_id, s.vehicle_id, s.reservation_date, s.start_time, s.end_time,
	s.reserved_from, s.reserved_until, s.status, s.started_at, s.ended_at,
	s.energy_kwh, s.fee_amount, s.cancel_reason, s.created_at, s.updated_at,
	COALESCE(p.name, '')
`

const sessionFrom = ` FROM charging_sessions s LEFT JOIN charging_piles p ON p.id = s.pile_id`

func scanSession(row interface{ Scan(...any) error }) (*models.Session, error) {
	var (
		s       models.Session
		date    time.Time
		started sql.NullTime
		ended   sql.NullTime
		energy  sql.NullFloat64
		fee     sql.NullFloat64
		reason  sql.NullString
	)
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.PileID,
		&s.VehicleID,
		&date,
		&s.StartTime,
		&s.EndTime,
		&s.ReservedFrom,
		&s.ReservedUntil,
		&s.Status,
		&started,
		&ended,
		&energy,
		&fee,
		&reason,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.PileName,
	)
	if err != nil {
		return nil, err
	}
	s.ReservationDate = date.Format(dateLayout)
	if started.Valid {
		s.StartedAt = &started.Time
	}
	if ended.Valid {
		s.EndedAt = &ended.Time
	}
	if energy.Valid {
		s.EnergyKWh = &energy.Float64
	}
	if fee.Valid {
		s.FeeAmount = &fee.Float64
	}
	s.CancelReason = reason.String
	return &s, nil
}

// GetSession returns session by id.
func (r *ChargingRepository) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+sessionColumns+sessionFrom+` WHERE s.id = $1`, id)
	s, err := scanSession(row)
	return s, mapErr(err, "charging session")
}

// LockSession re-reads a session under its row lock.
func (r *ChargingRepository) LockSession(ctx context.Context, id int64) (*models.Session, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+sessionColumns+sessionFrom+` WHERE s.id = $1 FOR UPDATE OF s`, id)
	s, err := scanSession(row)
	return s, mapErr(err, "charging session")
}

// ListSessions returns sessions matching filter.
func (r *ChargingRepository) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != 0 {
		where = append(where, "s.user_id = "+arg(filter.UserID))
	}
	if filter.PileID != 0 {
		where = append(where, "s.pile_id = "+arg(filter.PileID))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		where = append(where, "s.status = ANY("+arg(statuses)+")")
	}
	if !filter.OverlapFrom.IsZero() && !filter.OverlapUntil.IsZero() {
		where = append(where, "s.reserved_from < "+arg(filter.OverlapUntil))
		where = append(where, "s.reserved_until > "+arg(filter.OverlapFrom))
	}
	if !filter.CreatedBefore.IsZero() {
		where = append(where, "s.created_at < "+arg(filter.CreatedBefore))
	}

	query := `SELECT ` + sessionColumns + sessionFrom
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if filter.NewestFirst {
		query += ` ORDER BY s.id DESC`
	} else {
		query += ` ORDER BY s.pile_id, s.reserved_from, s.id`
	}
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, "charging sessions")
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, mapErr(err, "charging sessions")
		}
		sessions = append(sessions, *s)
	}
	return sessions, mapErr(rows.Err(), "charging sessions")
}

// CreateSession inserts a reservation.
func (r *ChargingRepository) CreateSession(ctx context.Context, session *models.Session) error {
	const query = `
		INSERT INTO charging_sessions (
			user_id, pile_id, vehicle_id, reservation_date, start_time, end_time,
			reserved_from, reserved_until, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id, updated_at
	`
	err := r.q.QueryRowContext(ctx, query,
		session.UserID,
		session.PileID,
		session.VehicleID,
		session.ReservationDate,
		session.StartTime,
		session.EndTime,
		session.ReservedFrom,
		session.ReservedUntil,
		session.Status,
		session.CreatedAt,
	).Scan(&session.ID, &session.UpdatedAt)
	return mapErr(err, "charging session")
}

// UpdateSession persists the lifecycle fields of a session.
func (r *ChargingRepository) UpdateSession(ctx context.Context, session *models.Session) error {
	const query = `
		UPDATE charging_sessions
		SET status = $2,
		    started_at = $3,
		    ended_at = $4,
		    energy_kwh = $5,
		    fee_amount = $6,
		    cancel_reason = NULLIF($7, ''),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.q.QueryRowContext(ctx, query,
		session.ID,
		session.Status,
		session.StartedAt,
		session.EndedAt,
		session.EnergyKWh,
		session.FeeAmount,
		session.CancelReason,
	).Scan(&session.UpdatedAt)
	return mapErr(err, "charging session")
}

var _ Store = (*ChargingRepository)(nil)
