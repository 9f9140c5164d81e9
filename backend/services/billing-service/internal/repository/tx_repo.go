package repository

import (
	"context"
	"database/sql"
	"errors"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/services/billing-service/internal/models"
)

const defaultListLimit = 50

// TransactionRepository persists billing transactions.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository returns repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts tx unless the session is already settled. It reports
// whether a row was written.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) (bool, error) {
	const query = `
		INSERT INTO billing_transactions
			(session_id, user_id, pile_id, energy_kwh, price_per_kwh, amount, status, event_id, charged_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (session_id) DO NOTHING
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		tx.SessionID,
		tx.UserID,
		tx.PileID,
		tx.EnergyKWh,
		tx.PricePerKWh,
		tx.Amount,
		tx.Status,
		tx.EventID,
		tx.ChargedAt,
	).Scan(&tx.ID, &tx.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeStorage, err, "insert billing transaction")
	}
	return true, nil
}

// ListByUser returns latest transactions for user.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	const query = `
		SELECT id, session_id, user_id, pile_id, energy_kwh, price_per_kwh, amount, status, event_id, charged_at, created_at
		FROM billing_transactions
		WHERE user_id = $1
		ORDER BY charged_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "list billing transactions")
	}
	defer rows.Close()

	txs := make([]models.Transaction, 0)
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID,
			&tx.SessionID,
			&tx.UserID,
			&tx.PileID,
			&tx.EnergyKWh,
			&tx.PricePerKWh,
			&tx.Amount,
			&tx.Status,
			&tx.EventID,
			&tx.ChargedAt,
			&tx.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorage, err, "scan billing transaction")
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "iterate billing transactions")
	}
	return txs, nil
}
