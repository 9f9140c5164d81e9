package repository

import (
	"context"
	"database/sql"
	"errors"

	"campusev/backend/libs/db"
	apperrors "campusev/backend/libs/errors"
	"campusev/backend/services/charging-service/internal/models"
)

// Store is the persistence contract of the charging engine. Every mutation
// performed by the service layer runs inside Atomic.
type Store interface {
	// Atomic runs fn in one transaction. Calls nested inside fn reuse it.
	Atomic(ctx context.Context, fn func(tx Store) error) error

	GetPile(ctx context.Context, id int64) (*models.Pile, error)
	// LockPile reads the pile and holds its row lock until the transaction ends.
	LockPile(ctx context.Context, id int64) (*models.Pile, error)
	ListPiles(ctx context.Context, locationID int64) ([]models.Pile, error)
	CreatePile(ctx context.Context, pile *models.Pile) error
	UpdatePile(ctx context.Context, pile *models.Pile) error
	SetPileStatus(ctx context.Context, id int64, status models.PileStatus) error
	DeletePile(ctx context.Context, id int64) error

	GetSession(ctx context.Context, id int64) (*models.Session, error)
	LockSession(ctx context.Context, id int64) (*models.Session, error)
	ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	CreateSession(ctx context.Context, session *models.Session) error
	UpdateSession(ctx context.Context, session *models.Session) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// mapErr converts driver errors into application errors.
func mapErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case apperrors.As(err) != nil:
		return err
	case errors.Is(err, sql.ErrNoRows):
		return apperrors.Newf(apperrors.CodeNotFound, "%s not found", what)
	case db.IsExclusionViolation(err):
		return apperrors.Wrap(apperrors.CodeConflict, err, "time slot overlaps an existing reservation")
	case db.IsForeignKeyViolation(err):
		return apperrors.Wrap(apperrors.CodeNotFound, err, "referenced record not found")
	default:
		return apperrors.Wrap(apperrors.CodeStorage, err, what+" storage failure")
	}
}

func affectedOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err, what)
	}
	if n == 0 {
		return mapErr(sql.ErrNoRows, what)
	}
	return nil
}
