package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	libdb "campusev/backend/libs/db"
	apperrors "campusev/backend/libs/errors"
	"campusev/backend/services/auth-service/internal/models"
)

// UserRepository handles the users table.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository returns repository instance.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	const query = `
		INSERT INTO users (school_id, phone, name, password_hash, role, is_active)
		VALUES (NULLIF($1, ''), NULLIF($2, ''), NULLIF($3, ''), $4, $5, TRUE)
		RETURNING id, is_active, created_at
	`
	err := r.db.QueryRowContext(ctx, query, user.SchoolID, user.Phone, user.Name, user.PasswordHash, user.Role).
		Scan(&user.ID, &user.IsActive, &user.CreatedAt)
	if libdb.IsUniqueViolation(err) {
		return apperrors.New(apperrors.CodeConflict, "school id or phone already registered")
	}
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, err, "create user")
	}
	return nil
}

// GetByIdentifier finds a user by school id or phone.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	const query = `
		SELECT id, COALESCE(school_id, ''), COALESCE(phone, ''), COALESCE(name, ''),
		       COALESCE(password_hash, ''), role, is_active, last_login, created_at
		FROM users
		WHERE school_id = $1 OR phone = $1
		LIMIT 1
	`
	var (
		user      models.User
		lastLogin sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, identifier).Scan(
		&user.ID, &user.SchoolID, &user.Phone, &user.Name,
		&user.PasswordHash, &user.Role, &user.IsActive, &lastLogin, &user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "load user")
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return &user, nil
}

// TouchLogin records a successful login.
func (r *UserRepository) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at); err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, err, "update last login")
	}
	return nil
}
