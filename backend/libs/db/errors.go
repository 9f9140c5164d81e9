package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the services care about.
const (
	CodeForeignKeyViolation = "23503"
	CodeUniqueViolation     = "23505"
	CodeExclusionViolation  = "23P01"
	CodeSerialization       = "40001"
	CodeDeadlockDetected    = "40P01"
)

// PgCode extracts the SQLSTATE from a pgx error chain, or "" when err did not
// originate from Postgres.
func PgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return PgCode(err) == CodeUniqueViolation
}

// IsExclusionViolation reports whether err is an exclusion constraint violation.
func IsExclusionViolation(err error) bool {
	return PgCode(err) == CodeExclusionViolation
}

// IsForeignKeyViolation reports whether err references a missing parent row.
func IsForeignKeyViolation(err error) bool {
	return PgCode(err) == CodeForeignKeyViolation
}
