package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// ErrorDump is a log-friendly view of an error chain.
type ErrorDump struct {
	TopMessage string
	Code       Code
	Chain      []string

	PGCode       string
	PGConstraint string
	PGTable      string
	PGDetail     string
	PGMessage    string
}

// Dump flattens err for structured logging.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
		Code:       CodeOf(err),
	}

	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgErr *pgconn.PgError
	if stdErrors.As(err, &pgErr) {
		d.PGCode = pgErr.Code
		d.PGConstraint = pgErr.ConstraintName
		d.PGTable = pgErr.TableName
		d.PGDetail = pgErr.Detail
		d.PGMessage = pgErr.Message
	}

	return d
}

// Fields renders the dump as zap fields, skipping empty pg attributes.
func (d ErrorDump) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("error", d.TopMessage),
		zap.String("error_code", string(d.Code)),
		zap.Strings("error_chain", d.Chain),
	}
	if d.PGCode != "" {
		fields = append(fields,
			zap.String("pg_code", d.PGCode),
			zap.String("pg_constraint", d.PGConstraint),
			zap.String("pg_table", d.PGTable),
			zap.String("pg_detail", d.PGDetail),
			zap.String("pg_message", d.PGMessage),
		)
	}
	return fields
}
