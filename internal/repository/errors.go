package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint failure on
// the given column. Works for both SQLite and PostgreSQL.
func isUniqueViolation(err error, column string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && strings.Contains(pgErr.ConstraintName, column)
	}

	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") && strings.Contains(errStr, "."+column)
}
