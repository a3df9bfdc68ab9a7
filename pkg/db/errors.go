package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const uniqueViolationSQLState = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally scoped to a constraint or column name. Postgres errors are
// matched on SQLSTATE so a different violation mentioning the same column
// (a not-null failure, say) never counts; the sqlite driver used in tests
// only surfaces message text, so that path falls back to string matching.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != uniqueViolationSQLState {
			return false
		}
		return constraintName == "" ||
			strings.Contains(pgErr.ConstraintName, constraintName) ||
			strings.Contains(pgErr.Detail, constraintName)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) != uniqueViolationSQLState {
			return false
		}
		return constraintName == "" ||
			strings.Contains(pqErr.Constraint, constraintName) ||
			strings.Contains(pqErr.Detail, constraintName)
	}

	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") &&
		!strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}
