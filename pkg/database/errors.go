package database

import (
	"errors"

	"github.com/lib/pq"
)

// Postgres SQLSTATE codes the services react to.
const (
	codeUndefinedTable  = "42P01"
	codeUniqueViolation = "23505"
	codeForeignKey      = "23503"
)

// IsUndefinedTable reports whether err is a missing-relation failure.
func IsUndefinedTable(err error) bool {
	return hasCode(err, codeUndefinedTable)
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// IsForeignKeyViolation reports whether err references a missing parent row.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, codeForeignKey)
}

// ConstraintName returns the violated constraint when err carries one.
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

func hasCode(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}
