package storage

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for unique index violations
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation.
// Stores use this to map index conflicts to the conflict error kind, which
// closes the race between a friendly pre-check and the insert.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
