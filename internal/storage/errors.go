package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// DuplicateError reports a uniqueness violation on insert. It is a
// recoverable outcome, not a failure: the row already exists and the
// caller decides whether that matters.
type DuplicateError struct {
	Entity string // "camera", "photo" or "object"
	Key    string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s `%s` already exists", e.Entity, e.Key)
}

// IsDuplicate reports whether err is (or wraps) a DuplicateError.
func IsDuplicate(err error) bool {
	var d *DuplicateError
	return errors.As(err, &d)
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
