package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE for unique_violation.
const uniqueViolation = "23505"

var (
	// ErrPersistence marks a storage or transport failure. Callers may retry.
	ErrPersistence = errors.New("persistence failure")
	// ErrPrecondition marks a request against state that does not permit it.
	ErrPrecondition = errors.New("precondition failed")
)

// Persistence wraps err as an ErrPersistence annotated with the operation
// and identifiers that failed. Errors already classified pass through.
func Persistence(err error, op string, ids ...any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPrecondition), errors.Is(err, ErrPersistence):
		return err
	}
	return fmt.Errorf("%s %v: %w: %w", op, ids, ErrPersistence, err)
}

// MapError substitutes notFound for sql.ErrNoRows and duplicate for a
// unique violation. Anything else is returned as is.
func MapError(err, notFound, duplicate error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	if pgErr, ok := errors.AsType[*pgconn.PgError](err); ok && pgErr.Code == uniqueViolation {
		return duplicate
	}
	return err
}
