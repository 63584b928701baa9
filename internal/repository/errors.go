package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Sentinel errors surfaced to services independent of the driver.
var (
	ErrDuplicate = errors.New("duplicate key")
	ErrConflict  = errors.New("concurrent modification")
)

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// translate maps Postgres error codes onto repository sentinels, keeping the driver
// error in the chain.
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return fmt.Errorf("%w (%s): %w", ErrDuplicate, pqErr.Constraint, err)
	case pqSerializationFailure, pqDeadlockDetected:
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

// IsDuplicateOn reports whether err is a unique violation on the named constraint.
func IsDuplicateOn(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pqUniqueViolation && pqErr.Constraint == constraint
}
