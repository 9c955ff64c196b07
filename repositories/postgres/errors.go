package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/upb/license-inventory/repositories"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// wrapWriteError maps unique violations to repositories.ErrDuplicate and
// foreign key violations to repositories.ErrInvalidReference
func wrapWriteError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w (%s)", op, repositories.ErrDuplicate, pqErr.Constraint)
		case foreignKeyViolation:
			return fmt.Errorf("%s: %w (%s)", op, repositories.ErrInvalidReference, pqErr.Constraint)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// wrapReadError maps sql.ErrNoRows to repositories.ErrNotFound
func wrapReadError(what string, key interface{}, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s not found: %v: %w", what, key, repositories.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

// checkRowsAffected returns ErrNotFound when a write touched no rows
func checkRowsAffected(result sql.Result, what string, key interface{}) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %v: %w", what, key, repositories.ErrNotFound)
	}
	return nil
}
