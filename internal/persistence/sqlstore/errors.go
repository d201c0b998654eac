package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/example/meeting-rooms/internal/persistence"
)

// mapError translates driver errors into persistence sentinels. The driver
// error stays in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			if strings.Contains(pqErr.Constraint, "dial_in_code") {
				return fmt.Errorf("%w: %w", persistence.ErrDuplicateDialInCode, err)
			}
			return fmt.Errorf("%w: %w", persistence.ErrDuplicate, err)
		case "23502", "23503", "23514":
			return fmt.Errorf("%w: %w", persistence.ErrConstraintViolation, err)
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %w", persistence.ErrTransient, err)
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		msg := liteErr.Error()
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			if strings.Contains(msg, "UNIQUE") || strings.Contains(msg, "PRIMARY KEY") {
				if strings.Contains(msg, "dial_in_code") {
					return fmt.Errorf("%w: %w", persistence.ErrDuplicateDialInCode, err)
				}
				return fmt.Errorf("%w: %w", persistence.ErrDuplicate, err)
			}
			return fmt.Errorf("%w: %w", persistence.ErrConstraintViolation, err)
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", persistence.ErrTransient, err)
		}
	}
	return err
}
