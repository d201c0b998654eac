package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrDuplicateDialInCode is returned when a series root or single room
	// reuses a dial-in code. It wraps ErrDuplicate.
	ErrDuplicateDialInCode = fmt.Errorf("%w: dial-in code", ErrDuplicate)
	// ErrConstraintViolation is returned when a row breaks a schema constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrTransient marks failures that may succeed when retried.
	ErrTransient = errors.New("persistence: transient failure")
)
