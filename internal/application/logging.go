package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/meeting-rooms/internal/logging"
	"github.com/example/meeting-rooms/internal/persistence"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx, base)

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// Kind is a stable label for the error taxonomy.
type Kind string

const (
	KindNone          Kind = ""
	KindNotFound      Kind = "not_found"
	KindValidation    Kind = "validation"
	KindAlreadyExists Kind = "already_exists"
	KindPinExhausted  Kind = "pin_exhausted"
	KindTransient     Kind = "transient"
	KindUnexpected    Kind = "unexpected"
)

// Retryable reports whether an operation failing with this kind may succeed
// when repeated unchanged.
func (k Kind) Retryable() bool {
	return k == KindTransient
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) Kind {
	if err == nil {
		return KindNone
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, ErrPinExhausted):
		return KindPinExhausted
	case errors.Is(err, persistence.ErrTransient):
		return KindTransient
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return KindValidation
	}

	return KindUnexpected
}
