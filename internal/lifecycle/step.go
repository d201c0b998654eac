package lifecycle

import (
	"context"
	"fmt"

	"github.com/example/meeting-rooms/internal/persistence"
)

// ReadFunc loads the next page of at most limit candidates.
type ReadFunc[T any] func(ctx context.Context, uow persistence.UnitOfWork, limit int) ([]T, error)

// WriteFunc applies the step transition to one page and persists it.
type WriteFunc[T any] func(ctx context.Context, uow persistence.UnitOfWork, items []T) error

// Step is one stage of a job. Every chunk is read and written in the same
// unit of work, and the step ends on the first empty page.
type Step interface {
	Name() string
	chunk(ctx context.Context, uow persistence.UnitOfWork, limit int) ([]string, error)
}

type chunkStep[T any] struct {
	name  string
	read  ReadFunc[T]
	write WriteFunc[T]
	key   func(T) string
}

// NewStep builds a step over items of type T. key identifies an item and is
// used to detect a step that keeps reading the same page.
func NewStep[T any](name string, read ReadFunc[T], write WriteFunc[T], key func(T) string) Step {
	return chunkStep[T]{name: name, read: read, write: write, key: key}
}

func (s chunkStep[T]) Name() string { return s.name }

func (s chunkStep[T]) chunk(ctx context.Context, uow persistence.UnitOfWork, limit int) ([]string, error) {
	items, err := s.read(ctx, uow, limit)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	if err := s.write(ctx, uow, items); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = s.key(item)
	}
	return keys, nil
}
