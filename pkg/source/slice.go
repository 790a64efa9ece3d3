package source

import (
	"context"
	"sync"

	"github.com/AleksandarIlic/ParseQueryLoader/pkg/query"
)

// Slice is an in-memory query.Source over a fixed ordered slice.
// It is safe for concurrent use.
type Slice[T any] struct {
	mu    sync.RWMutex
	items []T
}

// NewSlice creates a slice source over the given items.
// The slice is not copied; callers must not modify it afterwards.
func NewSlice[T any](items []T) *Slice[T] {
	return &Slice[T]{items: items}
}

// Execute implements query.Source.
func (s *Slice[T]) Execute(ctx context.Context, params query.Params) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Skip >= len(s.items) {
		return nil, nil
	}

	window := s.items[params.Skip:]
	if params.Limit > 0 && params.Limit < len(window) {
		window = window[:params.Limit]
	}

	out := make([]T, len(window))
	copy(out, window)
	return out, nil
}

// Replace swaps the backing slice; readers see the new data on the next load.
func (s *Slice[T]) Replace(items []T) {
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

// Len returns the number of items in the source.
func (s *Slice[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
