// Package query defines the remote query capability the loader fetches from.
package query

import (
	"context"
	"errors"
	"fmt"
)

// Common errors returned by query sources.
var (
	// ErrSourceClosed is returned when a source is used after Close.
	ErrSourceClosed = errors.New("query source closed")
)

// Params holds the per-call window passed to a source.
// A Limit of 0 means unbounded: the source returns everything from Skip on.
type Params struct {
	// Skip is the number of leading items to skip.
	Skip int

	// Limit is the maximum number of items to return (0 = no limit).
	Limit int
}

// Source executes an ordered query against a remote backend.
// Implementations must return items in a stable order across calls so that
// skip/limit windows tile the full result set.
type Source[T any] interface {
	// Execute runs the query for the given window and returns the items in order.
	Execute(ctx context.Context, params Params) ([]T, error)
}

// Error represents a failed query execution with additional context.
type Error struct {
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query %s error: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("query %s error: %s", e.Op, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}
