package loader

import (
	"errors"
)

// Common errors returned by the loader.
var (
	// ErrNoNextPage is returned by RequestNextPage when no further page
	// exists. Check HasNextPage before requesting.
	ErrNoNextPage = errors.New("no next page to load")

	// ErrConfigLocked is returned when page size or mode are changed after
	// the first load. Reset the loader to change them.
	ErrConfigLocked = errors.New("configuration locked after first load")
)
