package database

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no document.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("duplicate document")
	// ErrStale is returned when a conditional update finds the document no
	// longer in the expected state.
	ErrStale = errors.New("document changed concurrently")
)
