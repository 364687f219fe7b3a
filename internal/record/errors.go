package record

import "errors"

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the requested memory does not exist.
	ErrNotFound = errors.New("record: memory not found")

	// ErrEmptyContent indicates a save was attempted with no title and no
	// content. The public engine surface maps this to a soft failure.
	ErrEmptyContent = errors.New("record: memory has no title or content")
)
