package database

import "errors"

var (
	// ErrNotFound is returned when a photo or person id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput is returned when a call is rejected before any side effect
	// (empty embeddings, blank ids, malformed filters).
	ErrInvalidInput = errors.New("invalid input")
)
