package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStorage marks failures of the underlying store (I/O, corruption,
	// transaction conflicts) as opposed to missing records.
	ErrStorage = errors.New("storage failure")
)
