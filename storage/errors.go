package storage

import "errors"

var (
	// ErrNotInteger is returned when a numeric operation finds a value that
	// is not a signed 64-bit decimal integer.
	ErrNotInteger = errors.New("value is not an integer or out of range")

	// ErrOverflow is returned when an increment or decrement would leave
	// the signed 64-bit range. The stored value is left unchanged.
	ErrOverflow = errors.New("increment or decrement would overflow")

	// ErrClosed is returned by operations on a closed storage.
	ErrClosed = errors.New("storage is closed")
)
