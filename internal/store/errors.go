package store

import "errors"

// ErrNotFound is returned when a requested record does not exist.
// Callers translate it to the appropriate domain error.
var ErrNotFound = errors.New("record not found")
