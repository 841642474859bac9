package domain

import "errors"

// Error taxonomy for the booking core. Repositories and services wrap these
// with context via fmt.Errorf("%w: ..."); handlers map them to HTTP statuses
// with errors.Is. Anything that matches none of them is internal.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid request")
)
