package ngorepo

import "errors"

var (
	// ErrNotFound indicates the requested NGO does not exist.
	ErrNotFound = errors.New("ngo not found")

	// ErrEmailTaken indicates an NGO already exists with the provided email.
	ErrEmailTaken = errors.New("ngo email already registered")
)
