package donorrepo

import "errors"

var (
	// ErrNotFound indicates the requested donor does not exist.
	ErrNotFound = errors.New("donor not found")

	// ErrEmailTaken indicates a donor already exists with the provided email.
	ErrEmailTaken = errors.New("donor email already registered")

	// ErrNationalIDTaken indicates a donor already exists with the provided
	// national identifier.
	ErrNationalIDTaken = errors.New("donor national id already registered")
)
