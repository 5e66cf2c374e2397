package recipientrepo

import "errors"

var (
	// ErrNotFound indicates the requested recipient does not exist.
	ErrNotFound = errors.New("recipient not found")

	// ErrEmailTaken indicates a recipient already exists with the provided email.
	ErrEmailTaken = errors.New("recipient email already registered")
)
