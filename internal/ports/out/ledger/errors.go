package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNGONotFound indicates the referenced NGO does not exist.
	ErrNGONotFound = errors.New("ngo not found")

	// ErrNothingOutstanding indicates a take against a pair with no booked
	// balance left to collect.
	ErrNothingOutstanding = errors.New("no outstanding booked balance")
)

// InsufficientPlatesError rejects a booking that exceeds the NGO's current
// availability. Available is the plates count at the time of the check so
// the caller can retry with a quantity that fits.
type InsufficientPlatesError struct {
	Available int
}

func (e *InsufficientPlatesError) Error() string {
	return fmt.Sprintf("insufficient plates available: %d", e.Available)
}

// OverClaimError rejects a take that exceeds the pair's outstanding booked
// balance. Remaining is the exact balance at the time of the check.
type OverClaimError struct {
	Remaining int
}

func (e *OverClaimError) Error() string {
	return fmt.Sprintf("take exceeds outstanding booked balance: %d", e.Remaining)
}
