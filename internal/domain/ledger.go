package domain

import "time"

// TransactionKind distinguishes a reservation from a collection in the
// recipient ledger.
type TransactionKind string

const (
	// KindBook reserves plates: it removes quantity from the NGO's
	// available inventory without physical handoff.
	KindBook TransactionKind = "book"
	// KindTake records collection of previously booked plates. It consumes
	// outstanding booked balance, never inventory.
	KindTake TransactionKind = "take"
)

// DonationTransaction is an immutable record of a donor giving plates to an
// NGO. Records are append-only; they are never updated or deleted.
type DonationTransaction struct {
	ID TransactionID

	DonorID  DonorID
	NGOID    NGOID
	Quantity int

	CreatedAt time.Time
}

// RecipientTransaction is an immutable record of a recipient booking or
// taking plates from an NGO. Append-only.
type RecipientTransaction struct {
	ID TransactionID

	RecipientID RecipientID
	NGOID       NGOID
	Quantity    int
	Kind        TransactionKind

	CreatedAt time.Time
}

// RecipientBookingTotal is one row of the booked-per-NGO report: gross
// booked plates per recipient, not netted against collections.
type RecipientBookingTotal struct {
	RecipientID RecipientID
	Username    string
	Email       string
	TotalBooked int
}
