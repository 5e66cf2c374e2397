package ledger

import (
	"context"

	"github.com/plateshare/foodbank-api/internal/domain"
)

// Store is the append-only plates ledger.
//
// Every NGO's plates_available counter must equal the sum of its donation
// quantities minus the sum of its booking quantities at all times, and for
// every (recipient, NGO) pair the collected total must never exceed the
// booked total. Implementations enforce both by making each append and its
// counter effect a single atomic unit, serialized per NGO (and per pair for
// takes) at the storage layer. Concurrent callers must never both pass a
// check-then-act sequence that only one of them fits.
type Store interface {
	// AppendDonation appends a donation record and increments the NGO's
	// plates_available by its quantity, atomically. It returns the stored
	// record and the updated plates count.
	//
	// Returns ErrNGONotFound if the NGO does not exist. There is no
	// deduplication: every call appends one record.
	AppendDonation(ctx context.Context, tx domain.DonationTransaction) (domain.DonationTransaction, int, error)

	// AppendBooking decrements the NGO's plates_available by the record's
	// quantity and appends a `book` record, atomically, conditioned on
	// plates_available >= quantity. It returns the stored record and the
	// updated plates count.
	//
	// Returns ErrNGONotFound, or *InsufficientPlatesError carrying the
	// current availability when the condition fails.
	AppendBooking(ctx context.Context, tx domain.RecipientTransaction) (domain.RecipientTransaction, int, error)

	// AppendTake recomputes remaining = Σbook − Σtake for the record's
	// (recipient, NGO) pair and appends a `take` record only if
	// 0 < quantity <= remaining, all inside one storage transaction.
	// Inventory is untouched: plates left availability at booking time.
	// It returns the stored record and the remaining balance after the take.
	//
	// Returns ErrNothingOutstanding when remaining <= 0, or *OverClaimError
	// carrying the exact remaining when quantity exceeds it.
	AppendTake(ctx context.Context, tx domain.RecipientTransaction) (domain.RecipientTransaction, int, error)

	// SumBookedByNGO groups `book` records for the NGO by recipient and sums
	// quantities. The totals are gross: collections are not netted out.
	SumBookedByNGO(ctx context.Context, ngoID domain.NGOID) ([]BookingTotal, error)

	// OutstandingBalance reports the booked and taken sums for a
	// (recipient, NGO) pair. remaining = booked − taken.
	OutstandingBalance(ctx context.Context, recipientID domain.RecipientID, ngoID domain.NGOID) (booked, taken int, err error)

	// ListByRecipient returns all of a recipient's records, newest first.
	ListByRecipient(ctx context.Context, recipientID domain.RecipientID) ([]domain.RecipientTransaction, error)
}

// BookingTotal is one grouped row of SumBookedByNGO, prior to joining
// recipient identity.
type BookingTotal struct {
	RecipientID domain.RecipientID
	TotalBooked int
}
