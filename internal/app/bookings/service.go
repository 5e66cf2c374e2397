package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/plateshare/foodbank-api/internal/domain"
	clockport "github.com/plateshare/foodbank-api/internal/ports/out/clock"
	ledgerport "github.com/plateshare/foodbank-api/internal/ports/out/ledger"
	"github.com/plateshare/foodbank-api/internal/ports/out/ngorepo"
	"github.com/plateshare/foodbank-api/internal/ports/out/recipientrepo"
)

// Service is the booking/collection reconciler. Booking reserves plates out
// of an NGO's inventory; taking consumes a previously booked balance without
// touching inventory. Both are conditional appends executed atomically by
// the ledger store; this service only validates and translates errors.
type Service struct {
	recipients recipientrepo.Repository
	ngos       ngorepo.Repository
	ledger     ledgerport.Store
	clk        clockport.Clock

	newTxID func() domain.TransactionID
}

func NewService(recipients recipientrepo.Repository, ngos ngorepo.Repository, l ledgerport.Store, clk clockport.Clock) *Service {
	return &Service{
		recipients: recipients,
		ngos:       ngos,
		ledger:     l,
		clk:        clk,
		newTxID: func() domain.TransactionID {
			return domain.TransactionID(uuid.NewString())
		},
	}
}

// SetNewTransactionIDForTest overrides transaction ID generation for
// deterministic tests. It should not be used in production code.
func (s *Service) SetNewTransactionIDForTest(fn func() domain.TransactionID) {
	if fn != nil {
		s.newTxID = fn
	}
}

type BookFoodInput struct {
	RecipientID string
	NGOID       string
	Quantity    int
}

type BookFoodResult struct {
	Transaction     domain.RecipientTransaction
	PlatesAvailable int
}

// BookFood reserves plates: the NGO's availability is decremented and a
// `book` record appended, as one atomic unit conditioned on sufficient
// plates. Concurrent bookings that collectively exceed availability cannot
// all succeed; the ledger store serializes them per NGO.
func (s *Service) BookFood(ctx context.Context, in BookFoodInput) (BookFoodResult, error) {
	recipientID, ngoID, verr := parsePair(in.RecipientID, in.NGOID)
	if verr != nil {
		return BookFoodResult{}, verr
	}
	if in.Quantity <= 0 {
		return BookFoodResult{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid quantity", Details: map[string]any{"quantity": "must be greater than 0"}}
	}

	if _, err := s.recipients.GetByID(ctx, recipientID); err != nil {
		if errors.Is(err, recipientrepo.ErrNotFound) {
			return BookFoodResult{}, &Error{Status: 404, Code: "RECIPIENT_NOT_FOUND", Message: "recipient not found"}
		}
		return BookFoodResult{}, err
	}
	if _, err := s.ngos.GetByID(ctx, ngoID); err != nil {
		if errors.Is(err, ngorepo.ErrNotFound) {
			return BookFoodResult{}, &Error{Status: 404, Code: "NGO_NOT_FOUND", Message: "ngo not found"}
		}
		return BookFoodResult{}, err
	}

	rec, plates, err := s.ledger.AppendBooking(ctx, domain.RecipientTransaction{
		ID:          s.newTxID(),
		RecipientID: recipientID,
		NGOID:       ngoID,
		Quantity:    in.Quantity,
		Kind:        domain.KindBook,
		CreatedAt:   s.clk.Now(),
	})
	if err != nil {
		var insufficient *ledgerport.InsufficientPlatesError
		switch {
		case errors.As(err, &insufficient):
			return BookFoodResult{}, &Error{
				Status:  409,
				Code:    "INSUFFICIENT_PLATES",
				Message: "not enough plates available",
				Details: map[string]any{"platesAvailable": insufficient.Available},
			}
		case errors.Is(err, ledgerport.ErrNGONotFound):
			return BookFoodResult{}, &Error{Status: 404, Code: "NGO_NOT_FOUND", Message: "ngo not found"}
		}
		return BookFoodResult{}, err
	}

	return BookFoodResult{Transaction: rec, PlatesAvailable: plates}, nil
}

type TakeFoodInput struct {
	RecipientID string
	NGOID       string
	Quantity    int
}

type TakeFoodResult struct {
	Transaction domain.RecipientTransaction
	// Remaining is the outstanding booked balance after this take.
	Remaining int
}

// TakeFood records collection of previously booked plates. The outstanding
// balance is recomputed from the transaction history inside the ledger
// store's transaction, never read from a cached counter, so it cannot drift
// from the log. Inventory is untouched: plates left availability at booking
// time.
func (s *Service) TakeFood(ctx context.Context, in TakeFoodInput) (TakeFoodResult, error) {
	recipientID, ngoID, verr := parsePair(in.RecipientID, in.NGOID)
	if verr != nil {
		return TakeFoodResult{}, verr
	}
	if in.Quantity <= 0 {
		return TakeFoodResult{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid quantity", Details: map[string]any{"quantity": "must be greater than 0"}}
	}

	if _, err := s.recipients.GetByID(ctx, recipientID); err != nil {
		if errors.Is(err, recipientrepo.ErrNotFound) {
			return TakeFoodResult{}, &Error{Status: 404, Code: "RECIPIENT_NOT_FOUND", Message: "recipient not found"}
		}
		return TakeFoodResult{}, err
	}

	rec, remaining, err := s.ledger.AppendTake(ctx, domain.RecipientTransaction{
		ID:          s.newTxID(),
		RecipientID: recipientID,
		NGOID:       ngoID,
		Quantity:    in.Quantity,
		Kind:        domain.KindTake,
		CreatedAt:   s.clk.Now(),
	})
	if err != nil {
		var overclaim *ledgerport.OverClaimError
		switch {
		case errors.Is(err, ledgerport.ErrNothingOutstanding):
			return TakeFoodResult{}, &Error{Status: 409, Code: "NOTHING_OUTSTANDING", Message: "no booked food available to take"}
		case errors.As(err, &overclaim):
			return TakeFoodResult{}, &Error{
				Status:  409,
				Code:    "OVER_CLAIM",
				Message: fmt.Sprintf("you can only take up to %d plates", overclaim.Remaining),
				Details: map[string]any{"maxTakeable": overclaim.Remaining},
			}
		case errors.Is(err, ledgerport.ErrNGONotFound):
			return TakeFoodResult{}, &Error{Status: 404, Code: "NGO_NOT_FOUND", Message: "ngo not found"}
		}
		return TakeFoodResult{}, err
	}

	return TakeFoodResult{Transaction: rec, Remaining: remaining}, nil
}

// ListBookedRecipients reports, per recipient, the gross sum of booked
// plates at the given NGO joined with the recipient's identity. Totals are
// not netted against collections.
func (s *Service) ListBookedRecipients(ctx context.Context, ngoID string) ([]domain.RecipientBookingTotal, error) {
	if ngoID == "" {
		return nil, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "ngoId is required"}
	}
	if _, err := uuid.Parse(ngoID); err != nil {
		return nil, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid ngoId", Details: map[string]any{"ngoId": "must be a valid id"}}
	}

	totals, err := s.ledger.SumBookedByNGO(ctx, domain.NGOID(ngoID))
	if err != nil {
		if errors.Is(err, ledgerport.ErrNGONotFound) {
			return nil, &Error{Status: 404, Code: "NGO_NOT_FOUND", Message: "ngo not found"}
		}
		return nil, err
	}

	out := make([]domain.RecipientBookingTotal, 0, len(totals))
	for _, t := range totals {
		r, err := s.recipients.GetByID(ctx, t.RecipientID)
		if err != nil {
			if errors.Is(err, recipientrepo.ErrNotFound) {
				// Ledger rows can outlive a recipient record; skip the orphan.
				continue
			}
			return nil, err
		}
		out = append(out, domain.RecipientBookingTotal{
			RecipientID: t.RecipientID,
			Username:    r.Username,
			Email:       r.Email,
			TotalBooked: t.TotalBooked,
		})
	}
	return out, nil
}

// ListRecipientHistory returns a recipient's own ledger records, newest
// first.
func (s *Service) ListRecipientHistory(ctx context.Context, recipientID string) ([]domain.RecipientTransaction, error) {
	if recipientID == "" {
		return nil, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "recipientId is required"}
	}
	if _, err := uuid.Parse(recipientID); err != nil {
		return nil, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid recipientId", Details: map[string]any{"recipientId": "must be a valid id"}}
	}
	return s.ledger.ListByRecipient(ctx, domain.RecipientID(recipientID))
}

func parsePair(recipientID, ngoID string) (domain.RecipientID, domain.NGOID, *Error) {
	if recipientID == "" || ngoID == "" {
		return "", "", &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "recipientId and ngoId are required"}
	}
	if _, err := uuid.Parse(recipientID); err != nil {
		return "", "", &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid recipientId", Details: map[string]any{"recipientId": "must be a valid id"}}
	}
	if _, err := uuid.Parse(ngoID); err != nil {
		return "", "", &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid ngoId", Details: map[string]any{"ngoId": "must be a valid id"}}
	}
	return domain.RecipientID(recipientID), domain.NGOID(ngoID), nil
}
