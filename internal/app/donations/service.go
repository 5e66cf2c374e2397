package donations

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/plateshare/foodbank-api/internal/domain"
	clockport "github.com/plateshare/foodbank-api/internal/ports/out/clock"
	"github.com/plateshare/foodbank-api/internal/ports/out/donorrepo"
	ledgerport "github.com/plateshare/foodbank-api/internal/ports/out/ledger"
	"github.com/plateshare/foodbank-api/internal/ports/out/ngorepo"
)

// Service records donations: it validates the parties and delegates the
// atomic append-plus-increment to the ledger store.
type Service struct {
	donors donorrepo.Repository
	ngos   ngorepo.Repository
	ledger ledgerport.Store
	clk    clockport.Clock

	newTxID func() domain.TransactionID
}

func NewService(donors donorrepo.Repository, ngos ngorepo.Repository, l ledgerport.Store, clk clockport.Clock) *Service {
	return &Service{
		donors: donors,
		ngos:   ngos,
		ledger: l,
		clk:    clk,
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

type RecordDonationInput struct {
	DonorID  string
	NGOID    string
	Quantity int
}

type RecordDonationResult struct {
	Transaction     domain.DonationTransaction
	PlatesAvailable int
}

// RecordDonation appends one donation record and increments the NGO's
// plates. Every call appends a new record; there is no deduplication.
func (s *Service) RecordDonation(ctx context.Context, in RecordDonationInput) (RecordDonationResult, error) {
	donorID, ngoID, verr := parseParties(in.DonorID, in.NGOID)
	if verr != nil {
		return RecordDonationResult{}, verr
	}
	if in.Quantity <= 0 {
		return RecordDonationResult{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid quantity", Details: map[string]any{"quantity": "must be greater than 0"}}
	}

	if _, err := s.donors.GetByID(ctx, domain.DonorID(donorID)); err != nil {
		if errors.Is(err, donorrepo.ErrNotFound) {
			return RecordDonationResult{}, &Error{Status: 404, Code: "DONOR_NOT_FOUND", Message: "donor not found"}
		}
		return RecordDonationResult{}, err
	}
	if _, err := s.ngos.GetByID(ctx, domain.NGOID(ngoID)); err != nil {
		if errors.Is(err, ngorepo.ErrNotFound) {
			return RecordDonationResult{}, &Error{Status: 404, Code: "NGO_NOT_FOUND", Message: "ngo not found"}
		}
		return RecordDonationResult{}, err
	}

	rec, plates, err := s.ledger.AppendDonation(ctx, domain.DonationTransaction{
		ID:        s.newTxID(),
		DonorID:   domain.DonorID(donorID),
		NGOID:     domain.NGOID(ngoID),
		Quantity:  in.Quantity,
		CreatedAt: s.clk.Now(),
	})
	if err != nil {
		// The NGO was just looked up; a not-found here means it vanished
		// between the check and the append.
		if errors.Is(err, ledgerport.ErrNGONotFound) {
			return RecordDonationResult{}, &Error{Status: 404, Code: "NGO_NOT_FOUND", Message: "ngo not found"}
		}
		return RecordDonationResult{}, err
	}

	return RecordDonationResult{Transaction: rec, PlatesAvailable: plates}, nil
}

func parseParties(donorID, ngoID string) (string, string, *Error) {
	if donorID == "" || ngoID == "" {
		return "", "", &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "donorId and ngoId are required"}
	}
	if _, err := uuid.Parse(donorID); err != nil {
		return "", "", &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid donorId", Details: map[string]any{"donorId": "must be a valid id"}}
	}
	if _, err := uuid.Parse(ngoID); err != nil {
		return "", "", &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid ngoId", Details: map[string]any{"ngoId": "must be a valid id"}}
	}
	return donorID, ngoID, nil
}
