package ledger

import (
	"context"
	"sort"
	"sync"

	memngorepo "github.com/plateshare/foodbank-api/internal/adapters/memory/ngorepo"
	"github.com/plateshare/foodbank-api/internal/domain"
	"github.com/plateshare/foodbank-api/internal/ports/out/ledger"
)

// Store is an in-memory implementation of ledger.Store over the memory NGO
// repository's plates counters.
//
// A single mutex serializes every operation, so each check-then-act
// sequence (availability check before a booking, balance recomputation
// before a take) observes and mutates a consistent snapshot. All counter
// writes go through this store; the NGO repo only reads plates.
type Store struct {
	mu   sync.Mutex
	ngos *memngorepo.Repo

	donations []domain.DonationTransaction
	claims    []domain.RecipientTransaction
}

func NewStore(ngos *memngorepo.Repo) *Store {
	return &Store{ngos: ngos}
}

func (s *Store) AppendDonation(ctx context.Context, tx domain.DonationTransaction) (domain.DonationTransaction, int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	plates, ok := s.ngos.PlatesAvailable(tx.NGOID)
	if !ok {
		return domain.DonationTransaction{}, 0, ledger.ErrNGONotFound
	}
	updated := plates + tx.Quantity
	s.ngos.SetPlatesAvailable(tx.NGOID, updated)
	s.donations = append(s.donations, tx)
	return tx, updated, nil
}

func (s *Store) AppendBooking(ctx context.Context, tx domain.RecipientTransaction) (domain.RecipientTransaction, int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	plates, ok := s.ngos.PlatesAvailable(tx.NGOID)
	if !ok {
		return domain.RecipientTransaction{}, 0, ledger.ErrNGONotFound
	}
	if plates < tx.Quantity {
		return domain.RecipientTransaction{}, 0, &ledger.InsufficientPlatesError{Available: plates}
	}
	updated := plates - tx.Quantity
	s.ngos.SetPlatesAvailable(tx.NGOID, updated)
	s.claims = append(s.claims, tx)
	return tx, updated, nil
}

func (s *Store) AppendTake(ctx context.Context, tx domain.RecipientTransaction) (domain.RecipientTransaction, int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ngos.PlatesAvailable(tx.NGOID); !ok {
		return domain.RecipientTransaction{}, 0, ledger.ErrNGONotFound
	}

	booked, taken := s.sumsLocked(tx.RecipientID, tx.NGOID)
	remaining := booked - taken
	if remaining <= 0 {
		return domain.RecipientTransaction{}, 0, ledger.ErrNothingOutstanding
	}
	if tx.Quantity > remaining {
		return domain.RecipientTransaction{}, 0, &ledger.OverClaimError{Remaining: remaining}
	}
	s.claims = append(s.claims, tx)
	return tx, remaining - tx.Quantity, nil
}

func (s *Store) SumBookedByNGO(ctx context.Context, ngoID domain.NGOID) ([]ledger.BookingTotal, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ngos.PlatesAvailable(ngoID); !ok {
		return nil, ledger.ErrNGONotFound
	}

	byRecipient := make(map[domain.RecipientID]int)
	for _, c := range s.claims {
		if c.NGOID == ngoID && c.Kind == domain.KindBook {
			byRecipient[c.RecipientID] += c.Quantity
		}
	}
	out := make([]ledger.BookingTotal, 0, len(byRecipient))
	for id, total := range byRecipient {
		out = append(out, ledger.BookingTotal{RecipientID: id, TotalBooked: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecipientID < out[j].RecipientID })
	return out, nil
}

func (s *Store) OutstandingBalance(ctx context.Context, recipientID domain.RecipientID, ngoID domain.NGOID) (int, int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	booked, taken := s.sumsLocked(recipientID, ngoID)
	return booked, taken, nil
}

func (s *Store) ListByRecipient(ctx context.Context, recipientID domain.RecipientID) ([]domain.RecipientTransaction, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.RecipientTransaction, 0)
	for _, c := range s.claims {
		if c.RecipientID == recipientID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// DonationsByNGO is a test helper exposing the donation log for invariant
// checks.
func (s *Store) DonationsByNGO(ngoID domain.NGOID) []domain.DonationTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DonationTransaction, 0)
	for _, d := range s.donations {
		if d.NGOID == ngoID {
			out = append(out, d)
		}
	}
	return out
}

func (s *Store) sumsLocked(recipientID domain.RecipientID, ngoID domain.NGOID) (booked, taken int) {
	for _, c := range s.claims {
		if c.RecipientID != recipientID || c.NGOID != ngoID {
			continue
		}
		switch c.Kind {
		case domain.KindBook:
			booked += c.Quantity
		case domain.KindTake:
			taken += c.Quantity
		}
	}
	return booked, taken
}
