// Package contracttest holds behavioral suites run against every adapter
// implementation of the outbound ports, so the in-memory and Postgres
// adapters cannot drift apart.
package contracttest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/plateshare/foodbank-api/internal/domain"
	donorrepoport "github.com/plateshare/foodbank-api/internal/ports/out/donorrepo"
	ledgerport "github.com/plateshare/foodbank-api/internal/ports/out/ledger"
	ngorepoport "github.com/plateshare/foodbank-api/internal/ports/out/ngorepo"
	recipientrepoport "github.com/plateshare/foodbank-api/internal/ports/out/recipientrepo"
)

type CleanupFunc = func()

type DonorRepoFactory func(t *testing.T) (donorrepoport.Repository, CleanupFunc)
type NGORepoFactory func(t *testing.T) (ngorepoport.Repository, CleanupFunc)
type RecipientRepoFactory func(t *testing.T) (recipientrepoport.Repository, CleanupFunc)

// LedgerEnv bundles a ledger store with the repositories it references, all
// backed by the same storage, so suites can seed the parties a transaction
// needs.
type LedgerEnv struct {
	Donors     donorrepoport.Repository
	NGOs       ngorepoport.Repository
	Recipients recipientrepoport.Repository
	Ledger     ledgerport.Store
}

type LedgerEnvFactory func(t *testing.T) (LedgerEnv, CleanupFunc)

func RunDonorRepo(t *testing.T, newRepo DonorRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	nationalID := "123456789012"
	d := donorrepoport.Donor{
		ID:           domain.DonorID(uuid.NewString()),
		Username:     "Asha Rao",
		Email:        "asha@example.com",
		PasswordHash: "hash-1",
		NationalID:   &nationalID,
		CreatedAt:    time.Unix(1000, 0).UTC(),
		UpdatedAt:    time.Unix(1000, 0).UTC(),
	}
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != d.Email || got.PasswordHash != d.PasswordHash {
		t.Fatalf("unexpected donor: %+v", got)
	}
	if got.NationalID == nil || *got.NationalID != nationalID {
		t.Fatalf("expected national id %q, got %v", nationalID, got.NationalID)
	}

	got, err = repo.GetByEmail(ctx, d.Email)
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != d.ID {
		t.Fatalf("GetByEmail returned id %s, want %s", got.ID, d.ID)
	}

	if _, err := repo.GetByID(ctx, domain.DonorID(uuid.NewString())); !errors.Is(err, donorrepoport.ErrNotFound) {
		t.Fatalf("unknown id: got %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, donorrepoport.ErrNotFound) {
		t.Fatalf("unknown email: got %v, want ErrNotFound", err)
	}

	dup := d
	dup.ID = domain.DonorID(uuid.NewString())
	dup.NationalID = nil
	if err := repo.Create(ctx, dup); !errors.Is(err, donorrepoport.ErrEmailTaken) {
		t.Fatalf("duplicate email: got %v, want ErrEmailTaken", err)
	}

	dup = d
	dup.ID = domain.DonorID(uuid.NewString())
	dup.Email = "asha2@example.com"
	if err := repo.Create(ctx, dup); !errors.Is(err, donorrepoport.ErrNationalIDTaken) {
		t.Fatalf("duplicate national id: got %v, want ErrNationalIDTaken", err)
	}

	// Two donors without a national id must not collide.
	noID := donorrepoport.Donor{
		ID:           domain.DonorID(uuid.NewString()),
		Username:     "Second Donor",
		Email:        "second@example.com",
		PasswordHash: "hash-2",
		CreatedAt:    time.Unix(1001, 0).UTC(),
		UpdatedAt:    time.Unix(1001, 0).UTC(),
	}
	if err := repo.Create(ctx, noID); err != nil {
		t.Fatalf("Create without national id: %v", err)
	}
	noID.ID = domain.DonorID(uuid.NewString())
	noID.Email = "third@example.com"
	if err := repo.Create(ctx, noID); err != nil {
		t.Fatalf("Create second donor without national id: %v", err)
	}
}

func RunNGORepo(t *testing.T, newRepo NGORepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	origin := domain.Coordinate{Longitude: 77.5946, Latitude: 12.9716}

	atOrigin := ngorepoport.NGO{
		ID:           domain.NGOID(uuid.NewString()),
		Username:     "Central Kitchen",
		Email:        "central@example.org",
		PasswordHash: "hash-a",
		Location:     origin,
		CreatedAt:    time.Unix(2000, 0).UTC(),
		UpdatedAt:    time.Unix(2000, 0).UTC(),
	}
	// Roughly one kilometer north of the origin.
	nearby := ngorepoport.NGO{
		ID:           domain.NGOID(uuid.NewString()),
		Username:     "North Shelter",
		Email:        "north@example.org",
		PasswordHash: "hash-b",
		Location:     domain.Coordinate{Longitude: 77.5946, Latitude: 12.9806},
		CreatedAt:    time.Unix(2001, 0).UTC(),
		UpdatedAt:    time.Unix(2001, 0).UTC(),
	}
	// Roughly one hundred kilometers away.
	far := ngorepoport.NGO{
		ID:           domain.NGOID(uuid.NewString()),
		Username:     "Distant Depot",
		Email:        "distant@example.org",
		PasswordHash: "hash-c",
		Location:     domain.Coordinate{Longitude: 77.5946, Latitude: 13.8716},
		CreatedAt:    time.Unix(2002, 0).UTC(),
		UpdatedAt:    time.Unix(2002, 0).UTC(),
	}
	for _, n := range []ngorepoport.NGO{atOrigin, nearby, far} {
		if err := repo.Create(ctx, n); err != nil {
			t.Fatalf("Create %s: %v", n.Username, err)
		}
	}

	got, err := repo.GetByID(ctx, atOrigin.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != atOrigin.Email || got.PlatesAvailable != 0 {
		t.Fatalf("unexpected ngo: %+v", got)
	}

	got, err = repo.GetByEmail(ctx, nearby.Email)
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != nearby.ID {
		t.Fatalf("GetByEmail returned id %s, want %s", got.ID, nearby.ID)
	}

	if _, err := repo.GetByID(ctx, domain.NGOID(uuid.NewString())); !errors.Is(err, ngorepoport.ErrNotFound) {
		t.Fatalf("unknown id: got %v, want ErrNotFound", err)
	}

	dup := atOrigin
	dup.ID = domain.NGOID(uuid.NewString())
	if err := repo.Create(ctx, dup); !errors.Is(err, ngorepoport.ErrEmailTaken) {
		t.Fatalf("duplicate email: got %v, want ErrEmailTaken", err)
	}

	within, err := repo.ListNearby(ctx, origin, 5000)
	if err != nil {
		t.Fatalf("ListNearby: %v", err)
	}
	if len(within) != 2 {
		t.Fatalf("expected 2 NGOs within 5km, got %d", len(within))
	}
	if within[0].ID != atOrigin.ID || within[1].ID != nearby.ID {
		t.Fatalf("expected distance ordering [%s %s], got [%s %s]",
			atOrigin.ID, nearby.ID, within[0].ID, within[1].ID)
	}
	if within[0].DistanceMeters > 1 {
		t.Fatalf("origin NGO should be at distance ~0, got %f", within[0].DistanceMeters)
	}
	if within[1].DistanceMeters < 500 || within[1].DistanceMeters > 1500 {
		t.Fatalf("nearby NGO distance out of expected band: %f", within[1].DistanceMeters)
	}

	none, err := repo.ListNearby(ctx, domain.Coordinate{Longitude: -122.4194, Latitude: 37.7749}, 5000)
	if err != nil {
		t.Fatalf("ListNearby remote origin: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no NGOs near remote origin, got %d", len(none))
	}
}

func RunRecipientRepo(t *testing.T, newRepo RecipientRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	r := recipientrepoport.Recipient{
		ID:           domain.RecipientID(uuid.NewString()),
		Username:     "Ravi Kumar",
		Email:        "ravi@example.com",
		PasswordHash: "hash-1",
		CreatedAt:    time.Unix(3000, 0).UTC(),
		UpdatedAt:    time.Unix(3000, 0).UTC(),
	}
	if err := repo.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != r.Email || got.Username != r.Username {
		t.Fatalf("unexpected recipient: %+v", got)
	}

	got, err = repo.GetByEmail(ctx, r.Email)
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != r.ID {
		t.Fatalf("GetByEmail returned id %s, want %s", got.ID, r.ID)
	}

	if _, err := repo.GetByID(ctx, domain.RecipientID(uuid.NewString())); !errors.Is(err, recipientrepoport.ErrNotFound) {
		t.Fatalf("unknown id: got %v, want ErrNotFound", err)
	}

	dup := r
	dup.ID = domain.RecipientID(uuid.NewString())
	if err := repo.Create(ctx, dup); !errors.Is(err, recipientrepoport.ErrEmailTaken) {
		t.Fatalf("duplicate email: got %v, want ErrEmailTaken", err)
	}
}

// RunLedger exercises the donate/book/take lifecycle, including the failure
// paths that must leave state untouched, and a concurrent overdraw attempt.
func RunLedger(t *testing.T, newEnv LedgerEnvFactory) {
	t.Helper()

	t.Run("lifecycle", func(t *testing.T) {
		ctx := context.Background()
		env, cleanup := newEnv(t)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}

		donorID := seedDonor(t, env, "donor@example.com")
		ngoID := seedNGO(t, env, "kitchen@example.org")
		recipientID := seedRecipient(t, env, "ravi@example.com")
		otherRecipientID := seedRecipient(t, env, "meena@example.com")

		// Donate 10: inventory 0 -> 10.
		_, plates, err := env.Ledger.AppendDonation(ctx, donation(donorID, ngoID, 10, 100))
		if err != nil {
			t.Fatalf("AppendDonation: %v", err)
		}
		if plates != 10 {
			t.Fatalf("plates after donation = %d, want 10", plates)
		}
		assertPlates(t, env, ngoID, 10)

		if _, _, err := env.Ledger.AppendDonation(ctx, donation(donorID, domain.NGOID(uuid.NewString()), 5, 101)); !errors.Is(err, ledgerport.ErrNGONotFound) {
			t.Fatalf("donation to unknown NGO: got %v, want ErrNGONotFound", err)
		}

		// Book 6: inventory 10 -> 4.
		_, plates, err = env.Ledger.AppendBooking(ctx, claim(recipientID, ngoID, 6, domain.KindBook, 102))
		if err != nil {
			t.Fatalf("AppendBooking: %v", err)
		}
		if plates != 4 {
			t.Fatalf("plates after booking = %d, want 4", plates)
		}

		// Take 4 of the 6 booked. Inventory stays at 4.
		_, remaining, err := env.Ledger.AppendTake(ctx, claim(recipientID, ngoID, 4, domain.KindTake, 103))
		if err != nil {
			t.Fatalf("AppendTake: %v", err)
		}
		if remaining != 2 {
			t.Fatalf("remaining after take = %d, want 2", remaining)
		}
		assertPlates(t, env, ngoID, 4)

		// Taking 3 with only 2 outstanding must fail and change nothing.
		_, _, err = env.Ledger.AppendTake(ctx, claim(recipientID, ngoID, 3, domain.KindTake, 104))
		var overClaim *ledgerport.OverClaimError
		if !errors.As(err, &overClaim) {
			t.Fatalf("over-claim: got %v, want OverClaimError", err)
		}
		if overClaim.Remaining != 2 {
			t.Fatalf("OverClaimError.Remaining = %d, want 2", overClaim.Remaining)
		}
		booked, taken, err := env.Ledger.OutstandingBalance(ctx, recipientID, ngoID)
		if err != nil {
			t.Fatalf("OutstandingBalance: %v", err)
		}
		if booked != 6 || taken != 4 {
			t.Fatalf("balance after rejected take = (%d, %d), want (6, 4)", booked, taken)
		}

		// Take the remaining 2.
		_, remaining, err = env.Ledger.AppendTake(ctx, claim(recipientID, ngoID, 2, domain.KindTake, 105))
		if err != nil {
			t.Fatalf("AppendTake remaining: %v", err)
		}
		if remaining != 0 {
			t.Fatalf("remaining after final take = %d, want 0", remaining)
		}

		// Nothing left to collect.
		if _, _, err := env.Ledger.AppendTake(ctx, claim(recipientID, ngoID, 1, domain.KindTake, 106)); !errors.Is(err, ledgerport.ErrNothingOutstanding) {
			t.Fatalf("take with zero balance: got %v, want ErrNothingOutstanding", err)
		}

		// A second recipient cannot book more than the 4 plates left.
		_, _, err = env.Ledger.AppendBooking(ctx, claim(otherRecipientID, ngoID, 5, domain.KindBook, 107))
		var insufficient *ledgerport.InsufficientPlatesError
		if !errors.As(err, &insufficient) {
			t.Fatalf("overbooking: got %v, want InsufficientPlatesError", err)
		}
		if insufficient.Available != 4 {
			t.Fatalf("InsufficientPlatesError.Available = %d, want 4", insufficient.Available)
		}
		assertPlates(t, env, ngoID, 4)

		if _, _, err := env.Ledger.AppendBooking(ctx, claim(recipientID, domain.NGOID(uuid.NewString()), 1, domain.KindBook, 108)); !errors.Is(err, ledgerport.ErrNGONotFound) {
			t.Fatalf("booking unknown NGO: got %v, want ErrNGONotFound", err)
		}

		totals, err := env.Ledger.SumBookedByNGO(ctx, ngoID)
		if err != nil {
			t.Fatalf("SumBookedByNGO: %v", err)
		}
		if len(totals) != 1 || totals[0].RecipientID != recipientID || totals[0].TotalBooked != 6 {
			t.Fatalf("unexpected booking totals: %+v", totals)
		}
		if _, err := env.Ledger.SumBookedByNGO(ctx, domain.NGOID(uuid.NewString())); !errors.Is(err, ledgerport.ErrNGONotFound) {
			t.Fatalf("SumBookedByNGO unknown NGO: got %v, want ErrNGONotFound", err)
		}

		history, err := env.Ledger.ListByRecipient(ctx, recipientID)
		if err != nil {
			t.Fatalf("ListByRecipient: %v", err)
		}
		if len(history) != 3 {
			t.Fatalf("expected 3 records, got %d", len(history))
		}
		// Newest first: take 2, take 4, book 6.
		wantQty := []int{2, 4, 6}
		wantKind := []domain.TransactionKind{domain.KindTake, domain.KindTake, domain.KindBook}
		for i := range history {
			if history[i].Quantity != wantQty[i] || history[i].Kind != wantKind[i] {
				t.Fatalf("record %d = (%d, %s), want (%d, %s)",
					i, history[i].Quantity, history[i].Kind, wantQty[i], wantKind[i])
			}
		}
	})

	t.Run("concurrent bookings never overdraw", func(t *testing.T) {
		ctx := context.Background()
		env, cleanup := newEnv(t)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}

		donorID := seedDonor(t, env, "bulk-donor@example.com")
		ngoID := seedNGO(t, env, "busy-kitchen@example.org")
		recipientID := seedRecipient(t, env, "hungry@example.com")

		if _, _, err := env.Ledger.AppendDonation(ctx, donation(donorID, ngoID, 50, 200)); err != nil {
			t.Fatalf("seed donation: %v", err)
		}

		const (
			attempts = 10
			each     = 10
		)
		var (
			mu        sync.Mutex
			succeeded int
		)
		var g errgroup.Group
		for i := 0; i < attempts; i++ {
			g.Go(func() error {
				_, _, err := env.Ledger.AppendBooking(ctx, claim(recipientID, ngoID, each, domain.KindBook, 201))
				var insufficient *ledgerport.InsufficientPlatesError
				if errors.As(err, &insufficient) {
					return nil
				}
				if err != nil {
					return err
				}
				mu.Lock()
				succeeded++
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("concurrent bookings: %v", err)
		}

		if succeeded != 5 {
			t.Fatalf("expected exactly 5 bookings of %d to fit 50 plates, got %d", each, succeeded)
		}
		assertPlates(t, env, ngoID, 0)

		booked, _, err := env.Ledger.OutstandingBalance(ctx, recipientID, ngoID)
		if err != nil {
			t.Fatalf("OutstandingBalance: %v", err)
		}
		if booked != 50 {
			t.Fatalf("booked total = %d, want 50", booked)
		}
	})
}

func seedDonor(t *testing.T, env LedgerEnv, email string) domain.DonorID {
	t.Helper()
	id := domain.DonorID(uuid.NewString())
	err := env.Donors.Create(context.Background(), donorrepoport.Donor{
		ID:           id,
		Username:     "Seed Donor",
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    time.Unix(1, 0).UTC(),
		UpdatedAt:    time.Unix(1, 0).UTC(),
	})
	if err != nil {
		t.Fatalf("seed donor: %v", err)
	}
	return id
}

func seedNGO(t *testing.T, env LedgerEnv, email string) domain.NGOID {
	t.Helper()
	id := domain.NGOID(uuid.NewString())
	err := env.NGOs.Create(context.Background(), ngorepoport.NGO{
		ID:           id,
		Username:     "Seed Kitchen",
		Email:        email,
		PasswordHash: "hash",
		Location:     domain.Coordinate{Longitude: 77.5946, Latitude: 12.9716},
		CreatedAt:    time.Unix(1, 0).UTC(),
		UpdatedAt:    time.Unix(1, 0).UTC(),
	})
	if err != nil {
		t.Fatalf("seed ngo: %v", err)
	}
	return id
}

func seedRecipient(t *testing.T, env LedgerEnv, email string) domain.RecipientID {
	t.Helper()
	id := domain.RecipientID(uuid.NewString())
	err := env.Recipients.Create(context.Background(), recipientrepoport.Recipient{
		ID:           id,
		Username:     "Seed Recipient",
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    time.Unix(1, 0).UTC(),
		UpdatedAt:    time.Unix(1, 0).UTC(),
	})
	if err != nil {
		t.Fatalf("seed recipient: %v", err)
	}
	return id
}

func donation(donorID domain.DonorID, ngoID domain.NGOID, qty int, at int64) domain.DonationTransaction {
	return domain.DonationTransaction{
		ID:        domain.TransactionID(uuid.NewString()),
		DonorID:   donorID,
		NGOID:     ngoID,
		Quantity:  qty,
		CreatedAt: time.Unix(at, 0).UTC(),
	}
}

func claim(recipientID domain.RecipientID, ngoID domain.NGOID, qty int, kind domain.TransactionKind, at int64) domain.RecipientTransaction {
	return domain.RecipientTransaction{
		ID:          domain.TransactionID(uuid.NewString()),
		RecipientID: recipientID,
		NGOID:       ngoID,
		Quantity:    qty,
		Kind:        kind,
		CreatedAt:   time.Unix(at, 0).UTC(),
	}
}

func assertPlates(t *testing.T, env LedgerEnv, ngoID domain.NGOID, want int) {
	t.Helper()
	n, err := env.NGOs.GetByID(context.Background(), ngoID)
	if err != nil {
		t.Fatalf("GetByID for plates check: %v", err)
	}
	if n.PlatesAvailable != want {
		t.Fatalf("plates_available = %d, want %d", n.PlatesAvailable, want)
	}
}
