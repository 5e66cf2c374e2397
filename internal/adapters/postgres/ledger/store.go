package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plateshare/foodbank-api/internal/domain"
	"github.com/plateshare/foodbank-api/internal/ports/out/ledger"
)

// Store is a Postgres implementation of ledger.Store.
//
// Serialization strategy:
//   - AppendDonation and AppendBooking ride on a conditional UPDATE of the
//     NGO's plates_available row. Row-level locking makes concurrent
//     bookings queue on the counter, and the WHERE clause rejects any
//     booking the remaining inventory no longer fits.
//   - AppendTake locks the NGO row FOR UPDATE, then recomputes the pair's
//     booked and taken sums inside the same transaction, so two concurrent
//     takes against the same balance cannot both pass the check.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) AppendDonation(ctx context.Context, record domain.DonationTransaction) (domain.DonationTransaction, int, error) {
	if s.pool == nil {
		return domain.DonationTransaction{}, 0, errors.New("nil postgres pool")
	}
	txUUID, err := uuid.Parse(string(record.ID))
	if err != nil {
		return domain.DonationTransaction{}, 0, fmt.Errorf("invalid transaction id: %w", err)
	}
	donorUUID, err := uuid.Parse(string(record.DonorID))
	if err != nil {
		return domain.DonationTransaction{}, 0, fmt.Errorf("invalid donor id: %w", err)
	}
	ngoUUID, err := uuid.Parse(string(record.NGOID))
	if err != nil {
		return domain.DonationTransaction{}, 0, ledger.ErrNGONotFound
	}

	var plates int
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE ngos
			SET plates_available = plates_available + $2,
			    updated_at = $3
			WHERE external_id = $1
			RETURNING plates_available
		`, ngoUUID, record.Quantity, record.CreatedAt.UTC()).Scan(&plates)
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.ErrNGONotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO donation_transactions (external_id, donor_id, ngo_id, quantity, created_at)
			VALUES (
				$1,
				(SELECT id FROM donors WHERE external_id = $2),
				(SELECT id FROM ngos WHERE external_id = $3),
				$4,
				$5
			)
		`, txUUID, donorUUID, ngoUUID, record.Quantity, record.CreatedAt.UTC())
		return err
	})
	if err != nil {
		return domain.DonationTransaction{}, 0, err
	}
	return record, plates, nil
}

func (s *Store) AppendBooking(ctx context.Context, record domain.RecipientTransaction) (domain.RecipientTransaction, int, error) {
	if s.pool == nil {
		return domain.RecipientTransaction{}, 0, errors.New("nil postgres pool")
	}
	txUUID, recipientUUID, ngoUUID, err := parseRecipientRecord(record)
	if err != nil {
		return domain.RecipientTransaction{}, 0, err
	}

	var plates int
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// Conditional decrement: only succeeds while the inventory still
		// covers the booking. The row lock taken by UPDATE serializes
		// concurrent bookings against the same NGO.
		err := tx.QueryRow(ctx, `
			UPDATE ngos
			SET plates_available = plates_available - $2,
			    updated_at = $3
			WHERE external_id = $1 AND plates_available >= $2
			RETURNING plates_available
		`, ngoUUID, record.Quantity, record.CreatedAt.UTC()).Scan(&plates)
		if errors.Is(err, pgx.ErrNoRows) {
			var available int
			selErr := tx.QueryRow(ctx, `
				SELECT plates_available FROM ngos WHERE external_id = $1
			`, ngoUUID).Scan(&available)
			if errors.Is(selErr, pgx.ErrNoRows) {
				return ledger.ErrNGONotFound
			}
			if selErr != nil {
				return selErr
			}
			return &ledger.InsufficientPlatesError{Available: available}
		}
		if err != nil {
			return err
		}

		return insertRecipientTransaction(ctx, tx, txUUID, recipientUUID, ngoUUID, record)
	})
	if err != nil {
		return domain.RecipientTransaction{}, 0, err
	}
	return record, plates, nil
}

func (s *Store) AppendTake(ctx context.Context, record domain.RecipientTransaction) (domain.RecipientTransaction, int, error) {
	if s.pool == nil {
		return domain.RecipientTransaction{}, 0, errors.New("nil postgres pool")
	}
	txUUID, recipientUUID, ngoUUID, err := parseRecipientRecord(record)
	if err != nil {
		return domain.RecipientTransaction{}, 0, err
	}

	var remaining int
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// Lock the NGO row so a concurrent take for the same pair waits
		// until this one has appended its record, then sees it in the sums.
		var ngoInternalID int64
		err := tx.QueryRow(ctx, `
			SELECT id FROM ngos WHERE external_id = $1 FOR UPDATE
		`, ngoUUID).Scan(&ngoInternalID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.ErrNGONotFound
		}
		if err != nil {
			return err
		}

		var booked, taken int
		err = tx.QueryRow(ctx, `
			SELECT
				COALESCE(SUM(quantity) FILTER (WHERE kind = 'book'), 0),
				COALESCE(SUM(quantity) FILTER (WHERE kind = 'take'), 0)
			FROM recipient_transactions
			WHERE recipient_id = (SELECT id FROM recipients WHERE external_id = $1)
			  AND ngo_id = $2
		`, recipientUUID, ngoInternalID).Scan(&booked, &taken)
		if err != nil {
			return err
		}

		outstanding := booked - taken
		if outstanding <= 0 {
			return ledger.ErrNothingOutstanding
		}
		if record.Quantity > outstanding {
			return &ledger.OverClaimError{Remaining: outstanding}
		}

		if err := insertRecipientTransaction(ctx, tx, txUUID, recipientUUID, ngoUUID, record); err != nil {
			return err
		}
		remaining = outstanding - record.Quantity
		return nil
	})
	if err != nil {
		return domain.RecipientTransaction{}, 0, err
	}
	return record, remaining, nil
}

func (s *Store) SumBookedByNGO(ctx context.Context, ngoID domain.NGOID) ([]ledger.BookingTotal, error) {
	if s.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	ngoUUID, err := uuid.Parse(string(ngoID))
	if err != nil {
		return nil, ledger.ErrNGONotFound
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM ngos WHERE external_id = $1)
	`, ngoUUID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ledger.ErrNGONotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT r.external_id, SUM(t.quantity)
		FROM recipient_transactions t
		JOIN recipients r ON r.id = t.recipient_id
		WHERE t.ngo_id = (SELECT id FROM ngos WHERE external_id = $1)
		  AND t.kind = 'book'
		GROUP BY r.external_id
		ORDER BY r.external_id ASC
	`, ngoUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ledger.BookingTotal, 0)
	for rows.Next() {
		var (
			recipientUUID uuid.UUID
			total         int
		)
		if err := rows.Scan(&recipientUUID, &total); err != nil {
			return nil, err
		}
		out = append(out, ledger.BookingTotal{
			RecipientID: domain.RecipientID(recipientUUID.String()),
			TotalBooked: total,
		})
	}
	return out, rows.Err()
}

func (s *Store) OutstandingBalance(ctx context.Context, recipientID domain.RecipientID, ngoID domain.NGOID) (int, int, error) {
	if s.pool == nil {
		return 0, 0, errors.New("nil postgres pool")
	}
	recipientUUID, err := uuid.Parse(string(recipientID))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid recipient id: %w", err)
	}
	ngoUUID, err := uuid.Parse(string(ngoID))
	if err != nil {
		return 0, 0, ledger.ErrNGONotFound
	}

	var booked, taken int
	err = s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(quantity) FILTER (WHERE kind = 'book'), 0),
			COALESCE(SUM(quantity) FILTER (WHERE kind = 'take'), 0)
		FROM recipient_transactions
		WHERE recipient_id = (SELECT id FROM recipients WHERE external_id = $1)
		  AND ngo_id = (SELECT id FROM ngos WHERE external_id = $2)
	`, recipientUUID, ngoUUID).Scan(&booked, &taken)
	if err != nil {
		return 0, 0, err
	}
	return booked, taken, nil
}

func (s *Store) ListByRecipient(ctx context.Context, recipientID domain.RecipientID) ([]domain.RecipientTransaction, error) {
	if s.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	recipientUUID, err := uuid.Parse(string(recipientID))
	if err != nil {
		return nil, fmt.Errorf("invalid recipient id: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT t.external_id, n.external_id, t.quantity, t.kind, t.created_at
		FROM recipient_transactions t
		JOIN ngos n ON n.id = t.ngo_id
		WHERE t.recipient_id = (SELECT id FROM recipients WHERE external_id = $1)
		ORDER BY t.created_at DESC, t.id DESC
	`, recipientUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.RecipientTransaction, 0)
	for rows.Next() {
		var (
			txUUID    uuid.UUID
			ngoUUID   uuid.UUID
			quantity  int
			kind      string
			createdAt time.Time
		)
		if err := rows.Scan(&txUUID, &ngoUUID, &quantity, &kind, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, domain.RecipientTransaction{
			ID:          domain.TransactionID(txUUID.String()),
			RecipientID: recipientID,
			NGOID:       domain.NGOID(ngoUUID.String()),
			Quantity:    quantity,
			Kind:        domain.TransactionKind(kind),
			CreatedAt:   createdAt.UTC(),
		})
	}
	return out, rows.Err()
}

func parseRecipientRecord(record domain.RecipientTransaction) (txUUID, recipientUUID, ngoUUID uuid.UUID, err error) {
	txUUID, err = uuid.Parse(string(record.ID))
	if err != nil {
		return uuid.UUID{}, uuid.UUID{}, uuid.UUID{}, fmt.Errorf("invalid transaction id: %w", err)
	}
	recipientUUID, err = uuid.Parse(string(record.RecipientID))
	if err != nil {
		return uuid.UUID{}, uuid.UUID{}, uuid.UUID{}, fmt.Errorf("invalid recipient id: %w", err)
	}
	ngoUUID, err = uuid.Parse(string(record.NGOID))
	if err != nil {
		return uuid.UUID{}, uuid.UUID{}, uuid.UUID{}, ledger.ErrNGONotFound
	}
	return txUUID, recipientUUID, ngoUUID, nil
}

func insertRecipientTransaction(ctx context.Context, tx pgx.Tx, txUUID, recipientUUID, ngoUUID uuid.UUID, record domain.RecipientTransaction) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO recipient_transactions (external_id, recipient_id, ngo_id, quantity, kind, created_at)
		VALUES (
			$1,
			(SELECT id FROM recipients WHERE external_id = $2),
			(SELECT id FROM ngos WHERE external_id = $3),
			$4,
			$5,
			$6
		)
	`, txUUID, recipientUUID, ngoUUID, record.Quantity, string(record.Kind), record.CreatedAt.UTC())
	return err
}
