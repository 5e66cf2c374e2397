package donorrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/plateshare/foodbank-api/internal/adapters/postgres"
	"github.com/plateshare/foodbank-api/internal/domain"
	"github.com/plateshare/foodbank-api/internal/ports/out/donorrepo"
)

// Repo is a Postgres implementation of donorrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, d donorrepo.Donor) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	donorUUID, err := uuid.Parse(string(d.ID))
	if err != nil {
		return fmt.Errorf("invalid donor id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO donors (
			external_id,
			username,
			email,
			password_hash,
			phone,
			national_id,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		donorUUID,
		d.Username,
		d.Email,
		d.PasswordHash,
		d.Phone,
		d.NationalID,
		d.CreatedAt.UTC(),
		d.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			switch pe.ConstraintName {
			case "donors_email_unique":
				return donorrepo.ErrEmailTaken
			case "donors_national_id_unique":
				return donorrepo.ErrNationalIDTaken
			}
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.DonorID) (donorrepo.Donor, error) {
	if r.pool == nil {
		return donorrepo.Donor{}, errors.New("nil postgres pool")
	}
	donorUUID, err := uuid.Parse(string(id))
	if err != nil {
		return donorrepo.Donor{}, donorrepo.ErrNotFound
	}
	return r.get(ctx, `WHERE external_id = $1`, donorUUID)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (donorrepo.Donor, error) {
	if r.pool == nil {
		return donorrepo.Donor{}, errors.New("nil postgres pool")
	}
	return r.get(ctx, `WHERE email = $1`, email)
}

func (r *Repo) get(ctx context.Context, where string, arg any) (donorrepo.Donor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT external_id, username, email, password_hash, phone, national_id, created_at, updated_at
		FROM donors
	`+where, arg)

	var (
		extID      uuid.UUID
		username   string
		email      string
		hash       string
		phone      *string
		nationalID *string
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(&extID, &username, &email, &hash, &phone, &nationalID, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return donorrepo.Donor{}, donorrepo.ErrNotFound
		}
		return donorrepo.Donor{}, err
	}
	return donorrepo.Donor{
		ID:           domain.DonorID(extID.String()),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Phone:        phone,
		NationalID:   nationalID,
		CreatedAt:    createdAt.UTC(),
		UpdatedAt:    updatedAt.UTC(),
	}, nil
}
