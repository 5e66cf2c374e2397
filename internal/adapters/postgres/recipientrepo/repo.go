package recipientrepo

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
	"github.com/plateshare/foodbank-api/internal/ports/out/recipientrepo"
)

// Repo is a Postgres implementation of recipientrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, rec recipientrepo.Recipient) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	recipientUUID, err := uuid.Parse(string(rec.ID))
	if err != nil {
		return fmt.Errorf("invalid recipient id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO recipients (
			external_id,
			username,
			email,
			password_hash,
			phone,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		recipientUUID,
		rec.Username,
		rec.Email,
		rec.PasswordHash,
		rec.Phone,
		rec.CreatedAt.UTC(),
		rec.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "recipients_email_unique" {
			return recipientrepo.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.RecipientID) (recipientrepo.Recipient, error) {
	if r.pool == nil {
		return recipientrepo.Recipient{}, errors.New("nil postgres pool")
	}
	recipientUUID, err := uuid.Parse(string(id))
	if err != nil {
		return recipientrepo.Recipient{}, recipientrepo.ErrNotFound
	}
	return r.get(ctx, `WHERE external_id = $1`, recipientUUID)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (recipientrepo.Recipient, error) {
	if r.pool == nil {
		return recipientrepo.Recipient{}, errors.New("nil postgres pool")
	}
	return r.get(ctx, `WHERE email = $1`, email)
}

func (r *Repo) get(ctx context.Context, where string, arg any) (recipientrepo.Recipient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT external_id, username, email, password_hash, phone, created_at, updated_at
		FROM recipients
	`+where, arg)

	var (
		extID     uuid.UUID
		username  string
		email     string
		hash      string
		phone     *string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&extID, &username, &email, &hash, &phone, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return recipientrepo.Recipient{}, recipientrepo.ErrNotFound
		}
		return recipientrepo.Recipient{}, err
	}
	return recipientrepo.Recipient{
		ID:           domain.RecipientID(extID.String()),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Phone:        phone,
		CreatedAt:    createdAt.UTC(),
		UpdatedAt:    updatedAt.UTC(),
	}, nil
}
