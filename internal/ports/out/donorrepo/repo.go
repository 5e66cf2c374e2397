package donorrepo

import (
	"context"
	"time"

	"github.com/plateshare/foodbank-api/internal/domain"
)

// Donor is the persistence shape used by the donor repository. It is an
// internal record, not an HTTP DTO; it is the only place the credential
// hash appears.
type Donor struct {
	ID domain.DonorID

	Username string
	// Email is stored normalized (lowercase) and is unique.
	Email        string
	PasswordHash string
	Phone        *string
	// NationalID is optional and unique when present.
	NationalID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted donors.
type Repository interface {
	Create(ctx context.Context, d Donor) error

	GetByID(ctx context.Context, id domain.DonorID) (Donor, error)
	GetByEmail(ctx context.Context, email string) (Donor, error)
}
