package recipientrepo

import (
	"context"
	"time"

	"github.com/plateshare/foodbank-api/internal/domain"
)

// Recipient is the persistence shape used by the recipient repository.
type Recipient struct {
	ID domain.RecipientID

	Username string
	// Email is stored normalized (lowercase) and is unique.
	Email        string
	PasswordHash string
	Phone        *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted recipients.
type Repository interface {
	Create(ctx context.Context, r Recipient) error

	GetByID(ctx context.Context, id domain.RecipientID) (Recipient, error)
	GetByEmail(ctx context.Context, email string) (Recipient, error)
}
