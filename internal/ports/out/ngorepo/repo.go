package ngorepo

import (
	"context"
	"time"

	"github.com/plateshare/foodbank-api/internal/domain"
)

// NGO is the persistence shape used by the NGO repository.
type NGO struct {
	ID domain.NGOID

	Username string
	// Email is stored normalized (lowercase) and is unique.
	Email        string
	PasswordHash string
	Address      *string
	Phone        *string

	Location domain.Coordinate

	// PlatesAvailable is read here but mutated only through the ledger
	// store, so the counter and the transaction log can only move together.
	PlatesAvailable int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NearbyNGO is an NGO row with its great-circle distance from a search
// origin, meters.
type NearbyNGO struct {
	NGO
	DistanceMeters float64
}

// Repository provides access to persisted NGOs.
//
// Result ordering expectations:
// - ListNearby returns results ordered by distance ascending, then ID, to
//   keep behavior deterministic.
type Repository interface {
	Create(ctx context.Context, n NGO) error

	GetByID(ctx context.Context, id domain.NGOID) (NGO, error)
	GetByEmail(ctx context.Context, email string) (NGO, error)

	// ListNearby returns NGOs within radiusMeters of the origin.
	ListNearby(ctx context.Context, origin domain.Coordinate, radiusMeters float64) ([]NearbyNGO, error)
}
