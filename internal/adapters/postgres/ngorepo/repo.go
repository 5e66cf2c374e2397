package ngorepo

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
	"github.com/plateshare/foodbank-api/internal/ports/out/ngorepo"
)

// Repo is a Postgres implementation of ngorepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, n ngorepo.NGO) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	ngoUUID, err := uuid.Parse(string(n.ID))
	if err != nil {
		return fmt.Errorf("invalid ngo id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO ngos (
			external_id,
			username,
			email,
			password_hash,
			address,
			phone,
			longitude,
			latitude,
			plates_available,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		ngoUUID,
		n.Username,
		n.Email,
		n.PasswordHash,
		n.Address,
		n.Phone,
		n.Location.Longitude,
		n.Location.Latitude,
		n.PlatesAvailable,
		n.CreatedAt.UTC(),
		n.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "ngos_email_unique" {
			return ngorepo.ErrEmailTaken
		}
		return err
	}
	return nil
}

const ngoColumns = `external_id, username, email, password_hash, address, phone, longitude, latitude, plates_available, created_at, updated_at`

func (r *Repo) GetByID(ctx context.Context, id domain.NGOID) (ngorepo.NGO, error) {
	if r.pool == nil {
		return ngorepo.NGO{}, errors.New("nil postgres pool")
	}
	ngoUUID, err := uuid.Parse(string(id))
	if err != nil {
		return ngorepo.NGO{}, ngorepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+ngoColumns+` FROM ngos WHERE external_id = $1`, ngoUUID)
	return scanNGO(row)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (ngorepo.NGO, error) {
	if r.pool == nil {
		return ngorepo.NGO{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `SELECT `+ngoColumns+` FROM ngos WHERE email = $1`, email)
	return scanNGO(row)
}

// ListNearby computes great-circle (haversine) distance in SQL. The table
// is small enough that a full scan beats carrying a geo extension; the
// original system's 2dsphere index is deliberately not reproduced.
func (r *Repo) ListNearby(ctx context.Context, origin domain.Coordinate, radiusMeters float64) ([]ngorepo.NearbyNGO, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+ngoColumns+`, distance_meters
		FROM (
			SELECT *,
				2 * 6371000 * asin(sqrt(
					power(sin(radians(($1 - latitude) / 2)), 2) +
					cos(radians(latitude)) * cos(radians($1)) *
					power(sin(radians(($2 - longitude) / 2)), 2)
				)) AS distance_meters
			FROM ngos
		) candidates
		WHERE distance_meters <= $3
		ORDER BY distance_meters ASC, external_id ASC
	`, origin.Latitude, origin.Longitude, radiusMeters)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ngorepo.NearbyNGO, 0)
	for rows.Next() {
		var (
			extID     uuid.UUID
			username  string
			email     string
			hash      string
			address   *string
			phone     *string
			longitude float64
			latitude  float64
			plates    int
			createdAt time.Time
			updatedAt time.Time
			distance  float64
		)
		if err := rows.Scan(&extID, &username, &email, &hash, &address, &phone, &longitude, &latitude, &plates, &createdAt, &updatedAt, &distance); err != nil {
			return nil, err
		}
		out = append(out, ngorepo.NearbyNGO{
			NGO: ngorepo.NGO{
				ID:              domain.NGOID(extID.String()),
				Username:        username,
				Email:           email,
				PasswordHash:    hash,
				Address:         address,
				Phone:           phone,
				Location:        domain.Coordinate{Longitude: longitude, Latitude: latitude},
				PlatesAvailable: plates,
				CreatedAt:       createdAt.UTC(),
				UpdatedAt:       updatedAt.UTC(),
			},
			DistanceMeters: distance,
		})
	}
	return out, rows.Err()
}

func scanNGO(row pgx.Row) (ngorepo.NGO, error) {
	var (
		extID     uuid.UUID
		username  string
		email     string
		hash      string
		address   *string
		phone     *string
		longitude float64
		latitude  float64
		plates    int
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&extID, &username, &email, &hash, &address, &phone, &longitude, &latitude, &plates, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ngorepo.NGO{}, ngorepo.ErrNotFound
		}
		return ngorepo.NGO{}, err
	}
	return ngorepo.NGO{
		ID:              domain.NGOID(extID.String()),
		Username:        username,
		Email:           email,
		PasswordHash:    hash,
		Address:         address,
		Phone:           phone,
		Location:        domain.Coordinate{Longitude: longitude, Latitude: latitude},
		PlatesAvailable: plates,
		CreatedAt:       createdAt.UTC(),
		UpdatedAt:       updatedAt.UTC(),
	}, nil
}
