package domain

import "time"

// Role identifies which directory an authenticated subject belongs to.
type Role string

const (
	RoleDonor     Role = "donor"
	RoleNGO       Role = "ngo"
	RoleRecipient Role = "recipient"
)

// Coordinate is a WGS84 point. Longitude first matches the wire order used
// by the nearby-search responses.
type Coordinate struct {
	Longitude float64
	Latitude  float64
}

// Donor is the domain representation of a donor account.
type Donor struct {
	ID DonorID

	Username string
	Email    string
	Phone    *string
	// NationalID is an optional 12-digit identifier, unique when present.
	NationalID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NGO is the domain representation of an NGO account and its inventory.
type NGO struct {
	ID NGOID

	Username string
	Email    string
	Address  *string
	Phone    *string

	Location Coordinate

	// PlatesAvailable is the running inventory counter. It is mutated only
	// by the ledger store, in the same transaction as the log append.
	PlatesAvailable int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Recipient is the domain representation of a recipient account.
type Recipient struct {
	ID RecipientID

	Username string
	Email    string
	Phone    *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NearbyNGO is an NGO joined with its distance from a search origin.
type NearbyNGO struct {
	NGO
	DistanceMeters float64
}
