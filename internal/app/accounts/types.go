package accounts

import "github.com/plateshare/foodbank-api/internal/domain"

type RegisterDonorInput struct {
	Username string
	Email    string
	Password string
	Phone    *string
	// NationalID is optional; when present it must be a 12-digit number and
	// unique across donors.
	NationalID *string
}

type RegisterNGOInput struct {
	Username string
	Email    string
	Password string
	Address  *string
	Phone    *string

	Latitude  float64
	Longitude float64
}

type RegisterRecipientInput struct {
	Username string
	Email    string
	Password string
	Phone    *string
}

type LoginInput struct {
	Email    string
	Password string
}

type DonorLogin struct {
	Token string
	Donor domain.Donor
}

type NGOLogin struct {
	Token string
	NGO   domain.NGO
}

type RecipientLogin struct {
	Token     string
	Recipient domain.Recipient
}
