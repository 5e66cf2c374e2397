package accounts

import (
	"context"
	"errors"
	"net/mail"
	"regexp"

	"github.com/google/uuid"

	"github.com/plateshare/foodbank-api/internal/domain"
	"github.com/plateshare/foodbank-api/internal/platform/password"
	"github.com/plateshare/foodbank-api/internal/platform/token"
	clockport "github.com/plateshare/foodbank-api/internal/ports/out/clock"
	"github.com/plateshare/foodbank-api/internal/ports/out/donorrepo"
	"github.com/plateshare/foodbank-api/internal/ports/out/ngorepo"
	"github.com/plateshare/foodbank-api/internal/ports/out/recipientrepo"
)

var nationalIDPattern = regexp.MustCompile(`^\d{12}$`)

// Service handles registration, login and profile retrieval for the three
// account directories, plus the nearby-NGO search.
type Service struct {
	donors     donorrepo.Repository
	ngos       ngorepo.Repository
	recipients recipientrepo.Repository
	tokens     *token.Issuer
	clk        clockport.Clock

	newID func() string

	// NearbyRadiusMeters bounds FindNearbyNGOs.
	NearbyRadiusMeters float64
}

func NewService(donors donorrepo.Repository, ngos ngorepo.Repository, recipients recipientrepo.Repository, tokens *token.Issuer, clk clockport.Clock) *Service {
	return &Service{
		donors:             donors,
		ngos:               ngos,
		recipients:         recipients,
		tokens:             tokens,
		clk:                clk,
		newID:              uuid.NewString,
		NearbyRadiusMeters: 5000,
	}
}

// SetNewIDForTest overrides account ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewIDForTest(fn func() string) {
	if fn != nil {
		s.newID = fn
	}
}

func (s *Service) RegisterDonor(ctx context.Context, in RegisterDonorInput) (domain.Donor, error) {
	username, email, hash, verr := validateRegistration(in.Username, in.Email, in.Password)
	if verr != nil {
		return domain.Donor{}, verr
	}
	if in.NationalID != nil && !nationalIDPattern.MatchString(*in.NationalID) {
		return domain.Donor{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid nationalId", Details: map[string]any{"nationalId": "must be a 12-digit number"}}
	}

	now := s.clk.Now()
	d := donorrepo.Donor{
		ID:           domain.DonorID(s.newID()),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Phone:        cloneStringPtr(in.Phone),
		NationalID:   cloneStringPtr(in.NationalID),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.donors.Create(ctx, d); err != nil {
		switch {
		case errors.Is(err, donorrepo.ErrEmailTaken):
			return domain.Donor{}, &Error{Status: 409, Code: "EMAIL_TAKEN", Message: "email already registered"}
		case errors.Is(err, donorrepo.ErrNationalIDTaken):
			return domain.Donor{}, &Error{Status: 409, Code: "NATIONAL_ID_TAKEN", Message: "national id already registered"}
		}
		return domain.Donor{}, err
	}
	return donorToDomain(d), nil
}

func (s *Service) LoginDonor(ctx context.Context, in LoginInput) (DonorLogin, error) {
	email, verr := validateLogin(in)
	if verr != nil {
		return DonorLogin{}, verr
	}
	d, err := s.donors.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, donorrepo.ErrNotFound) {
			return DonorLogin{}, invalidCredentials()
		}
		return DonorLogin{}, err
	}
	if !password.Verify(d.PasswordHash, in.Password) {
		return DonorLogin{}, invalidCredentials()
	}
	tok, err := s.tokens.Issue(string(d.ID), domain.RoleDonor)
	if err != nil {
		return DonorLogin{}, err
	}
	return DonorLogin{Token: tok, Donor: donorToDomain(d)}, nil
}

func (s *Service) GetDonorProfile(ctx context.Context, id domain.DonorID) (domain.Donor, error) {
	d, err := s.donors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, donorrepo.ErrNotFound) {
			return domain.Donor{}, &Error{Status: 404, Code: "DONOR_NOT_FOUND", Message: "donor not found"}
		}
		return domain.Donor{}, err
	}
	return donorToDomain(d), nil
}

func (s *Service) RegisterNGO(ctx context.Context, in RegisterNGOInput) (domain.NGO, error) {
	username, email, hash, verr := validateRegistration(in.Username, in.Email, in.Password)
	if verr != nil {
		return domain.NGO{}, verr
	}
	if in.Latitude < -90 || in.Latitude > 90 || in.Longitude < -180 || in.Longitude > 180 {
		return domain.NGO{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid coordinates", Details: map[string]any{"latitude": "must be in [-90, 90]", "longitude": "must be in [-180, 180]"}}
	}

	now := s.clk.Now()
	n := ngorepo.NGO{
		ID:           domain.NGOID(s.newID()),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Address:      cloneStringPtr(in.Address),
		Phone:        cloneStringPtr(in.Phone),
		Location:     domain.Coordinate{Longitude: in.Longitude, Latitude: in.Latitude},
		// Inventory starts empty; only donations raise it.
		PlatesAvailable: 0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.ngos.Create(ctx, n); err != nil {
		if errors.Is(err, ngorepo.ErrEmailTaken) {
			return domain.NGO{}, &Error{Status: 409, Code: "EMAIL_TAKEN", Message: "email already registered"}
		}
		return domain.NGO{}, err
	}
	return ngoToDomain(n), nil
}

func (s *Service) LoginNGO(ctx context.Context, in LoginInput) (NGOLogin, error) {
	email, verr := validateLogin(in)
	if verr != nil {
		return NGOLogin{}, verr
	}
	n, err := s.ngos.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ngorepo.ErrNotFound) {
			return NGOLogin{}, invalidCredentials()
		}
		return NGOLogin{}, err
	}
	if !password.Verify(n.PasswordHash, in.Password) {
		return NGOLogin{}, invalidCredentials()
	}
	tok, err := s.tokens.Issue(string(n.ID), domain.RoleNGO)
	if err != nil {
		return NGOLogin{}, err
	}
	return NGOLogin{Token: tok, NGO: ngoToDomain(n)}, nil
}

func (s *Service) GetNGOProfile(ctx context.Context, id domain.NGOID) (domain.NGO, error) {
	n, err := s.ngos.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ngorepo.ErrNotFound) {
			return domain.NGO{}, &Error{Status: 404, Code: "NGO_NOT_FOUND", Message: "ngo not found"}
		}
		return domain.NGO{}, err
	}
	return ngoToDomain(n), nil
}

// GetNGODetails is the public NGO view: identity, contact, coordinate and
// current plates count.
func (s *Service) GetNGODetails(ctx context.Context, rawID string) (domain.NGO, error) {
	if _, err := uuid.Parse(rawID); err != nil {
		return domain.NGO{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid ngoId", Details: map[string]any{"ngoId": "must be a valid id"}}
	}
	return s.GetNGOProfile(ctx, domain.NGOID(rawID))
}

func (s *Service) RegisterRecipient(ctx context.Context, in RegisterRecipientInput) (domain.Recipient, error) {
	username, email, hash, verr := validateRegistration(in.Username, in.Email, in.Password)
	if verr != nil {
		return domain.Recipient{}, verr
	}

	now := s.clk.Now()
	r := recipientrepo.Recipient{
		ID:           domain.RecipientID(s.newID()),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Phone:        cloneStringPtr(in.Phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.recipients.Create(ctx, r); err != nil {
		if errors.Is(err, recipientrepo.ErrEmailTaken) {
			return domain.Recipient{}, &Error{Status: 409, Code: "EMAIL_TAKEN", Message: "email already registered"}
		}
		return domain.Recipient{}, err
	}
	return recipientToDomain(r), nil
}

func (s *Service) LoginRecipient(ctx context.Context, in LoginInput) (RecipientLogin, error) {
	email, verr := validateLogin(in)
	if verr != nil {
		return RecipientLogin{}, verr
	}
	r, err := s.recipients.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, recipientrepo.ErrNotFound) {
			return RecipientLogin{}, invalidCredentials()
		}
		return RecipientLogin{}, err
	}
	if !password.Verify(r.PasswordHash, in.Password) {
		return RecipientLogin{}, invalidCredentials()
	}
	tok, err := s.tokens.Issue(string(r.ID), domain.RoleRecipient)
	if err != nil {
		return RecipientLogin{}, err
	}
	return RecipientLogin{Token: tok, Recipient: recipientToDomain(r)}, nil
}

func (s *Service) GetRecipientProfile(ctx context.Context, id domain.RecipientID) (domain.Recipient, error) {
	r, err := s.recipients.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, recipientrepo.ErrNotFound) {
			return domain.Recipient{}, &Error{Status: 404, Code: "RECIPIENT_NOT_FOUND", Message: "recipient not found"}
		}
		return domain.Recipient{}, err
	}
	return recipientToDomain(r), nil
}

// FindNearbyNGOs returns NGOs within the configured radius of the origin,
// nearest first.
func (s *Service) FindNearbyNGOs(ctx context.Context, latitude, longitude float64) ([]domain.NearbyNGO, error) {
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return nil, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid coordinates", Details: map[string]any{"latitude": "must be in [-90, 90]", "longitude": "must be in [-180, 180]"}}
	}
	ns, err := s.ngos.ListNearby(ctx, domain.Coordinate{Longitude: longitude, Latitude: latitude}, s.NearbyRadiusMeters)
	if err != nil {
		return nil, err
	}
	out := make([]domain.NearbyNGO, 0, len(ns))
	for _, n := range ns {
		out = append(out, domain.NearbyNGO{NGO: ngoToDomain(n.NGO), DistanceMeters: n.DistanceMeters})
	}
	return out, nil
}

func validateRegistration(username, email, plain string) (string, string, string, *Error) {
	u := domain.NormalizeHumanName(username)
	if u == "" {
		return "", "", "", &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid username", Details: map[string]any{"username": "must be non-empty"}}
	}
	e := domain.NormalizeEmail(email)
	if _, err := mail.ParseAddress(e); err != nil || e == "" {
		return "", "", "", &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid email", Details: map[string]any{"email": "must be a valid email address"}}
	}
	if len(plain) < 8 {
		return "", "", "", &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid password", Details: map[string]any{"password": "must be at least 8 characters"}}
	}
	hash, err := password.Hash(plain)
	if err != nil {
		return "", "", "", &Error{Status: 500, Code: "INTERNAL", Message: "could not process password"}
	}
	return u, e, hash, nil
}

func validateLogin(in LoginInput) (string, *Error) {
	e := domain.NormalizeEmail(in.Email)
	if e == "" || in.Password == "" {
		return "", &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "email and password are required"}
	}
	return e, nil
}

func invalidCredentials() *Error {
	// One code for unknown email and wrong password; login must not reveal
	// which directory entries exist.
	return &Error{Status: 401, Code: "INVALID_CREDENTIALS", Message: "invalid email or password"}
}

func donorToDomain(d donorrepo.Donor) domain.Donor {
	return domain.Donor{
		ID:         d.ID,
		Username:   d.Username,
		Email:      d.Email,
		Phone:      cloneStringPtr(d.Phone),
		NationalID: cloneStringPtr(d.NationalID),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func ngoToDomain(n ngorepo.NGO) domain.NGO {
	return domain.NGO{
		ID:              n.ID,
		Username:        n.Username,
		Email:           n.Email,
		Address:         cloneStringPtr(n.Address),
		Phone:           cloneStringPtr(n.Phone),
		Location:        n.Location,
		PlatesAvailable: n.PlatesAvailable,
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
	}
}

func recipientToDomain(r recipientrepo.Recipient) domain.Recipient {
	return domain.Recipient{
		ID:        r.ID,
		Username:  r.Username,
		Email:     r.Email,
		Phone:     cloneStringPtr(r.Phone),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
