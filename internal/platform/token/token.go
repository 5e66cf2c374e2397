package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/plateshare/foodbank-api/internal/domain"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the assertions carried by an access token: the account ID as
// subject plus the directory role it belongs to.
type Claims struct {
	jwt.RegisteredClaims
	Role domain.Role `json:"role"`
}

// Identity is the verified result of a bearer token.
type Identity struct {
	Subject string
	Role    domain.Role
}

// Issuer signs and verifies HS256 access tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration

	now func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}
}

// SetNowForTest overrides the clock for deterministic expiry tests.
// It should not be used in production code.
func (i *Issuer) SetNowForTest(fn func() time.Time) {
	if fn != nil {
		i.now = fn
	}
}

// Issue mints a token for the given account and role.
func (i *Issuer) Issue(subject string, role domain.Role) (string, error) {
	now := i.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Role: role,
	})
	return t.SignedString(i.secret)
}

// Verify parses and validates a token string, returning the identity it
// asserts. Any parse, signature, or expiry failure maps to ErrInvalidToken.
func (i *Issuer) Verify(raw string) (Identity, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return i.now() }))
	if err != nil || !t.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	switch claims.Role {
	case domain.RoleDonor, domain.RoleNGO, domain.RoleRecipient:
	default:
		return Identity{}, ErrInvalidToken
	}
	return Identity{Subject: claims.Subject, Role: claims.Role}, nil
}
