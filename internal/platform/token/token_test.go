package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateshare/foodbank-api/internal/domain"
)

func TestIssueAndVerify(t *testing.T) {
	iss := NewIssuer([]byte("test-secret"), time.Hour)

	raw, err := iss.Issue("donor-1", domain.RoleDonor)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	id, err := iss.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "donor-1", id.Subject)
	assert.Equal(t, domain.RoleDonor, id.Role)
}

func TestVerify_Expired(t *testing.T) {
	iss := NewIssuer([]byte("test-secret"), time.Minute)

	base := time.Unix(1_700_000_000, 0)
	iss.SetNowForTest(func() time.Time { return base })
	raw, err := iss.Issue("ngo-1", domain.RoleNGO)
	require.NoError(t, err)

	iss.SetNowForTest(func() time.Time { return base.Add(2 * time.Minute) })
	_, err = iss.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	iss := NewIssuer([]byte("secret-a"), time.Hour)
	other := NewIssuer([]byte("secret-b"), time.Hour)

	raw, err := iss.Issue("recipient-1", domain.RoleRecipient)
	require.NoError(t, err)

	_, err = other.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	iss := NewIssuer([]byte("test-secret"), time.Hour)

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := iss.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", raw)
	}
}
