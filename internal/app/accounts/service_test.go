package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	memclock "github.com/plateshare/foodbank-api/internal/adapters/memory/clock"
	memdonorrepo "github.com/plateshare/foodbank-api/internal/adapters/memory/donorrepo"
	memngorepo "github.com/plateshare/foodbank-api/internal/adapters/memory/ngorepo"
	memrecipientrepo "github.com/plateshare/foodbank-api/internal/adapters/memory/recipientrepo"
	"github.com/plateshare/foodbank-api/internal/domain"
	"github.com/plateshare/foodbank-api/internal/platform/token"
)

func newTestService() *Service {
	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	tokens := token.NewIssuer([]byte("test-secret"), 12*time.Hour)
	return NewService(memdonorrepo.NewRepo(), memngorepo.NewRepo(), memrecipientrepo.NewRepo(), tokens, clk)
}

func TestService_RegisterDonor_NormalizesFields(t *testing.T) {
	t.Parallel()
	svc := newTestService()

	d, err := svc.RegisterDonor(context.Background(), RegisterDonorInput{
		Username: "  Asha   Rao ",
		Email:    "  Asha@Example.COM ",
		Password: "password1",
	})
	if err != nil {
		t.Fatalf("RegisterDonor err=%v", err)
	}
	if d.Username != "Asha Rao" {
		t.Fatalf("username=%q", d.Username)
	}
	if d.Email != "asha@example.com" {
		t.Fatalf("email=%q", d.Email)
	}
}

func TestService_RegisterDonor_Validation(t *testing.T) {
	t.Parallel()
	svc := newTestService()

	cases := []struct {
		name string
		in   RegisterDonorInput
	}{
		{"missing username", RegisterDonorInput{Email: "a@b.com", Password: "password1"}},
		{"bad email", RegisterDonorInput{Username: "A", Email: "not-an-email", Password: "password1"}},
		{"short password", RegisterDonorInput{Username: "A", Email: "a@b.com", Password: "short"}},
		{"bad national id", RegisterDonorInput{Username: "A", Email: "a@b.com", Password: "password1", NationalID: strPtr("12345")}},
	}
	for _, tc := range cases {
		_, err := svc.RegisterDonor(context.Background(), tc.in)
		ae := (*Error)(nil)
		if !errors.As(err, &ae) || ae.Status != 422 || ae.Code != "VALIDATION_ERROR" {
			t.Fatalf("%s: err=%v, want VALIDATION_ERROR 422", tc.name, err)
		}
	}
}

func TestService_RegisterDonor_Conflicts(t *testing.T) {
	t.Parallel()
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.RegisterDonor(ctx, RegisterDonorInput{
		Username:   "First",
		Email:      "dup@example.com",
		Password:   "password1",
		NationalID: strPtr("123456789012"),
	})
	if err != nil {
		t.Fatalf("RegisterDonor err=%v", err)
	}

	_, err = svc.RegisterDonor(ctx, RegisterDonorInput{Username: "Second", Email: "dup@example.com", Password: "password1"})
	ae := (*Error)(nil)
	if !errors.As(err, &ae) || ae.Status != 409 || ae.Code != "EMAIL_TAKEN" {
		t.Fatalf("duplicate email: err=%v, want EMAIL_TAKEN 409", err)
	}

	_, err = svc.RegisterDonor(ctx, RegisterDonorInput{
		Username:   "Third",
		Email:      "other@example.com",
		Password:   "password1",
		NationalID: strPtr("123456789012"),
	})
	if !errors.As(err, &ae) || ae.Status != 409 || ae.Code != "NATIONAL_ID_TAKEN" {
		t.Fatalf("duplicate national id: err=%v, want NATIONAL_ID_TAKEN 409", err)
	}
}

func TestService_LoginDonor(t *testing.T) {
	t.Parallel()
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.RegisterDonor(ctx, RegisterDonorInput{
		Username: "Asha",
		Email:    "asha@example.com",
		Password: "password1",
	})
	if err != nil {
		t.Fatalf("RegisterDonor err=%v", err)
	}

	res, err := svc.LoginDonor(ctx, LoginInput{Email: "ASHA@example.com", Password: "password1"})
	if err != nil {
		t.Fatalf("LoginDonor err=%v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected a token")
	}
	if res.Donor.ID != created.ID {
		t.Fatalf("donor id=%s, want %s", res.Donor.ID, created.ID)
	}

	// Wrong password and unknown email are indistinguishable.
	_, errWrong := svc.LoginDonor(ctx, LoginInput{Email: "asha@example.com", Password: "wrong-password"})
	_, errUnknown := svc.LoginDonor(ctx, LoginInput{Email: "nobody@example.com", Password: "password1"})
	for _, err := range []error{errWrong, errUnknown} {
		ae := (*Error)(nil)
		if !errors.As(err, &ae) || ae.Status != 401 || ae.Code != "INVALID_CREDENTIALS" {
			t.Fatalf("err=%v, want INVALID_CREDENTIALS 401", err)
		}
	}
}

func TestService_RegisterNGO_RejectsBadCoordinates(t *testing.T) {
	t.Parallel()
	svc := newTestService()

	_, err := svc.RegisterNGO(context.Background(), RegisterNGOInput{
		Username:  "Kitchen",
		Email:     "kitchen@example.org",
		Password:  "password1",
		Latitude:  91,
		Longitude: 0,
	})
	ae := (*Error)(nil)
	if !errors.As(err, &ae) || ae.Status != 422 || ae.Code != "VALIDATION_ERROR" {
		t.Fatalf("err=%v, want VALIDATION_ERROR 422", err)
	}
}

func TestService_RegisterNGO_StartsWithZeroPlates(t *testing.T) {
	t.Parallel()
	svc := newTestService()

	n, err := svc.RegisterNGO(context.Background(), RegisterNGOInput{
		Username:  "Kitchen",
		Email:     "kitchen@example.org",
		Password:  "password1",
		Latitude:  12.9716,
		Longitude: 77.5946,
	})
	if err != nil {
		t.Fatalf("RegisterNGO err=%v", err)
	}
	if n.PlatesAvailable != 0 {
		t.Fatalf("platesAvailable=%d, want 0", n.PlatesAvailable)
	}
}

func TestService_GetNGODetails(t *testing.T) {
	t.Parallel()
	svc := newTestService()
	ctx := context.Background()

	n, err := svc.RegisterNGO(ctx, RegisterNGOInput{
		Username:  "Kitchen",
		Email:     "kitchen@example.org",
		Password:  "password1",
		Latitude:  12.9716,
		Longitude: 77.5946,
	})
	if err != nil {
		t.Fatalf("RegisterNGO err=%v", err)
	}

	got, err := svc.GetNGODetails(ctx, string(n.ID))
	if err != nil {
		t.Fatalf("GetNGODetails err=%v", err)
	}
	if got.ID != n.ID || got.Location.Latitude != 12.9716 {
		t.Fatalf("got=%+v", got)
	}

	_, err = svc.GetNGODetails(ctx, "not-a-uuid")
	ae := (*Error)(nil)
	if !errors.As(err, &ae) || ae.Status != 422 {
		t.Fatalf("malformed id: err=%v, want 422", err)
	}

	_, err = svc.GetNGODetails(ctx, "00000000-0000-0000-0000-000000000001")
	if !errors.As(err, &ae) || ae.Status != 404 || ae.Code != "NGO_NOT_FOUND" {
		t.Fatalf("unknown id: err=%v, want NGO_NOT_FOUND 404", err)
	}
}

func TestService_FindNearbyNGOs(t *testing.T) {
	t.Parallel()
	svc := newTestService()
	ctx := context.Background()

	near, err := svc.RegisterNGO(ctx, RegisterNGOInput{
		Username:  "Near Kitchen",
		Email:     "near@example.org",
		Password:  "password1",
		Latitude:  12.9806,
		Longitude: 77.5946,
	})
	if err != nil {
		t.Fatalf("RegisterNGO err=%v", err)
	}
	_, err = svc.RegisterNGO(ctx, RegisterNGOInput{
		Username:  "Far Kitchen",
		Email:     "far@example.org",
		Password:  "password1",
		Latitude:  13.8716,
		Longitude: 77.5946,
	})
	if err != nil {
		t.Fatalf("RegisterNGO err=%v", err)
	}

	got, err := svc.FindNearbyNGOs(ctx, 12.9716, 77.5946)
	if err != nil {
		t.Fatalf("FindNearbyNGOs err=%v", err)
	}
	if len(got) != 1 || got[0].ID != near.ID {
		t.Fatalf("got=%+v, want only %s", got, near.ID)
	}
	if got[0].DistanceMeters <= 0 || got[0].DistanceMeters > 5000 {
		t.Fatalf("distance=%f", got[0].DistanceMeters)
	}

	_, err = svc.FindNearbyNGOs(ctx, 123, 77)
	ae := (*Error)(nil)
	if !errors.As(err, &ae) || ae.Status != 422 {
		t.Fatalf("bad latitude: err=%v, want 422", err)
	}
}

func TestService_RecipientRoundTrip(t *testing.T) {
	t.Parallel()
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.RegisterRecipient(ctx, RegisterRecipientInput{
		Username: "Ravi",
		Email:    "ravi@example.com",
		Password: "password1",
	})
	if err != nil {
		t.Fatalf("RegisterRecipient err=%v", err)
	}

	res, err := svc.LoginRecipient(ctx, LoginInput{Email: "ravi@example.com", Password: "password1"})
	if err != nil {
		t.Fatalf("LoginRecipient err=%v", err)
	}
	if res.Recipient.ID != created.ID || res.Token == "" {
		t.Fatalf("res=%+v", res)
	}

	got, err := svc.GetRecipientProfile(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRecipientProfile err=%v", err)
	}
	if got.Email != "ravi@example.com" {
		t.Fatalf("email=%q", got.Email)
	}
}

func TestService_LoginIssuesRoleClaim(t *testing.T) {
	t.Parallel()
	tokens := token.NewIssuer([]byte("test-secret"), 12*time.Hour)
	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	svc := NewService(memdonorrepo.NewRepo(), memngorepo.NewRepo(), memrecipientrepo.NewRepo(), tokens, clk)
	ctx := context.Background()

	d, err := svc.RegisterDonor(ctx, RegisterDonorInput{Username: "A", Email: "a@b.com", Password: "password1"})
	if err != nil {
		t.Fatalf("RegisterDonor err=%v", err)
	}
	res, err := svc.LoginDonor(ctx, LoginInput{Email: "a@b.com", Password: "password1"})
	if err != nil {
		t.Fatalf("LoginDonor err=%v", err)
	}

	id, err := tokens.Verify(res.Token)
	if err != nil {
		t.Fatalf("Verify err=%v", err)
	}
	if id.Subject != string(d.ID) || id.Role != domain.RoleDonor {
		t.Fatalf("identity=%+v", id)
	}
}

func strPtr(s string) *string { return &s }
