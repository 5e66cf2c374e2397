package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	memclock "github.com/plateshare/foodbank-api/internal/adapters/memory/clock"
	memdonorrepo "github.com/plateshare/foodbank-api/internal/adapters/memory/donorrepo"
	memledger "github.com/plateshare/foodbank-api/internal/adapters/memory/ledger"
	memngorepo "github.com/plateshare/foodbank-api/internal/adapters/memory/ngorepo"
	memrecipientrepo "github.com/plateshare/foodbank-api/internal/adapters/memory/recipientrepo"
	"github.com/plateshare/foodbank-api/internal/app/accounts"
	"github.com/plateshare/foodbank-api/internal/app/bookings"
	"github.com/plateshare/foodbank-api/internal/app/donations"
	"github.com/plateshare/foodbank-api/internal/platform/token"
)

// harness is a full API over the in-memory adapters.
type harness struct {
	handler http.Handler
	clk     *memclock.ManualClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	donors := memdonorrepo.NewRepo()
	ngos := memngorepo.NewRepo()
	recipients := memrecipientrepo.NewRepo()
	store := memledger.NewStore(ngos)
	clk := memclock.NewManualClock(time.Unix(1000, 0).UTC())
	tokens := token.NewIssuer([]byte("test-secret"), 12*time.Hour)

	accountsSvc := accounts.NewService(donors, ngos, recipients, tokens, clk)
	donationsSvc := donations.NewService(donors, ngos, store, clk)
	bookingsSvc := bookings.NewService(recipients, ngos, store, clk)

	srv := NewServer(accountsSvc, donationsSvc, bookingsSvc)
	return &harness{handler: NewRouter(srv, tokens, zerolog.Nop()), clk: clk}
}

func (h *harness) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

// registerAndLogin creates an account of the given kind and returns its
// token and id.
func (h *harness) registerDonor(t *testing.T, email string) (string, string) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/donors/register", "", map[string]any{
		"username": "Asha Rao",
		"email":    email,
		"password": "password1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register donor: status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = h.do(t, http.MethodPost, "/donors/login", "", map[string]any{
		"email":    email,
		"password": "password1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login donor: status=%d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	tok := body["token"].(string)
	id := body["donor"].(map[string]any)["id"].(string)
	return tok, id
}

func (h *harness) registerNGO(t *testing.T, email string, lat, lon float64) (string, string) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/ngos/register", "", map[string]any{
		"username":  "Community Kitchen",
		"email":     email,
		"password":  "password1",
		"latitude":  lat,
		"longitude": lon,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register ngo: status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = h.do(t, http.MethodPost, "/ngos/login", "", map[string]any{
		"email":    email,
		"password": "password1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login ngo: status=%d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	return body["token"].(string), body["ngo"].(map[string]any)["id"].(string)
}

func (h *harness) registerRecipient(t *testing.T, email string) (string, string) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/recipients/register", "", map[string]any{
		"username": "Ravi Kumar",
		"email":    email,
		"password": "password1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register recipient: status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = h.do(t, http.MethodPost, "/recipients/login", "", map[string]any{
		"email":    email,
		"password": "password1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login recipient: status=%d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	return body["token"].(string), body["recipient"].(map[string]any)["id"].(string)
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestProfiles_RequireMatchingRole(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	donorTok, donorID := h.registerDonor(t, "asha@example.com")

	rec := h.do(t, http.MethodGet, "/donors/profile", donorTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("donor profile: status=%d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["donor"].(map[string]any)["id"] != donorID {
		t.Fatalf("profile body=%v", body)
	}

	// A donor token cannot read the recipient profile route.
	rec = h.do(t, http.MethodGet, "/recipients/profile", donorTok, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-role profile: status=%d, want 403", rec.Code)
	}

	// No token at all.
	rec = h.do(t, http.MethodGet, "/donors/profile", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated profile: status=%d, want 401", rec.Code)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.registerDonor(t, "dup@example.com")
	rec := h.do(t, http.MethodPost, "/donors/register", "", map[string]any{
		"username": "Other",
		"email":    "dup@example.com",
		"password": "password1",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status=%d, want 409", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"].(map[string]any)["code"] != "EMAIL_TAKEN" {
		t.Fatalf("body=%v", body)
	}
}

func TestDonationBookTakeFlow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	donorTok, _ := h.registerDonor(t, "asha@example.com")
	_, ngoID := h.registerNGO(t, "kitchen@example.org", 12.9716, 77.5946)
	recipientTok, _ := h.registerRecipient(t, "ravi@example.com")

	// Donor gives 10 plates.
	rec := h.do(t, http.MethodPost, "/donations", donorTok, map[string]any{
		"ngoId":    ngoID,
		"quantity": 10,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("donation: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["platesAvailable"].(float64); got != 10 {
		t.Fatalf("platesAvailable=%v, want 10", got)
	}

	// A recipient token cannot donate.
	rec = h.do(t, http.MethodPost, "/donations", recipientTok, map[string]any{
		"ngoId":    ngoID,
		"quantity": 1,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("recipient donating: status=%d, want 403", rec.Code)
	}

	// Recipient books 6.
	rec = h.do(t, http.MethodPost, "/bookings/book", recipientTok, map[string]any{
		"ngoId":    ngoID,
		"quantity": 6,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["platesAvailable"].(float64); got != 4 {
		t.Fatalf("platesAvailable=%v, want 4", got)
	}

	// The public NGO view reflects the new counter.
	rec = h.do(t, http.MethodGet, "/ngos/"+ngoID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ngo details: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["ngo"].(map[string]any)["platesAvailable"].(float64); got != 4 {
		t.Fatalf("ngo platesAvailable=%v, want 4", got)
	}

	// Take 4 of the 6 booked.
	h.clk.Advance(time.Minute)
	rec = h.do(t, http.MethodPost, "/bookings/take", recipientTok, map[string]any{
		"ngoId":    ngoID,
		"quantity": 4,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("take: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["remaining"].(float64); got != 2 {
		t.Fatalf("remaining=%v, want 2", got)
	}

	// Over-claim is rejected with the exact takeable count.
	rec = h.do(t, http.MethodPost, "/bookings/take", recipientTok, map[string]any{
		"ngoId":    ngoID,
		"quantity": 3,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("over-claim: status=%d body=%s", rec.Code, rec.Body.String())
	}
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	if errBody["code"] != "OVER_CLAIM" {
		t.Fatalf("error=%v", errBody)
	}
	if errBody["message"] != fmt.Sprintf("you can only take up to %d plates", 2) {
		t.Fatalf("message=%v", errBody["message"])
	}
	if errBody["details"].(map[string]any)["maxTakeable"].(float64) != 2 {
		t.Fatalf("details=%v", errBody["details"])
	}

	// History is newest first and scoped to the caller.
	rec = h.do(t, http.MethodGet, "/bookings", recipientTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: status=%d body=%s", rec.Code, rec.Body.String())
	}
	txs := decodeBody(t, rec)["transactions"].([]any)
	if len(txs) != 2 {
		t.Fatalf("len(transactions)=%d, want 2", len(txs))
	}
	if txs[0].(map[string]any)["kind"] != "take" || txs[1].(map[string]any)["kind"] != "book" {
		t.Fatalf("history order: %v", txs)
	}

	// Booked recipients report, as seen by the NGO.
	ngoTok, _ := func() (string, string) {
		recLogin := h.do(t, http.MethodPost, "/ngos/login", "", map[string]any{
			"email":    "kitchen@example.org",
			"password": "password1",
		})
		if recLogin.Code != http.StatusOK {
			t.Fatalf("ngo login: status=%d", recLogin.Code)
		}
		b := decodeBody(t, recLogin)
		return b["token"].(string), ""
	}()
	rec = h.do(t, http.MethodGet, "/bookings/list/"+ngoID, ngoTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("booked list: status=%d body=%s", rec.Code, rec.Body.String())
	}
	recipients := decodeBody(t, rec)["recipients"].([]any)
	if len(recipients) != 1 {
		t.Fatalf("len(recipients)=%d, want 1", len(recipients))
	}
	entry := recipients[0].(map[string]any)
	if entry["totalBooked"].(float64) != 6 || entry["email"] != "ravi@example.com" {
		t.Fatalf("entry=%v", entry)
	}
}

func TestBooking_InsufficientPlates(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	donorTok, _ := h.registerDonor(t, "asha@example.com")
	_, ngoID := h.registerNGO(t, "kitchen@example.org", 12.9716, 77.5946)
	recipientTok, _ := h.registerRecipient(t, "ravi@example.com")

	rec := h.do(t, http.MethodPost, "/donations", donorTok, map[string]any{
		"ngoId":    ngoID,
		"quantity": 4,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("donation: status=%d", rec.Code)
	}

	rec = h.do(t, http.MethodPost, "/bookings/book", recipientTok, map[string]any{
		"ngoId":    ngoID,
		"quantity": 5,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s, want 409", rec.Code, rec.Body.String())
	}
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	if errBody["code"] != "INSUFFICIENT_PLATES" {
		t.Fatalf("error=%v", errBody)
	}
	if errBody["details"].(map[string]any)["platesAvailable"].(float64) != 4 {
		t.Fatalf("details=%v", errBody["details"])
	}
}

func TestNearbySearch(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, nearID := h.registerNGO(t, "near@example.org", 12.9806, 77.5946)
	h.registerNGO(t, "far@example.org", 13.8716, 77.5946)

	rec := h.do(t, http.MethodGet, "/ngos/nearby/search?latitude=12.9716&longitude=77.5946", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	ngos := decodeBody(t, rec)["ngos"].([]any)
	if len(ngos) != 1 {
		t.Fatalf("len(ngos)=%d, want 1", len(ngos))
	}
	entry := ngos[0].(map[string]any)
	if entry["id"] != nearID {
		t.Fatalf("entry=%v, want id %s", entry, nearID)
	}
	if entry["distanceMeters"].(float64) <= 0 {
		t.Fatalf("distanceMeters=%v", entry["distanceMeters"])
	}

	// Missing coordinates.
	rec = h.do(t, http.MethodGet, "/ngos/nearby/search", "", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422", rec.Code)
	}
}

func TestValidationEnvelope(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/donors/register", "", map[string]any{
		"username": "A",
		"email":    "not-an-email",
		"password": "password1",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422", rec.Code)
	}
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	if errBody["code"] != "VALIDATION_ERROR" {
		t.Fatalf("error=%v", errBody)
	}
	if errBody["requestId"] == "" {
		t.Fatalf("expected a requestId in the envelope")
	}
}
