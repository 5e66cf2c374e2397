package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/plateshare/foodbank-api/internal/app/accounts"
	"github.com/plateshare/foodbank-api/internal/app/bookings"
	"github.com/plateshare/foodbank-api/internal/app/donations"
	"github.com/plateshare/foodbank-api/internal/domain"
	"github.com/plateshare/foodbank-api/internal/platform/token"
)

// Server is the HTTP adapter. It decodes requests, delegates to the
// application services and maps their errors onto the wire envelope.
type Server struct {
	Accounts  *accounts.Service
	Donations *donations.Service
	Bookings  *bookings.Service
}

func NewServer(accountsSvc *accounts.Service, donationsSvc *donations.Service, bookingsSvc *bookings.Service) *Server {
	return &Server{
		Accounts:  accountsSvc,
		Donations: donationsSvc,
		Bookings:  bookingsSvc,
	}
}

// ---- wire shapes ----

type donorJSON struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Phone      *string   `json:"phone,omitempty"`
	NationalID *string   `json:"nationalId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type coordinateJSON struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

type ngoJSON struct {
	ID              string         `json:"id"`
	Username        string         `json:"username"`
	Email           string         `json:"email"`
	Address         *string        `json:"address,omitempty"`
	Phone           *string        `json:"phone,omitempty"`
	Location        coordinateJSON `json:"location"`
	PlatesAvailable int            `json:"platesAvailable"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type nearbyNGOJSON struct {
	ngoJSON
	DistanceMeters float64 `json:"distanceMeters"`
}

type recipientJSON struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type donationTxJSON struct {
	ID        string    `json:"id"`
	DonorID   string    `json:"donorId"`
	NGOID     string    `json:"ngoId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}

type recipientTxJSON struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipientId"`
	NGOID       string    `json:"ngoId"`
	Quantity    int       `json:"quantity"`
	Kind        string    `json:"kind"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toDonorJSON(d domain.Donor) donorJSON {
	return donorJSON{
		ID:         string(d.ID),
		Username:   d.Username,
		Email:      d.Email,
		Phone:      d.Phone,
		NationalID: d.NationalID,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func toNGOJSON(n domain.NGO) ngoJSON {
	return ngoJSON{
		ID:              string(n.ID),
		Username:        n.Username,
		Email:           n.Email,
		Address:         n.Address,
		Phone:           n.Phone,
		Location:        coordinateJSON{Longitude: n.Location.Longitude, Latitude: n.Location.Latitude},
		PlatesAvailable: n.PlatesAvailable,
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
	}
}

func toRecipientJSON(r domain.Recipient) recipientJSON {
	return recipientJSON{
		ID:        string(r.ID),
		Username:  r.Username,
		Email:     r.Email,
		Phone:     r.Phone,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toDonationTxJSON(tx domain.DonationTransaction) donationTxJSON {
	return donationTxJSON{
		ID:        string(tx.ID),
		DonorID:   string(tx.DonorID),
		NGOID:     string(tx.NGOID),
		Quantity:  tx.Quantity,
		CreatedAt: tx.CreatedAt,
	}
}

func toRecipientTxJSON(tx domain.RecipientTransaction) recipientTxJSON {
	return recipientTxJSON{
		ID:          string(tx.ID),
		RecipientID: string(tx.RecipientID),
		NGOID:       string(tx.NGOID),
		Quantity:    tx.Quantity,
		Kind:        string(tx.Kind),
		CreatedAt:   tx.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body", nil)
		return false
	}
	return true
}

// requireRole fetches the verified identity and checks its role claim.
func requireRole(w http.ResponseWriter, r *http.Request, role domain.Role) (token.Identity, bool) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return token.Identity{}, false
	}
	if id.Role != role {
		writeError(w, r, http.StatusForbidden, "FORBIDDEN", "wrong role for this endpoint", nil)
		return token.Identity{}, false
	}
	return id, true
}

// ---- donors ----

type registerDonorRequest struct {
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	Phone      *string `json:"phone"`
	NationalID *string `json:"nationalId"`
}

func (s *Server) RegisterDonor(w http.ResponseWriter, r *http.Request) {
	var req registerDonorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := s.Accounts.RegisterDonor(r.Context(), accounts.RegisterDonorInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		Phone:      req.Phone,
		NationalID: req.NationalID,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"donor": toDonorJSON(d)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) LoginDonor(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Accounts.LoginDonor(r.Context(), accounts.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": res.Token, "donor": toDonorJSON(res.Donor)})
}

func (s *Server) GetDonorProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := requireRole(w, r, domain.RoleDonor)
	if !ok {
		return
	}
	d, err := s.Accounts.GetDonorProfile(r.Context(), domain.DonorID(id.Subject))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"donor": toDonorJSON(d)})
}

// ---- NGOs ----

type registerNGORequest struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Address   *string `json:"address"`
	Phone     *string `json:"phone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (s *Server) RegisterNGO(w http.ResponseWriter, r *http.Request) {
	var req registerNGORequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := s.Accounts.RegisterNGO(r.Context(), accounts.RegisterNGOInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Address:   req.Address,
		Phone:     req.Phone,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ngo": toNGOJSON(n)})
}

func (s *Server) LoginNGO(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Accounts.LoginNGO(r.Context(), accounts.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": res.Token, "ngo": toNGOJSON(res.NGO)})
}

func (s *Server) GetNGODetails(w http.ResponseWriter, r *http.Request) {
	n, err := s.Accounts.GetNGODetails(r.Context(), chi.URLParam(r, "ngoID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ngo": toNGOJSON(n)})
}

func (s *Server) FindNearbyNGOs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("latitude"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("longitude"), 64)
	if errLat != nil || errLon != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "latitude and longitude are required", map[string]any{
			"latitude":  "must be a number",
			"longitude": "must be a number",
		})
		return
	}
	ns, err := s.Accounts.FindNearbyNGOs(r.Context(), lat, lon)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]nearbyNGOJSON, 0, len(ns))
	for _, n := range ns {
		out = append(out, nearbyNGOJSON{ngoJSON: toNGOJSON(n.NGO), DistanceMeters: n.DistanceMeters})
	}
	writeJSON(w, http.StatusOK, map[string]any{"ngos": out})
}

// ---- recipients ----

type registerRecipientRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    *string `json:"phone"`
}

func (s *Server) RegisterRecipient(w http.ResponseWriter, r *http.Request) {
	var req registerRecipientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := s.Accounts.RegisterRecipient(r.Context(), accounts.RegisterRecipientInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"recipient": toRecipientJSON(rec)})
}

func (s *Server) LoginRecipient(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Accounts.LoginRecipient(r.Context(), accounts.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": res.Token, "recipient": toRecipientJSON(res.Recipient)})
}

func (s *Server) GetRecipientProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := requireRole(w, r, domain.RoleRecipient)
	if !ok {
		return
	}
	rec, err := s.Accounts.GetRecipientProfile(r.Context(), domain.RecipientID(id.Subject))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipient": toRecipientJSON(rec)})
}

// ---- donations ----

type recordDonationRequest struct {
	NGOID    string `json:"ngoId"`
	Quantity int    `json:"quantity"`
}

func (s *Server) RecordDonation(w http.ResponseWriter, r *http.Request) {
	id, ok := requireRole(w, r, domain.RoleDonor)
	if !ok {
		return
	}
	var req recordDonationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Donations.RecordDonation(r.Context(), donations.RecordDonationInput{
		DonorID:  id.Subject,
		NGOID:    req.NGOID,
		Quantity: req.Quantity,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction":     toDonationTxJSON(res.Transaction),
		"platesAvailable": res.PlatesAvailable,
	})
}

// ---- bookings ----

type claimRequest struct {
	NGOID    string `json:"ngoId"`
	Quantity int    `json:"quantity"`
}

func (s *Server) BookFood(w http.ResponseWriter, r *http.Request) {
	id, ok := requireRole(w, r, domain.RoleRecipient)
	if !ok {
		return
	}
	var req claimRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Bookings.BookFood(r.Context(), bookings.BookFoodInput{
		RecipientID: id.Subject,
		NGOID:       req.NGOID,
		Quantity:    req.Quantity,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction":     toRecipientTxJSON(res.Transaction),
		"platesAvailable": res.PlatesAvailable,
	})
}

func (s *Server) TakeFood(w http.ResponseWriter, r *http.Request) {
	id, ok := requireRole(w, r, domain.RoleRecipient)
	if !ok {
		return
	}
	var req claimRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Bookings.TakeFood(r.Context(), bookings.TakeFoodInput{
		RecipientID: id.Subject,
		NGOID:       req.NGOID,
		Quantity:    req.Quantity,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction": toRecipientTxJSON(res.Transaction),
		"remaining":   res.Remaining,
	})
}

func (s *Server) ListRecipientHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := requireRole(w, r, domain.RoleRecipient)
	if !ok {
		return
	}
	txs, err := s.Bookings.ListRecipientHistory(r.Context(), id.Subject)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]recipientTxJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toRecipientTxJSON(tx))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

type bookedRecipientJSON struct {
	RecipientID string `json:"recipientId"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	TotalBooked int    `json:"totalBooked"`
}

func (s *Server) ListBookedRecipients(w http.ResponseWriter, r *http.Request) {
	if _, ok := IdentityFromContext(r.Context()); !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	totals, err := s.Bookings.ListBookedRecipients(r.Context(), chi.URLParam(r, "ngoID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]bookedRecipientJSON, 0, len(totals))
	for _, t := range totals {
		out = append(out, bookedRecipientJSON{
			RecipientID: string(t.RecipientID),
			Username:    t.Username,
			Email:       t.Email,
			TotalBooked: t.TotalBooked,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipients": out})
}
