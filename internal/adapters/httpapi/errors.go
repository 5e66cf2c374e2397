package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/plateshare/foodbank-api/internal/app/accounts"
	"github.com/plateshare/foodbank-api/internal/app/bookings"
	"github.com/plateshare/foodbank-api/internal/app/donations"
)

type errorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	body := errorResponse{Error: errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		body.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeAppError maps an application-layer error onto the wire envelope.
// Unrecognized errors become an opaque 500 so internals never leak.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		accountsErr  *accounts.Error
		donationsErr *donations.Error
		bookingsErr  *bookings.Error
	)
	switch {
	case errors.As(err, &accountsErr):
		writeError(w, r, accountsErr.Status, accountsErr.Code, accountsErr.Message, accountsErr.Details)
	case errors.As(err, &donationsErr):
		writeError(w, r, donationsErr.Status, donationsErr.Code, donationsErr.Message, donationsErr.Details)
	case errors.As(err, &bookingsErr):
		writeError(w, r, bookingsErr.Status, bookingsErr.Code, bookingsErr.Message, bookingsErr.Details)
	default:
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
