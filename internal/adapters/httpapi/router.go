package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/plateshare/foodbank-api/internal/platform/token"
)

// NewRouter wires routes and middleware around the handler set. Register,
// login and the public NGO views need no token; everything else sits behind
// bearer auth.
func NewRouter(s *Server, tokens *token.Issuer, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(NewRequestLogger(log))

	// Health endpoint for infra checks, unauthenticated.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/donors/register", s.RegisterDonor)
	r.Post("/donors/login", s.LoginDonor)
	r.Post("/ngos/register", s.RegisterNGO)
	r.Post("/ngos/login", s.LoginNGO)
	r.Post("/recipients/register", s.RegisterRecipient)
	r.Post("/recipients/login", s.LoginRecipient)

	// Public NGO views. The nearby route is registered before the ID route
	// so "nearby" is never parsed as an NGO id.
	r.Get("/ngos/nearby/search", s.FindNearbyNGOs)
	r.Get("/ngos/{ngoID}", s.GetNGODetails)

	r.Group(func(r chi.Router) {
		r.Use(NewAuthMiddleware(tokens))

		r.Get("/donors/profile", s.GetDonorProfile)
		r.Get("/recipients/profile", s.GetRecipientProfile)

		r.Post("/donations", s.RecordDonation)

		r.Post("/bookings/book", s.BookFood)
		r.Post("/bookings/take", s.TakeFood)
		r.Get("/bookings", s.ListRecipientHistory)
		r.Get("/bookings/list/{ngoID}", s.ListBookedRecipients)
	})

	return r
}
