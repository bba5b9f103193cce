package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Deps collects everything the router mounts. Webhooks, Exporter and
// Metrics are optional.
type Deps struct {
	Events        EventService
	Registrations RegistrationService
	Users         UserService
	Exporter      Exporter
	Webhooks      WebhookParser
	Verifier      TokenVerifier
	Metrics       http.Handler
	CORSOrigins   []string
	Logger        *slog.Logger
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	eventHandler := NewEventHandler(d.Events, logger)
	regHandler := NewRegistrationHandler(d.Registrations, d.Exporter, logger)
	userHandler := NewUserHandler(d.Users, logger)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(logger))          // structured access log
	r.Use(Metrics)
	r.Use(CORS(d.CORSOrigins))

	// Health
	r.Get("/health", HealthCheck)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(d.Verifier, logger))

		r.Get("/config", regHandler.Config)
		r.Get("/events", eventHandler.ListEvents)
		r.Get("/events/{id}", eventHandler.GetEvent)

		if d.Webhooks != nil {
			r.Post("/webhooks/stripe", NewWebhookHandler(d.Webhooks, d.Registrations, logger).Stripe)
		}

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)
			r.Post("/register-event", regHandler.Register)
			r.Post("/create-payment-intent", regHandler.CreatePaymentIntent)
			r.Post("/confirm-payment", regHandler.ConfirmPayment)
			r.Get("/registrations", regHandler.ListMine)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Route("/events", func(r chi.Router) {
				r.Get("/", eventHandler.AdminListEvents)
				r.Post("/", eventHandler.CreateEvent)
				r.Patch("/{id}", eventHandler.UpdateEvent)
				r.Delete("/{id}", eventHandler.ArchiveEvent)
			})

			r.Route("/registrations", func(r chi.Router) {
				r.Get("/", regHandler.AdminList)
				r.Post("/", regHandler.AdminCreate)
				r.Post("/export", regHandler.AdminExport)
				r.Get("/{id}", regHandler.AdminGet)
				r.Patch("/{id}", regHandler.AdminUpdate)
				r.Delete("/{id}", regHandler.AdminDelete)
				r.Post("/{id}/cancel", regHandler.AdminCancel)
				r.Post("/{id}/refund", regHandler.AdminRefund)
				r.Post("/{id}/resend-confirmation", regHandler.AdminResend)
			})

			r.Get("/users", userHandler.List)
			r.Delete("/users/{id}", userHandler.Delete)
			r.Get("/notifications", regHandler.AdminNotifications)
		})
	})

	return r
}
