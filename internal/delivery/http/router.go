package http

import (
	"context"
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventticketing/config"
	"eventticketing/internal/delivery/http/controllers"
	"eventticketing/internal/delivery/http/helpers"
	"eventticketing/internal/delivery/http/middleware"
	"eventticketing/internal/domain"
)

// RouterDeps holds everything NewRouter mounts.
type RouterDeps struct {
	Logger    *slog.Logger
	Tickets   *controllers.TicketController
	CheckIns  *controllers.CheckInController
	Events    *controllers.EventController
	Verifier  domain.TokenVerifier
	Limiter   middleware.Limiter
	RateLimit config.RateLimitConfig
	// Ping reports storage health for /healthz. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// NewRouter initializes the HTTP router with all application routes.
func NewRouter(d RouterDeps) *http.ServeMux {
	mux := http.NewServeMux()

	authed := middleware.RequireAuth(d.Verifier, d.Logger)
	limited := middleware.RateLimit(d.RateLimit, d.Limiter, d.Logger)
	staffOnly := middleware.RequireRole(domain.RoleStaff, domain.RoleOrganizer)
	organizerOnly := middleware.RequireRole(domain.RoleOrganizer)

	// Tickets
	mux.HandleFunc("POST /tickets", authed(limited(d.Tickets.BookTickets)))
	mux.HandleFunc("PUT /tickets/{ticketID}/cancel", authed(limited(d.Tickets.CancelTicket)))
	mux.HandleFunc("GET /tickets/{ticketID}", authed(d.Tickets.GetTicket))

	// Check-in
	mux.HandleFunc("POST /checkin/qr", authed(staffOnly(limited(d.CheckIns.CheckInByCode))))
	mux.HandleFunc("POST /checkin/{ticketID}", authed(staffOnly(limited(d.CheckIns.CheckIn))))

	// Events
	mux.HandleFunc("POST /events", authed(organizerOnly(d.Events.CreateEvent)))
	mux.HandleFunc("GET /events/{eventID}", d.Events.GetEvent)
	mux.HandleFunc("GET /events/{eventID}/tickets", authed(staffOnly(d.Events.ListEventTickets)))

	mux.HandleFunc("GET /healthz", healthz(d.Ping))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// WithMiddleware wraps h in the server-wide chain: Recovery, then Logging, then CORS.
func WithMiddleware(h http.Handler, logger *slog.Logger, allowedOrigins []string) http.Handler {
	return middleware.Recovery(logger, middleware.LoggingMiddleware(logger, middleware.CORS(allowedOrigins, h)))
}

func healthz(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeInternalError, "storage unavailable")
				return
			}
		}
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
