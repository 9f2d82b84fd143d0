package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/fwextensions/reserve-bed-poc/internal/app"
)

// Services are the application services exposed over HTTP.
type Services struct {
	Holds        *app.HoldService
	Reservations *app.ReservationService
	Sites        *app.SiteService
	Availability *app.AvailabilityService
	Users        *app.UserService
}

type RouterOptions struct {
	AllowedOrigins []string
	Logger         *zap.Logger
	// Limiter is optional; nil disables rate limiting.
	Limiter *RateLimiter
	// Health is pinged by /health when set.
	Health Pinger
	// Metrics is served at /metrics when set.
	Metrics http.Handler
}

// NewRouter wires every route and the middleware chain.
func NewRouter(svc Services, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /health", HandleHealth(opts.Health))
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	mux.Handle("GET /availability", HandleGetAvailability(svc.Availability))
	mux.Handle("GET /availability/{category}", HandleGetAvailabilityByCategory(svc.Availability))

	mux.Handle("POST /holds", HandlePlaceHold(svc.Holds))
	mux.Handle("POST /holds/refresh", HandleRefreshHold(svc.Holds))
	mux.Handle("POST /holds/release", HandleReleaseHold(svc.Holds))
	mux.Handle("GET /holds/active", HandleGetActiveHold(svc.Holds))

	mux.Handle("POST /reservations", HandleCreateReservation(svc.Reservations))
	mux.Handle("DELETE /reservations/{id}", HandleReleaseReservation(svc.Reservations))

	mux.Handle("GET /sites", HandleListSites(svc.Sites))
	mux.Handle("POST /sites", HandleCreateSite(svc.Sites))
	mux.Handle("GET /sites/{id}", HandleGetSite(svc.Sites))
	mux.Handle("PUT /sites/{id}", HandleUpdateSiteInfo(svc.Sites))
	mux.Handle("PUT /sites/{id}/bed-counts", HandleUpdateBedCounts(svc.Sites))
	mux.Handle("GET /sites/{id}/inventory", HandleGetSiteInventory(svc.Availability))
	mux.Handle("GET /sites/{id}/reservations", HandleListReservations(svc.Reservations))
	mux.Handle("GET /sites/{id}/reservations/export", HandleExportReservations(svc.Sites, svc.Reservations))

	if svc.Users != nil {
		mux.Handle("GET /users", HandleListUsers(svc.Users))
		mux.Handle("GET /users/default/{role}", HandleGetDefaultUser(svc.Users))
		mux.Handle("GET /users/{id}", HandleGetUser(svc.Users))
	}

	mux.Handle("/", NotFoundHandler())

	var handler http.Handler = mux
	if opts.Limiter != nil {
		handler = opts.Limiter.Middleware(handler)
	}
	handler = CORS(opts.AllowedOrigins, handler)
	return RequestLogger(handler, opts.Logger)
}
