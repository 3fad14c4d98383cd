// Package http mounts the application routes on a chi router with the shared
// middleware stack.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	deliveryhandler "foodbridge/internal/delivery/handler"
	donationhandler "foodbridge/internal/donation/handler"
	"foodbridge/internal/location"
	matchinghandler "foodbridge/internal/matching/handler"
	needhandler "foodbridge/internal/need/handler"
	notificationhandler "foodbridge/internal/notification/handler"
	"foodbridge/internal/platform/metrics"
	"foodbridge/internal/platform/middleware"
)

// Handlers bundles every slice handler the router mounts.
type Handlers struct {
	Donations     *donationhandler.Handler
	Needs         *needhandler.Handler
	Matching      *matchinghandler.Handler
	Deliveries    *deliveryhandler.Handler
	Notifications *notificationhandler.Handler
	Locations     *location.Handler
}

// Options carries the cross-cutting collaborators for the middleware stack.
type Options struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	TokenValidator middleware.TokenValidator
	AdminTokenHash string
	AdminToken     string
}

// NewRouter wires all routes with the shared middleware stack. Authenticated
// routes carry role gates per slice; /admin routes are guarded by the admin
// token instead of a JWT.
func NewRouter(handlers Handlers, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(opts.Logger))
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.DeviceInfo)
	if opts.Metrics != nil {
		r.Use(middleware.Latency(opts.Metrics))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Authenticated application surface.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(opts.TokenValidator, opts.Logger))
		r.Use(middleware.ContentTypeJSON)

		donorOnly := middleware.RequireRole(opts.Logger, middleware.RoleDonor)
		recipientOnly := middleware.RequireRole(opts.Logger, middleware.RoleRecipient)
		logisticsOnly := middleware.RequireRole(opts.Logger, middleware.RoleLogistics)

		handlers.Donations.Register(r, donorOnly)
		handlers.Deliveries.Register(r, logisticsOnly)
		handlers.Notifications.Register(r)
		handlers.Locations.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(recipientOnly)
			handlers.Needs.Register(r)
			handlers.Matching.Register(r)
		})
	})

	// Admin surface, guarded by the shared admin token.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(opts.AdminTokenHash, opts.AdminToken, opts.Logger))
		r.Use(middleware.ContentTypeJSON)
		handlers.Locations.RegisterAdmin(r)
	})

	return r
}
