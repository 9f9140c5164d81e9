package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/libs/httpx"
	"campusev/backend/services/charging-service/internal/http/handlers"
)

// Routes groups handlers.
type Routes struct {
	Sessions    *handlers.SessionsHandler
	Piles       *handlers.PilesHandler
	PileFeed    http.HandlerFunc
	Metrics     http.Handler
	ReserveRate *RateLimiter
	// Middleware wraps every route, outermost first.
	Middleware []func(http.Handler) http.Handler
}

// NewRouter registers endpoints.
func NewRouter(routes Routes, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	for _, mw := range routes.Middleware {
		r.Use(mw)
	}
	admin := handlers.RequireAdmin(logger)

	r.Get("/health", httpx.HealthHandler())
	if routes.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", routes.Metrics)
	}
	if routes.PileFeed != nil {
		r.Get("/ws/piles", routes.PileFeed)
	}

	if p := routes.Piles; p != nil {
		r.Get("/charging-areas", p.ListAreas)
		r.With(admin).Get("/charging-logs", p.Logs)
		r.Route("/charging-piles", func(r chi.Router) {
			r.Get("/", p.List)
			r.Get("/{id}", p.Get)
			r.Get("/{id}/slots", p.Slots)
			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Post("/", p.Create)
				r.Put("/{id}", p.Update)
				r.Delete("/{id}", p.Delete)
			})
		})
	}

	if s := routes.Sessions; s != nil {
		r.Route("/charging-sessions", func(r chi.Router) {
			r.Use(handlers.RequireIdentity(logger))
			r.With(routes.ReserveRate.Middleware).Post("/reserve", s.Reserve)
			r.Get("/user/{user_id}", s.ListByUser)
			r.Get("/{id}", s.Get)
			r.Post("/{id}/cancel", s.Cancel)
			r.Post("/{id}/start", s.Start)
			r.Post("/{id}/stop", s.Stop)
		})
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteMessage(w, apperrors.CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
	return r
}
