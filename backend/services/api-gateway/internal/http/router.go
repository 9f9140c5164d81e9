package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/libs/httpx"
	"campusev/backend/services/api-gateway/internal/http/handlers"
)

// Charging resources exposed under /api.
var chargingPrefixes = []string{
	"/charging-areas",
	"/charging-piles",
	"/charging-sessions",
	"/charging-logs",
}

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	AuthHandlers     *handlers.AuthHandlers
	ChargingHandlers *handlers.ChargingHandlers
	BillingHandlers  *handlers.BillingHandlers
	Metrics          http.Handler
}

// NewRouter wires HTTP routes with middleware.
func NewRouter(deps RouterDeps, authMiddleware func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", httpx.HealthHandler())
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		if a := deps.AuthHandlers; a != nil {
			r.Post("/auth/signup", a.Signup)
			r.Post("/auth/login", a.Login)
		}
		if c := deps.ChargingHandlers; c != nil {
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware)
				r.Handle("/charging/*", http.HandlerFunc(c.Proxy))
				for _, prefix := range chargingPrefixes {
					r.Handle(prefix, http.HandlerFunc(c.Proxy))
					r.Handle(prefix+"/*", http.HandlerFunc(c.Proxy))
				}
			})
		}
		if b := deps.BillingHandlers; b != nil {
			r.With(authMiddleware).Get("/billing/me/transactions", b.MyTransactions)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteMessage(w, apperrors.CodeNotFound, "route not found")
	})
	return r
}
