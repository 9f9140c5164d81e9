package httpserver

import (
	"net/http"

	"campusev/backend/libs/httpx"
	"campusev/backend/services/auth-service/internal/http/handlers"
)

// Routes aggregates handlers for HTTP server.
type Routes struct {
	Auth    *handlers.AuthHandler
	Metrics http.Handler
}

// NewRouter wires all HTTP routes.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", httpx.Method(http.MethodGet, httpx.HealthHandler()))
	if routes.Metrics != nil {
		mux.Handle("/metrics", httpx.Method(http.MethodGet, routes.Metrics))
	}
	if routes.Auth != nil {
		mux.Handle("/auth/signup", httpx.Method(http.MethodPost, http.HandlerFunc(routes.Auth.Signup)))
		mux.Handle("/auth/login", httpx.Method(http.MethodPost, http.HandlerFunc(routes.Auth.Login)))
	}
	return mux
}
