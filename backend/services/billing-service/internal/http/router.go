package httpserver

import (
	"net/http"

	"campusev/backend/libs/httpx"
)

// Routes groups HTTP handlers.
type Routes struct {
	TransactionsMe http.HandlerFunc
	Metrics        http.Handler
}

// NewRouter registers service endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", httpx.Method(http.MethodGet, httpx.HealthHandler()))
	if routes.Metrics != nil {
		mux.Handle("/metrics", httpx.Method(http.MethodGet, routes.Metrics))
	}
	if routes.TransactionsMe != nil {
		mux.Handle("/billing/me/transactions", httpx.Method(http.MethodGet, routes.TransactionsMe))
	}
	return mux
}
